// xcfill fills missing translations in Xcode string catalogs (.xcstrings)
// through an AI provider.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/xcfill/i18n"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

var (
	infoPrefix    = color.New(color.FgBlue).SprintFunc()
	successPrefix = color.New(color.FgGreen).SprintFunc()
	warnPrefix    = color.New(color.FgYellow, color.Bold).SprintFunc()
	errorPrefix   = color.New(color.FgRed).SprintFunc()
	heading       = color.New(color.FgBlue, color.Bold).SprintFunc()
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", infoPrefix("[INFO]"), fmt.Sprintf(format, args...))
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", successPrefix("[OK]"), fmt.Sprintf(format, args...))
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", warnPrefix("[WARN]"), fmt.Sprintf(format, args...))
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorPrefix("[ERROR]"), fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	folder     string
	languages  string
	baseLocale string
	tasksDir   string
	strictMode bool
	useLock    bool
	noColor    bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xcfill",
		Short: i18n.T("Fill missing translations in Xcode string catalogs with AI"),
		Long: `xcfill: find, batch, translate and merge missing localizations of
Xcode String Catalogs (.xcstrings).

Pipeline:
  scan        Find missing translations and write LLM task files
  translate   Fill task files through an AI provider
  apply       Merge filled task files back into the catalogs
  regional    Copy base languages into regional variants (en → en-GB, ...)
  run         scan → translate → apply in one go

Other commands:
  status      Show per-language completeness
  lock        Record source checksums for stale-translation detection
  auth        Manage provider API keys

AI Providers:
  gemini         Google AI (Gemini): API key
  openai         OpenAI: API key
  groq           Groq: API key
  ollama         Ollama local server
  custom-openai  Custom OpenAI-compatible endpoint
  mock           Offline provider for dry runs ("[de] Hello")`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	// Global persistent flags, inherited by all subcommands
	pf := root.PersistentFlags()
	pf.StringVar(&rootDir, "root", ".", i18n.T("Project root holding .xcfill.yaml and xcfill.lock"))
	pf.StringVarP(&folder, "folder", "f", "", i18n.T("Folder with .xcstrings catalogs (required)"))
	pf.StringVarP(&languages, "languages", "l", "", i18n.T("Target languages, comma-separated, or \"auto\" to use the languages the catalogs already have"))
	pf.StringVar(&baseLocale, "base", "", i18n.T("Base language (default: each catalog's sourceLanguage)"))
	pf.StringVar(&tasksDir, "tasks-dir", "", i18n.T("Directory for LLM task files (default: tasks_dir from config, else root)"))
	pf.BoolVar(&strictMode, "strict", false, i18n.T("Fail on unknown task keys and failed batches"))
	pf.BoolVar(&useLock, "lock", false, i18n.T("Track source changes in xcfill.lock"))
	pf.BoolVar(&noColor, "no-color", false, i18n.T("Disable colored output"))

	root.AddCommand(
		newStatusCmd(),
		newScanCmd(),
		newTranslateCmd(),
		newApplyCmd(),
		newRegionalCmd(),
		newRunCmd(),
		newLockCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		stop()
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, build date and interface languages.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "xcfill version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
			fmt.Fprintf(out, "  ui:        %s (available: en, %s)\n", i18n.Current(), strings.Join(i18n.Available(), ", "))
		},
	}
}
