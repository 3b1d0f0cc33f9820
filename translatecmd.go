package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/minios-linux/xcfill/batch"
	"github.com/minios-linux/xcfill/config"
	"github.com/minios-linux/xcfill/i18n"
	"github.com/minios-linux/xcfill/settings"
	"github.com/minios-linux/xcfill/translate"
)

// providerArgs holds the provider flags shared by translate and run.
type providerArgs struct {
	provider      string
	model         string
	apiKey        string
	baseURL       string
	timeout       time.Duration
	temperature   float64
	parallel      bool
	maxConcurrent int
	requestDelay  time.Duration
	maxRetries    int
	prompt        string
	dryRun        bool
	verbose       bool
}

// Keys layered through viper: flag > XCFILL_* environment variable.
var layeredKeys = []string{"provider", "model", "api-key", "base-url"}

func (a *providerArgs) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&a.provider, "provider", "p", "", i18n.T("AI provider: gemini, openai, groq, ollama, custom-openai, mock (default: gemini)"))
	f.StringVarP(&a.model, "model", "m", "", i18n.T("Model name (default depends on the provider)"))
	f.StringVar(&a.apiKey, "api-key", "", i18n.T("API key (default: XCFILL_API_KEY, the provider's env var, or the auth store)"))
	f.StringVar(&a.baseURL, "base-url", "", i18n.T("Custom API endpoint"))
	f.DurationVar(&a.timeout, "timeout", 0, i18n.T("Request timeout (default depends on the provider)"))
	f.Float64Var(&a.temperature, "temperature", 0, i18n.T("Sampling temperature (default 0.3)"))
	f.BoolVar(&a.parallel, "parallel", false, i18n.T("Translate task files in parallel"))
	f.IntVar(&a.maxConcurrent, "max-concurrent", 0, i18n.T("Maximum concurrent requests with --parallel (default 3)"))
	f.DurationVar(&a.requestDelay, "request-delay", 0, i18n.T("Delay between launching parallel requests"))
	f.IntVar(&a.maxRetries, "max-retries", 0, i18n.T("Attempts per task file (default 3)"))
	f.StringVar(&a.prompt, "prompt", "", i18n.T("Replace the built-in translation guidance"))
	f.BoolVar(&a.dryRun, "dry-run", false, i18n.T("Translate without writing any file"))
	f.BoolVarP(&a.verbose, "verbose", "v", false, i18n.T("Log every request instead of showing a progress bar"))

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return translate.ProviderIDs(), cobra.ShellCompDirectiveNoFileComp
	})
}

// bind layers the provider flags over XCFILL_* environment variables.
func (a *providerArgs) bind(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("XCFILL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := bindFlags(v, cmd.Flags(), layeredKeys...); err != nil {
		return nil, err
	}
	return v, nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys ...string) error {
	for _, key := range keys {
		f := fs.Lookup(key)
		if f == nil {
			return fmt.Errorf("no --%s flag", key)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", key, err)
		}
	}
	return nil
}

// providerConfig resolves the provider settings. Each value is taken from
// the first source that has it: flag, XCFILL_* environment variable,
// .xcfill.yaml, credential store, built-in default.
func providerConfig(cfg config.Config, a *providerArgs, v *viper.Viper) (translate.Config, error) {
	ps := cfg.Provider
	v.SetDefault("provider", ps.ID)
	v.SetDefault("model", ps.Model)
	v.SetDefault("base-url", ps.BaseURL)

	id := v.GetString("provider")
	if id == "" {
		id = translate.ProviderGemini
	}
	if _, ok := translate.DefaultProviders()[id]; !ok {
		return translate.Config{}, fmt.Errorf("unknown provider %q (known: %s)", id, strings.Join(translate.ProviderIDs(), ", "))
	}

	pc := translate.Config{
		ID:      id,
		Model:   v.GetString("model"),
		BaseURL: v.GetString("base-url"),
		APIKey:  settings.ResolveAPIKey(id, v.GetString("api-key")),
		Timeout: a.timeout,
	}
	if pc.Model == "" {
		pc.Model = settings.GetModel(id)
	}
	if pc.BaseURL == "" {
		pc.BaseURL = settings.GetBaseURL(id)
	}
	if pc.Timeout == 0 {
		pc.Timeout = ps.TimeoutDuration()
	}
	switch {
	case a.temperature > 0:
		pc.Temperature = float32(a.temperature)
	case ps.Temperature > 0:
		pc.Temperature = float32(ps.Temperature)
	}
	return translate.Resolve(pc)
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var a providerArgs

	cmd := &cobra.Command{
		Use:   "translate",
		Short: i18n.T("Fill task files through an AI provider"),
		Long: `Fill the blank translations of every task file in the tasks directory
through an AI provider. Filled task files are saved in place; run 'xcfill
apply' afterwards to merge them.

A task file that keeps failing after its retries is reported and left as is;
the other files are still translated. With --strict the command then exits
with an error.

Provider settings are taken from the flags, then the XCFILL_PROVIDER,
XCFILL_MODEL, XCFILL_API_KEY and XCFILL_BASE_URL environment variables, then
the provider section of .xcfill.yaml, then the auth store.`,
		Example: `  xcfill translate -f App/Resources --provider gemini
  xcfill translate -f App/Resources --provider openai --model gpt-4o
  xcfill translate -f App/Resources --provider ollama --model llama3.2 --parallel
  xcfill translate -f App/Resources --provider custom-openai --base-url http://localhost:8080/v1 --model local`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			v, err := a.bind(cmd)
			if err != nil {
				return err
			}
			if !dirExists(ws.cfg.TasksDir) {
				logInfo(i18n.T("No task files in %s; run 'xcfill scan' first"), ws.cfg.TasksDir)
				return nil
			}
			tasks, err := batch.LoadTasks(ws.cfg.TasksDir)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				logInfo(i18n.T("No task files in %s; run 'xcfill scan' first"), ws.cfg.TasksDir)
				return nil
			}
			return runTranslation(cmd, ws, tasks, &a, v)
		},
	}

	a.addFlags(cmd)
	return cmd
}

// runTranslation fills tasks in place. Failed batches are reported; they
// only turn into an error in strict mode.
func runTranslation(cmd *cobra.Command, ws *workspace, tasks []*batch.Task, a *providerArgs, v *viper.Viper) error {
	pc, err := providerConfig(ws.cfg, a, v)
	if err != nil {
		return err
	}
	prov, err := translate.New(cmd.Context(), pc)
	if err != nil {
		if errors.Is(err, translate.ErrNoAPIKey) {
			return fmt.Errorf("%w\n\nStore a key with:\n  xcfill auth set %s\nor pass --api-key / set %s",
				err, pc.ID, envHint(pc.ID))
		}
		return err
	}

	ps := ws.cfg.Provider
	opts := translate.Options{
		Provider:      prov,
		Parallel:      a.parallel || ps.Parallel,
		MaxConcurrent: firstPositive(a.maxConcurrent, ps.Concurrency),
		RequestDelay:  a.requestDelay,
		SystemPrompt:  firstNonEmpty(a.prompt, ws.cfg.Prompt),
		DryRun:        a.dryRun,
		Retry:         translate.Retry{Attempts: firstPositive(a.maxRetries, ps.Retries)},
		OnError:       logError,
	}
	if a.verbose {
		opts.OnLog = logInfo
	}

	pending := 0
	for _, t := range tasks {
		pending += t.Pending()
	}
	model := pc.Model
	if model == "" {
		model = "-"
	}
	logInfo(i18n.T("Translating %d values in %d task files with %s (%s)"), pending, len(tasks), prov.Name(), model)

	bar := newBatchBar(len(tasks), a.verbose)
	if bar != nil {
		opts.OnProgress = func(done, total int) { _ = bar.Add(1) }
	}
	report, err := translate.Run(cmd.Context(), tasks, opts)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	failed := report.Failed()
	for _, res := range failed {
		logWarning(i18n.T("%s was not translated: %v"), res.Path, res.Err)
	}
	logSuccess(i18n.T("Filled %d translations, %d still blank"), report.Filled(), report.Pending())
	if len(failed) > 0 && ws.cfg.Strict {
		return fmt.Errorf("%d of %d task files failed", len(failed), len(tasks))
	}
	return nil
}

func envHint(id string) string {
	if env := settings.EnvVarForProvider(id); env != "" {
		return "XCFILL_API_KEY or " + env
	}
	return "XCFILL_API_KEY"
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
