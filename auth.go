package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/xcfill/i18n"
	"github.com/minios-linux/xcfill/settings"
	"github.com/minios-linux/xcfill/translate"
)

var (
	okText   = color.New(color.FgGreen).SprintFunc()
	noText   = color.New(color.FgRed).SprintFunc()
	subTitle = color.New(color.FgYellow).SprintFunc()
)

// keyHelp points at the page where a provider's API key is created.
var keyHelp = map[string]string{
	translate.ProviderGemini: "https://aistudio.google.com/apikey",
	translate.ProviderOpenAI: "https://platform.openai.com/api-keys",
	translate.ProviderGroq:   "https://console.groq.com/keys",
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: i18n.T("Manage provider credentials"),
		Long: `Manage the credentials stored in $XDG_DATA_HOME/xcfill/auth.json.

API key providers:
  gemini         Google AI Studio (Gemini API key)
  openai         OpenAI
  groq           Groq Cloud (free tier available)
  custom-openai  Custom OpenAI-compatible endpoint (key optional)

No auth required:
  ollama         Local Ollama server
  mock           Offline provider

Examples:
  xcfill auth set gemini                   Prompt for the Gemini API key
  xcfill auth set groq --key gsk_...       Store a Groq API key
  xcfill auth set custom-openai --base-url http://localhost:8080/v1 --model local
  xcfill auth remove groq                  Remove the Groq credentials
  xcfill auth list                         Show all stored credentials`,
	}

	cmd.AddCommand(
		newAuthSetCmd(),
		newAuthRemoveCmd(),
		newAuthListCmd(),
	)
	return cmd
}

func completeProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defs := translate.DefaultProviders()
	var out []string
	for _, id := range translate.ProviderIDs() {
		if id == translate.ProviderMock {
			continue
		}
		out = append(out, fmt.Sprintf("%s\t%s", id, defs[id].Name))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func newAuthSetCmd() *cobra.Command {
	var key, baseURL, model string

	cmd := &cobra.Command{
		Use:               "set <provider>",
		Short:             i18n.T("Store an API key, endpoint or model for a provider"),
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			def, ok := translate.DefaultProviders()[id]
			if !ok || id == translate.ProviderMock {
				return fmt.Errorf("unknown provider %q", id)
			}

			info := settings.Get(id)
			if info == nil {
				info = &settings.Info{}
			}

			if key == "" && baseURL == "" && model == "" {
				if !def.NeedsKey && id != translate.ProviderCustomOpenAI {
					return fmt.Errorf("provider %s needs no API key; use --base-url or --model to store settings", id)
				}
				k, err := promptKey(cmd, def.Name, id, info.Key)
				if err != nil {
					return err
				}
				key = k
			}

			if key != "" {
				info.Key = key
			}
			if baseURL != "" {
				info.BaseURL = baseURL
			}
			if model != "" {
				info.Model = model
			}
			if err := settings.Set(id, info); err != nil {
				return fmt.Errorf("saving credentials: %w", err)
			}
			logSuccess(i18n.T("%s credentials saved to %s"), def.Name, settings.FilePath())
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", i18n.T("API key (read from stdin when no flag is given)"))
	cmd.Flags().StringVar(&baseURL, "base-url", "", i18n.T("API endpoint"))
	cmd.Flags().StringVar(&model, "model", "", i18n.T("Default model"))
	return cmd
}

// promptKey reads an API key from the command's input. An empty line keeps
// the existing key.
func promptKey(cmd *cobra.Command, name, id, existing string) (string, error) {
	errOut := cmd.ErrOrStderr()
	printHeading(errOut, name+" API key")
	if help := keyHelp[id]; help != "" {
		fmt.Fprintf(errOut, "  Get your API key from: %s\n\n", okText(help))
	}
	if existing != "" {
		fmt.Fprintf(errOut, "  Current key: %s\n", subTitle(settings.MaskKey(existing)))
		fmt.Fprint(errOut, "  Enter new key to replace, or press Enter to keep: ")
	} else {
		fmt.Fprint(errOut, "  Enter API key: ")
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no input received")
	}
	key := strings.TrimSpace(scanner.Text())
	if key == "" {
		if existing != "" {
			return existing, nil
		}
		return "", errors.New("no API key provided")
	}
	return key, nil
}

func newAuthRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "remove <provider>",
		Aliases:           []string{"rm", "logout"},
		Short:             i18n.T("Remove the stored credentials of a provider"),
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := settings.Remove(args[0])
			if err != nil {
				return fmt.Errorf("removing %s credentials: %w", args[0], err)
			}
			if !removed {
				logInfo(i18n.T("No stored credentials for %s"), args[0])
				return nil
			}
			logSuccess(i18n.T("%s credentials removed"), args[0])
			return nil
		},
	}
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   i18n.T("Show stored credentials"),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			store := settings.Load()

			printHeading(out, i18n.T("Stored Credentials"))
			for _, id := range translate.ProviderIDs() {
				if id == translate.ProviderMock {
					continue
				}
				info := store[id]
				switch {
				case info != nil && info.Key != "":
					fmt.Fprintf(out, "  %-14s %s (key: %s)\n", id, okText("configured"), settings.MaskKey(info.Key))
				case info != nil && (info.BaseURL != "" || info.Model != ""):
					fmt.Fprintf(out, "  %-14s %s (no key)\n", id, okText("configured"))
				case !translate.DefaultProviders()[id].NeedsKey:
					fmt.Fprintf(out, "  %-14s no key needed\n", id)
				default:
					fmt.Fprintf(out, "  %-14s %s\n", id, noText("not configured"))
				}
				if info != nil && info.BaseURL != "" {
					fmt.Fprintf(out, "  %14s endpoint: %s\n", "", info.BaseURL)
				}
				if info != nil && info.Model != "" {
					fmt.Fprintf(out, "  %14s model: %s\n", "", info.Model)
				}
			}

			fmt.Fprintf(out, "\n  %s\n", subTitle("Environment Variables"))
			for _, env := range []string{"XCFILL_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "GROQ_API_KEY"} {
				if v := os.Getenv(env); v != "" {
					fmt.Fprintf(out, "  %-16s %s\n", env, okText(settings.MaskKey(v)))
				} else {
					fmt.Fprintf(out, "  %-16s not set\n", env)
				}
			}
			fmt.Fprintf(out, "\n  File: %s\n\n", settings.FilePath())
			return nil
		},
	}
}
