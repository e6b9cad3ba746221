package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/mender/internal/config"
	"github.com/dshills/mender/internal/providers"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Provider and model management",
}

type modelInfo struct {
	Provider string
	Aliases  []string
	Env      []string
}

var knownProviders = []modelInfo{
	{Provider: "anthropic", Env: []string{"ANTHROPIC_API_KEY"}},
	{Provider: "openai", Env: []string{"OPENAI_API_KEY", "MENDER_OPENAI_BASE_URL"}},
	{Provider: "gemini", Aliases: []string{"google"}, Env: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}},
	{Provider: "ollama", Aliases: []string{"lmstudio"}, Env: []string{"OLLAMA_HOST", "MENDER_OLLAMA_API_KEY"}},
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported providers and their default models",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		for _, info := range knownProviders {
			fmt.Fprintf(w, "%s:\n", info.Provider)
			fmt.Fprintf(w, "  default model: %s\n", providers.DefaultModels[info.Provider])
			for _, a := range info.Aliases {
				fmt.Fprintf(w, "  alias: %s\n", a)
			}
			for _, e := range info.Env {
				fmt.Fprintf(w, "  env: %s\n", e)
			}
			fmt.Fprintln(w)
		}
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate provider credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Checking %s...\n", cfg.Provider)

		p, err := newProvider(cfg.Provider, cfg.Model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		_, err = p.Complete(ctx, providers.Request{
			System:    "Respond with exactly: ok",
			Prompt:    "ping",
			MaxTokens: 10,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			if providers.IsAuthError(err) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitRuntimeError
			}
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "OK: %s is configured and responding\n", p.Name())
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
	modelsDoctorCmd.Flags().StringVar(&flagProvider, "provider", "", "Provider to check")
	modelsDoctorCmd.Flags().StringVar(&flagModel, "model", "", "Model to check")
}
