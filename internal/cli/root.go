package cli

import (
	"context"

	"interviewprep/internal/common"
	"interviewprep/internal/config"
	"interviewprep/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}
type vaultKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}
var vaultKey = vaultKeyType{}

// Flags shared by every resume command
var (
	outputConfig common.CommandConfig
	geminiKey    string
)

var rootCmd = &cobra.Command{
	Use:   "interviewprep",
	Short: "AI resume analysis and interview preparation",
	Long: `Interviewprep reads a resume (PDF, DOCX, TXT or Markdown), scores it
against a job description and prepares interview questions with model answers
for a chosen job role. The same workflows are available over HTTP with "serve".`,
	SilenceUsage: true,
}

// Execute runs the root command. vault may be nil.
func Execute(ctx context.Context, cfg *config.Config, vault *config.VaultClient, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	ctx = context.WithValue(ctx, vaultKey, vault)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

func getVaultFromContext(ctx context.Context) *config.VaultClient {
	vault, _ := ctx.Value(vaultKey).(*config.VaultClient)
	return vault
}

// addOutputFlags registers the output flags on a resume command
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&outputConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	cmd.Flags().StringVar(&geminiKey, "gemini-key", "", "Gemini API key (default from config or GEMINI_API_KEY)")

	// Add completion for format flag
	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// applyOutputDefaults fills in the default format and validates it
func applyOutputDefaults(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	if outputConfig.OutputFormat == "" {
		outputConfig.OutputFormat = cfg.App.DefaultFormat
	}
	return common.ValidateOutputFormat(outputConfig.OutputFormat, cfg.App.SupportedFormats)
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(answersCmd)
	rootCmd.AddCommand(prepCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
