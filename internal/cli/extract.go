package cli

import (
	"context"
	"fmt"

	"interviewprep/internal/common"
	"interviewprep/internal/types"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [resume-file]",
	Short: "Extract the text of a resume",
	Long: `Extract plain text from a resume file. PDF, DOCX, TXT and Markdown files
are supported. PDF files are read by the configured backend; the Gemini
backend needs an API key.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: applyOutputDefaults,
	RunE:    runExtract,
}

func init() {
	addOutputFlags(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	app, err := buildApplication(cfg, logger, false)
	if err != nil {
		return err
	}
	defer app.shutdown(context.WithoutCancel(cmd.Context()), logger)

	credential := cliCredential(cfg)
	operation := func(ctx context.Context, file *types.UploadedFile) (types.ExtractionResult, error) {
		return app.assistant.Extract(ctx, file, credential), nil
	}

	if err := common.RunResumeCommand(cmd.Context(), logger, outputConfig, args[0], operation); err != nil {
		return fmt.Errorf("failed to extract resume: %w", err)
	}
	logger.Info("Resume extraction completed")
	return nil
}
