package cli

import (
	"context"
	"fmt"

	"interviewprep/internal/common"
	"interviewprep/internal/types"
	"interviewprep/internal/utils"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file]",
	Short: "Score a resume against a job description",
	Long: `Analyze a resume against a job description. The result contains the
estimated pass probability, the match rate and written feedback.

The job description is given with --jd, either as a file path or as text.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: applyOutputDefaults,
	RunE:    runAnalyze,
}

var jobDescriptionArg string

func init() {
	addOutputFlags(analyzeCmd)
	analyzeCmd.Flags().StringVar(&jobDescriptionArg, "jd", "", "Job description file or text")
	_ = analyzeCmd.MarkFlagRequired("jd")
}

// loadJobDescription reads arg as a file when a readable file exists at
// that path, and uses it as the text otherwise
func loadJobDescription(fp *common.FileProcessor, arg string) (string, error) {
	if utils.ValidateInputFile(arg) == nil {
		return fp.ReadFile(arg)
	}
	return arg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	jobDescription, err := loadJobDescription(common.NewFileProcessor(logger), jobDescriptionArg)
	if err != nil {
		return err
	}

	app, err := buildApplication(cfg, logger, false)
	if err != nil {
		return err
	}
	defer app.shutdown(context.WithoutCancel(cmd.Context()), logger)

	credential := cliCredential(cfg)
	logger.Info("Starting resume analysis",
		"jd_chars", len(jobDescription),
		"output_format", outputConfig.OutputFormat)

	operation := func(ctx context.Context, file *types.UploadedFile) (types.AnalysisReport, error) {
		return app.assistant.AnalyzeUpload(ctx, credential, file, jobDescription)
	}

	if err := common.RunResumeCommand(cmd.Context(), logger, outputConfig, args[0], operation); err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	logger.Info("Resume analysis completed")
	return nil
}
