package cli

import (
	"context"
	"fmt"

	"interviewprep/internal/common"
	"interviewprep/internal/types"

	"github.com/spf13/cobra"
)

var prepCmd = &cobra.Command{
	Use:   "prep [resume-file]",
	Short: "Prepare for an interview: top questions with model answers",
	Long: `Generate interview questions for the chosen job role, keep the top five
common and the top five resume questions, and write a model answer for each.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: applyOutputDefaults,
	RunE:    runPrep,
}

func init() {
	addOutputFlags(prepCmd)
	addInterviewFlags(prepCmd)
}

func runPrep(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	role, err := common.ResolveJobRole(roleArg)
	if err != nil {
		return err
	}

	app, err := buildApplication(cfg, logger, false)
	if err != nil {
		return err
	}
	defer app.shutdown(context.WithoutCancel(cmd.Context()), logger)

	credential := cliCredential(cfg)
	operation := func(ctx context.Context, file *types.UploadedFile) (types.InterviewPrep, error) {
		resume, err := resumeText(ctx, app.assistant, file, credential)
		if err != nil {
			return types.InterviewPrep{}, err
		}
		return app.assistant.PrepareInterview(ctx, credential, types.QuestionsInput{
			Resume:  resume,
			Role:    role,
			Company: companyArg,
		})
	}

	if err := common.RunResumeCommand(cmd.Context(), logger, outputConfig, args[0], operation); err != nil {
		return fmt.Errorf("failed to prepare interview: %w", err)
	}
	logger.Info("Interview preparation completed", "role", role)
	return nil
}
