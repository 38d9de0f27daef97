package cli

import (
	"context"
	"fmt"

	"interviewprep/internal/common"
	"interviewprep/internal/types"

	"github.com/spf13/cobra"
)

// Flags of the interview commands
var (
	roleArg    string
	companyArg string
)

func addInterviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&roleArg, "role", "r", "", "Job role, by name or by its number in the role list")
	cmd.Flags().StringVarP(&companyArg, "company", "c", "", "Target company (optional)")
	_ = cmd.MarkFlagRequired("role")

	_ = cmd.RegisterFlagCompletionFunc("role", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		roles := make([]string, len(types.JobRoles))
		for i, r := range types.JobRoles {
			roles[i] = string(r)
		}
		return roles, cobra.ShellCompDirectiveNoFileComp
	})
}

var questionsCmd = &cobra.Command{
	Use:   "questions [resume-file]",
	Short: "Generate interview questions for a job role",
	Long: `Generate interview questions for the chosen job role: common questions
for the role and questions tailored to the resume.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: applyOutputDefaults,
	RunE:    runQuestions,
}

func init() {
	addOutputFlags(questionsCmd)
	addInterviewFlags(questionsCmd)
}

func runQuestions(cmd *cobra.Command, args []string) error {
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
	operation := func(ctx context.Context, file *types.UploadedFile) (types.QuestionSet, error) {
		resume, err := resumeText(ctx, app.assistant, file, credential)
		if err != nil {
			return types.QuestionSet{}, err
		}
		return app.assistant.Questions(ctx, credential, types.QuestionsInput{
			Resume:  resume,
			Role:    role,
			Company: companyArg,
		})
	}

	if err := common.RunResumeCommand(cmd.Context(), logger, outputConfig, args[0], operation); err != nil {
		return fmt.Errorf("failed to generate questions: %w", err)
	}
	logger.Info("Question generation completed", "role", role)
	return nil
}
