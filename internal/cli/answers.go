package cli

import (
	"context"
	"fmt"
	"strings"

	"interviewprep/internal/common"
	"interviewprep/internal/formatters"
	"interviewprep/internal/types"

	"github.com/spf13/cobra"
)

var answersCmd = &cobra.Command{
	Use:   "answers [resume-file]",
	Short: "Write model answers to interview questions",
	Long: `Write a model answer for every question in the --questions file, in
the voice of the candidate described by the resume. The file holds one
question per line; blank lines and lines starting with # are skipped.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: applyOutputDefaults,
	RunE:    runAnswers,
}

var questionsFile string

func init() {
	addOutputFlags(answersCmd)
	addInterviewFlags(answersCmd)
	answersCmd.Flags().StringVarP(&questionsFile, "questions", "q", "", "File with one question per line")
	_ = answersCmd.MarkFlagRequired("questions")
}

// parseQuestions returns the non-blank, non-comment lines of content
func parseQuestions(content string) []string {
	var questions []string
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	return questions
}

func runAnswers(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	role, err := common.ResolveJobRole(roleArg)
	if err != nil {
		return err
	}

	content, err := common.NewFileProcessor(logger).ReadFile(questionsFile)
	if err != nil {
		return err
	}
	questions := parseQuestions(content)
	if len(questions) == 0 {
		return fmt.Errorf("no questions found in %s", questionsFile)
	}

	app, err := buildApplication(cfg, logger, false)
	if err != nil {
		return err
	}
	defer app.shutdown(context.WithoutCancel(cmd.Context()), logger)

	credential := cliCredential(cfg)
	operation := func(ctx context.Context, file *types.UploadedFile) (formatters.AnsweredQuestions, error) {
		resume, err := resumeText(ctx, app.assistant, file, credential)
		if err != nil {
			return formatters.AnsweredQuestions{}, err
		}
		answers, err := app.assistant.Answers(ctx, credential, types.AnswersInput{
			Resume:    resume,
			Role:      role,
			Company:   companyArg,
			Questions: questions,
		})
		if err != nil {
			return formatters.AnsweredQuestions{}, err
		}
		return formatters.AnsweredQuestions{Questions: questions, Answers: answers}, nil
	}

	if err := common.RunResumeCommand(cmd.Context(), logger, outputConfig, args[0], operation); err != nil {
		return fmt.Errorf("failed to generate answers: %w", err)
	}
	logger.Info("Answer generation completed", "questions", len(questions))
	return nil
}
