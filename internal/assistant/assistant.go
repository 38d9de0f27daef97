// Package assistant composes extraction and the coach into the two user
// workflows: analyzing an uploaded resume against a job description, and
// preparing for an interview with questions and model answers.
package assistant

import (
	"context"
	"strings"

	"interviewprep/internal/ai"
	"interviewprep/internal/errors"
	"interviewprep/internal/extract"
	"interviewprep/internal/observability"
	"interviewprep/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "interviewprep.assistant"

// TopQuestions caps each question list in a prepared interview
const TopQuestions = 5

// Validation messages shown when required inputs are missing
const (
	MsgAnalyzeFieldsRequired = "모든 필드를 입력하고 이력서를 업로드해 주세요."
	MsgPrepFieldsRequired    = "API 키, 이력서, 직무를 모두 입력해주세요."
)

// Coach is the model-backed half of the workflows
type Coach interface {
	AnalyzeResume(ctx context.Context, credential, resume, jobDescription string) types.AnalysisResult
	GenerateInterviewQuestions(ctx context.Context, credential, resume string, role types.JobRole, company string) types.QuestionSet
	GenerateModelAnswers(ctx context.Context, credential, resume string, role types.JobRole, company string, questions []string) types.AnswerList
}

var _ Coach = (*ai.Coach)(nil)

// Extractor turns uploads into text
type Extractor interface {
	Extract(ctx context.Context, file *types.UploadedFile, credential string) types.ExtractionResult
}

var _ Extractor = (*extract.Extractor)(nil)

// Service runs the workflows. It holds no per-user state.
type Service struct {
	extractor Extractor
	coach     Coach
	metrics   *observability.Metrics
	logger    *errors.Logger
}

func New(extractor Extractor, coach Coach, metrics *observability.Metrics, logger *errors.Logger) *Service {
	return &Service{
		extractor: extractor,
		coach:     coach,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	span.SetAttributes(attrs...)
	return ctx, span
}

func missingFields(message string) error {
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, message, nil)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// Extract exposes the extractor on its own
func (s *Service) Extract(ctx context.Context, file *types.UploadedFile, credential string) types.ExtractionResult {
	ctx, span := s.startSpan(ctx, "assistant.extract")
	defer span.End()

	result := s.extractor.Extract(ctx, file, credential)
	span.SetAttributes(attribute.Bool("success", result.OK))
	if !result.OK {
		span.SetStatus(codes.Error, result.Message)
	}
	return result
}

// Analyze scores resume text against a job description
func (s *Service) Analyze(ctx context.Context, credential string, in types.AnalyzeInput) (types.AnalysisResult, error) {
	if credential == "" || blank(in.Resume) || blank(in.JobDescription) {
		return types.AnalysisResult{}, missingFields(MsgAnalyzeFieldsRequired)
	}

	ctx, span := s.startSpan(ctx, "assistant.analyze",
		attribute.Int("resume_length", len(in.Resume)),
		attribute.Int("jd_length", len(in.JobDescription)))
	defer span.End()

	result := s.coach.AnalyzeResume(ctx, credential, in.Resume, in.JobDescription)
	s.metrics.RecordAnalysis(ctx, result.Status())
	span.SetAttributes(attribute.String("outcome", string(result.Status())))
	return result, nil
}

// AnalyzeUpload extracts the uploaded resume and analyzes it. A failed
// extraction ends the workflow without a model call.
func (s *Service) AnalyzeUpload(ctx context.Context, credential string, file *types.UploadedFile, jobDescription string) (types.AnalysisReport, error) {
	if credential == "" || file == nil || blank(jobDescription) {
		return types.AnalysisReport{}, missingFields(MsgAnalyzeFieldsRequired)
	}

	ctx, span := s.startSpan(ctx, "assistant.analyze_upload",
		attribute.String("media_type", string(file.MediaType)))
	defer span.End()

	report := types.AnalysisReport{Extraction: s.extractor.Extract(ctx, file, credential)}
	if !report.Extraction.OK {
		s.logger.Info("Skipping analysis after failed extraction",
			"file", file.Name,
			"reason", report.Extraction.Message)
		span.SetStatus(codes.Error, report.Extraction.Message)
		return report, nil
	}

	result := s.coach.AnalyzeResume(ctx, credential, report.Extraction.Text, jobDescription)
	s.metrics.RecordAnalysis(ctx, result.Status())
	span.SetAttributes(attribute.String("outcome", string(result.Status())))
	report.Analysis = &result
	return report, nil
}

func validatePrepInput(credential, resume string, role types.JobRole) error {
	if credential == "" || blank(resume) || role == "" {
		return missingFields(MsgPrepFieldsRequired)
	}
	if !types.ValidJobRole(role) {
		return errors.NewValidationError(errors.ErrCodeInvalidJobRole, "unknown job role: "+string(role), nil).
			WithContext("role", string(role))
	}
	return nil
}

// Questions generates the full question lists
func (s *Service) Questions(ctx context.Context, credential string, in types.QuestionsInput) (types.QuestionSet, error) {
	if err := validatePrepInput(credential, in.Resume, in.Role); err != nil {
		return types.QuestionSet{}, err
	}

	ctx, span := s.startSpan(ctx, "assistant.questions", attribute.String("role", string(in.Role)))
	defer span.End()

	qs := s.coach.GenerateInterviewQuestions(ctx, credential, in.Resume, in.Role, in.Company)
	s.metrics.RecordQuestions(ctx, in.Role, qs)
	span.SetAttributes(attribute.String("outcome", string(qs.Status())))
	return qs, nil
}

// Answers generates one model answer per question
func (s *Service) Answers(ctx context.Context, credential string, in types.AnswersInput) (types.AnswerList, error) {
	if err := validatePrepInput(credential, in.Resume, in.Role); err != nil {
		return types.AnswerList{}, err
	}

	ctx, span := s.startSpan(ctx, "assistant.answers",
		attribute.String("role", string(in.Role)),
		attribute.Int("question_count", len(in.Questions)))
	defer span.End()

	answers := s.coach.GenerateModelAnswers(ctx, credential, in.Resume, in.Role, in.Company, in.Questions)
	s.metrics.RecordAnswers(ctx, answers)
	return answers, nil
}

// PrepareInterview generates questions, keeps the top five of each list
// and answers every kept list that is not empty, including the error entry
// of a failed question set.
func (s *Service) PrepareInterview(ctx context.Context, credential string, in types.QuestionsInput) (types.InterviewPrep, error) {
	if err := validatePrepInput(credential, in.Resume, in.Role); err != nil {
		return types.InterviewPrep{}, err
	}

	ctx, span := s.startSpan(ctx, "assistant.prepare_interview", attribute.String("role", string(in.Role)))
	defer span.End()

	qs := s.coach.GenerateInterviewQuestions(ctx, credential, in.Resume, in.Role, in.Company)
	s.metrics.RecordQuestions(ctx, in.Role, qs)

	prep := types.InterviewPrep{
		Role:    in.Role,
		Company: in.Company,
		Common:  []types.QA{},
		Resume:  []types.QA{},
	}

	common := top(qs.CommonQuestions, TopQuestions)
	resume := top(qs.ResumeQuestions, TopQuestions)

	// a failed set still goes through answering with its single error entry
	if qs.Status() == types.StatusFailed {
		span.SetStatus(codes.Error, "question generation failed")
	}

	if len(common) > 0 {
		answers := s.coach.GenerateModelAnswers(ctx, credential, in.Resume, in.Role, in.Company, common)
		s.metrics.RecordAnswers(ctx, answers)
		prep.Common = pair(common, answers.Answers)
	}
	if len(resume) > 0 {
		answers := s.coach.GenerateModelAnswers(ctx, credential, in.Resume, in.Role, in.Company, resume)
		s.metrics.RecordAnswers(ctx, answers)
		prep.Resume = pair(resume, answers.Answers)
	}

	span.SetAttributes(
		attribute.Int("common_count", len(prep.Common)),
		attribute.Int("resume_count", len(prep.Resume)))
	return prep, nil
}

func top(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// pair zips questions with answers; missing answers are empty
func pair(questions, answers []string) []types.QA {
	out := make([]types.QA, len(questions))
	for i, q := range questions {
		out[i] = types.QA{Question: q}
		if i < len(answers) {
			out[i].Answer = strings.TrimSpace(answers[i])
		}
	}
	return out
}
