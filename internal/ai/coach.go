package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"interviewprep/internal/config"
	"interviewprep/internal/errors"
	"interviewprep/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// Fallback texts shown to the user when an operation degrades
const (
	AnalysisErrorPrefix      = "오류가 발생했습니다: "
	AnalysisUnparsedScore    = "Error in analysis"
	AnalysisUnparsedFeedback = "분석 결과를 파싱하지 못했습니다. 다시 시도해 주세요."
	QuestionErrorPrefix      = "질문 생성 중 오류가 발생했습니다: "
)

// Coach runs the prompted-JSON operations. Every method returns a
// well-formed result; failures are folded into the result and its Outcome.
type Coach struct {
	cfg       *config.Config
	analyze   *GeminiProvider
	questions *GeminiProvider
	answers   *GeminiProvider
	logger    *errors.Logger
}

func NewCoach(cfg *config.Config, factory ClientFactory, logger *errors.Logger, opts ...ProviderOption) *Coach {
	return &Coach{
		cfg:       cfg,
		analyze:   NewGeminiProvider(config.OpAnalyze, cfg.GetOperationConfig(config.OpAnalyze), factory, logger, opts...),
		questions: NewGeminiProvider(config.OpQuestions, cfg.GetOperationConfig(config.OpQuestions), factory, logger, opts...),
		answers:   NewGeminiProvider(config.OpAnswers, cfg.GetOperationConfig(config.OpAnswers), factory, logger, opts...),
		logger:    logger,
	}
}

// Providers returns the providers backing the coach, for health and stats
func (c *Coach) Providers() []*GeminiProvider {
	return []*GeminiProvider{c.analyze, c.questions, c.answers}
}

// template is read per call so reloaded prompt files take effect immediately
func (c *Coach) template(op config.Operation) string {
	return resolvePrompt(c.cfg.Prompts().Get(op), DefaultPrompts[op])
}

func (c *Coach) ask(ctx context.Context, p *GeminiProvider, credential, prompt string, attrs ...attribute.KeyValue) (string, error) {
	text, _, err := p.Generate(ctx, credential, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, attrs...)
	return text, err
}

// AnalyzeResume scores a resume against a job description
func (c *Coach) AnalyzeResume(ctx context.Context, credential, resume, jobDescription string) types.AnalysisResult {
	prompt := renderPrompt(c.template(config.OpAnalyze), map[string]string{
		PlaceholderResume: resume,
		PlaceholderJD:     jobDescription,
	})

	text, err := c.ask(ctx, c.analyze, credential, prompt,
		attribute.Int("input.resume_length", len(resume)),
		attribute.Int("input.jd_length", len(jobDescription)))
	if err != nil {
		c.logger.LogError(err, "Resume analysis failed")
		return analysisFailure(err)
	}

	obj, ok := FirstJSONObject(text)
	if !ok {
		c.logger.Warn("Resume analysis response contained no JSON object", "response_length", len(text))
		return types.AnalysisResult{
			Probability: types.TextScore(AnalysisUnparsedScore),
			MatchRate:   types.TextScore(AnalysisUnparsedScore),
			Feedback:    AnalysisUnparsedFeedback,
			Outcome:     types.Unparsed(),
		}
	}

	var payload struct {
		Probability *types.Score    `json:"probability"`
		MatchRate   *types.Score    `json:"match_rate"`
		Feedback    json.RawMessage `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		parseErr := errors.NewAIError(errors.ErrCodeResponseParse, "invalid JSON in analysis response", err)
		c.logger.LogError(parseErr, "Resume analysis response could not be decoded")
		return analysisFailure(parseErr)
	}

	return types.AnalysisResult{
		Probability: scoreOrSentinel(payload.Probability),
		MatchRate:   scoreOrSentinel(payload.MatchRate),
		Feedback:    rawText(payload.Feedback),
		Outcome:     types.Succeeded(),
	}
}

func analysisFailure(err error) types.AnalysisResult {
	return types.AnalysisResult{
		Probability: types.TextScore(types.ErrorSentinel),
		MatchRate:   types.TextScore(types.ErrorSentinel),
		Feedback:    AnalysisErrorPrefix + errorMessage(err),
		Outcome:     types.Failed(err),
	}
}

func scoreOrSentinel(s *types.Score) types.Score {
	if s == nil {
		return types.TextScore(types.ErrorSentinel)
	}
	return *s
}

// GenerateInterviewQuestions produces common and resume-specific questions.
// A failed call yields a single error entry in CommonQuestions only.
func (c *Coach) GenerateInterviewQuestions(ctx context.Context, credential, resume string, role types.JobRole, company string) types.QuestionSet {
	prompt := renderPrompt(c.template(config.OpQuestions), map[string]string{
		PlaceholderResume:  resume,
		PlaceholderRole:    string(role),
		PlaceholderCompany: company,
	})

	text, err := c.ask(ctx, c.questions, credential, prompt,
		attribute.String("input.role", string(role)),
		attribute.Int("input.resume_length", len(resume)))
	if err != nil {
		c.logger.LogError(err, "Question generation failed")
		return types.QuestionSet{
			CommonQuestions: []string{QuestionErrorPrefix + errorMessage(err)},
			ResumeQuestions: []string{},
			Outcome:         types.Failed(err),
		}
	}

	empty := types.QuestionSet{
		CommonQuestions: []string{},
		ResumeQuestions: []string{},
		Outcome:         types.Unparsed(),
	}

	obj, ok := FirstJSONObject(text)
	if !ok {
		c.logger.Warn("Question response contained no JSON object", "response_length", len(text))
		return empty
	}

	var payload struct {
		Common json.RawMessage `json:"common_questions"`
		Resume json.RawMessage `json:"resume_questions"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		c.logger.Warn("Question response could not be decoded", "error", err.Error())
		return empty
	}
	common, err := stringList(payload.Common)
	if err != nil {
		c.logger.Warn("common_questions is not a list", "error", err.Error())
		return empty
	}
	resumeQs, err := stringList(payload.Resume)
	if err != nil {
		c.logger.Warn("resume_questions is not a list", "error", err.Error())
		return empty
	}

	return types.QuestionSet{
		CommonQuestions: common,
		ResumeQuestions: resumeQs,
		Outcome:         types.Succeeded(),
	}
}

// GenerateModelAnswers answers questions in order. The result always has
// exactly len(questions) entries.
func (c *Coach) GenerateModelAnswers(ctx context.Context, credential, resume string, role types.JobRole, company string, questions []string) types.AnswerList {
	blank := func(outcome types.Outcome) types.AnswerList {
		return types.AnswerList{Answers: make([]string, len(questions)), Outcome: outcome}
	}

	prompt := renderPrompt(c.template(config.OpAnswers), map[string]string{
		PlaceholderResume:    resume,
		PlaceholderRole:      string(role),
		PlaceholderCompany:   company,
		PlaceholderQuestions: bulletList(questions),
	})

	text, err := c.ask(ctx, c.answers, credential, prompt,
		attribute.String("input.role", string(role)),
		attribute.Int("input.question_count", len(questions)))
	if err != nil {
		c.logger.LogError(err, "Model answer generation failed")
		return blank(types.Failed(err))
	}

	obj, ok := FirstJSONObject(text)
	if !ok {
		c.logger.Warn("Answer response contained no JSON object", "response_length", len(text))
		return blank(types.Unparsed())
	}

	var payload struct {
		Answers json.RawMessage `json:"answers"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return blank(types.Failed(errors.NewAIError(errors.ErrCodeResponseParse, "invalid JSON in answer response", err)))
	}
	answers, err := stringList(payload.Answers)
	if err != nil {
		return blank(types.Failed(errors.NewAIError(errors.ErrCodeResponseParse, "answers is not a list", err)))
	}

	if len(answers) != len(questions) {
		c.logger.Debug("Aligning answers with questions",
			"questions", len(questions),
			"answers", len(answers))
	}
	return types.AnswerList{Answers: alignAnswers(answers, len(questions)), Outcome: types.Succeeded()}
}

// alignAnswers pads with empty strings or truncates to n
func alignAnswers(answers []string, n int) []string {
	out := make([]string, n)
	copy(out, answers)
	return out
}

// stringList decodes a JSON list leniently. Absent or null yields an empty
// list, a bare string a single entry, and non-string items their JSON text.
func stringList(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected a list, got %s", raw)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, rawText(item))
	}
	return out, nil
}

// rawText returns a JSON string's value, or the compact JSON of anything else
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// errorMessage is the user-facing text of err
func errorMessage(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		if appErr.Cause != nil {
			return appErr.Cause.Error()
		}
		return appErr.Message
	}
	return err.Error()
}
