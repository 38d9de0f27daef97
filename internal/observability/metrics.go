package observability

import (
	"context"
	"fmt"

	"interviewprep/internal/ai"
	"interviewprep/internal/config"
	"interviewprep/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const metricPrefix = "interviewprep_"

// Metrics holds the application instruments. A nil *Metrics records
// nothing, so callers never need to check whether metrics are enabled.
type Metrics struct {
	cfg *config.CustomMetricsConfig

	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Business metrics
	FilesExtracted     metric.Int64Counter
	ResumesAnalyzed    metric.Int64Counter
	QuestionsGenerated metric.Int64Counter
	AnswersGenerated   metric.Int64Counter

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

// NewMetrics creates every instrument on meter. fullConfig may be nil, in
// which case all metric groups are recorded.
func NewMetrics(meter metric.Meter, fullConfig *config.Config) (*Metrics, error) {
	m := &Metrics{}
	if fullConfig != nil {
		custom := fullConfig.Observability.CustomMetrics
		m.cfg = &custom
	}

	if err := m.createAIMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createBusinessMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createRateLimitMetrics(meter); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) createAIMetrics(meter metric.Meter) error {
	var err error

	m.AIProcessingTime, err = meter.Float64Histogram(
		metricPrefix+"ai_processing_time",
		metric.WithDescription("Time spent on model calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	m.AIRequestCount, err = meter.Int64Counter(
		metricPrefix+"ai_requests_total",
		metric.WithDescription("Total number of model calls"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	m.AIErrorCount, err = meter.Int64Counter(
		metricPrefix+"ai_errors_total",
		metric.WithDescription("Total number of failed model calls"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	m.AITokenUsage, err = meter.Int64Histogram(
		metricPrefix+"ai_tokens_used",
		metric.WithDescription("Tokens consumed per model call by token type"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	return nil
}

func (m *Metrics) createBusinessMetrics(meter metric.Meter) error {
	var err error

	m.FilesExtracted, err = meter.Int64Counter(
		metricPrefix+"files_extracted_total",
		metric.WithDescription("Total number of uploaded files processed"),
	)
	if err != nil {
		return fmt.Errorf("failed to create files extracted metric: %w", err)
	}

	m.ResumesAnalyzed, err = meter.Int64Counter(
		metricPrefix+"resumes_analyzed_total",
		metric.WithDescription("Total number of resume analyses"),
	)
	if err != nil {
		return fmt.Errorf("failed to create resumes analyzed metric: %w", err)
	}

	m.QuestionsGenerated, err = meter.Int64Counter(
		metricPrefix+"questions_generated_total",
		metric.WithDescription("Total number of interview questions generated"),
	)
	if err != nil {
		return fmt.Errorf("failed to create questions generated metric: %w", err)
	}

	m.AnswersGenerated, err = meter.Int64Counter(
		metricPrefix+"answers_generated_total",
		metric.WithDescription("Total number of model answers generated"),
	)
	if err != nil {
		return fmt.Errorf("failed to create answers generated metric: %w", err)
	}

	return nil
}

func (m *Metrics) createRateLimitMetrics(meter metric.Meter) error {
	var err error

	m.RateLimitHits, err = meter.Int64Counter(
		metricPrefix+"rate_limit_hits_total",
		metric.WithDescription("Total number of rate limited requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

func (m *Metrics) aiEnabled() bool {
	return m.cfg == nil || m.cfg.AIOperations.Enabled
}

func (m *Metrics) businessEnabled() bool {
	return m.cfg == nil || m.cfg.BusinessMetrics.Enabled
}

// ObserveCall records one model call. It satisfies ai.CallObserver.
func (m *Metrics) ObserveCall(ctx context.Context, report ai.CallReport) {
	if m == nil || !m.aiEnabled() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", report.Operation),
		attribute.String("model", report.Model),
		attribute.Bool("success", report.Success),
	}

	if m.cfg == nil || m.cfg.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, report.Duration.Seconds(), metric.WithAttributes(attrs...))
	}
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if !report.Success {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if report.Usage != nil && (m.cfg == nil || m.cfg.AIOperations.TrackTokenUsage) {
		m.recordTokenMetrics(ctx, report.Usage, attrs)
	}
}

func (m *Metrics) recordTokenMetrics(ctx context.Context, usage *ai.TokenUsage, attrs []attribute.KeyValue) {
	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	}

	for _, tt := range tokenTypes {
		tokenAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
		tokenAttrs = append(tokenAttrs, attrs...)
		tokenAttrs = append(tokenAttrs, attribute.String("token_type", tt.tokenType))
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(tokenAttrs...))
	}
}

// ObserveExtraction records one processed upload. It satisfies extract.Observer.
func (m *Metrics) ObserveExtraction(ctx context.Context, mediaType types.MediaType, ok bool) {
	if m == nil || !m.businessEnabled() {
		return
	}
	m.FilesExtracted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("media_type", string(mediaType)),
		attribute.Bool("success", ok),
	))
}

// RecordAnalysis counts one resume analysis by outcome
func (m *Metrics) RecordAnalysis(ctx context.Context, status types.OutcomeStatus) {
	if m == nil || !m.businessEnabled() {
		return
	}
	m.ResumesAnalyzed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(status))))
}

// RecordQuestions adds the number of generated questions per list
func (m *Metrics) RecordQuestions(ctx context.Context, role types.JobRole, qs types.QuestionSet) {
	if m == nil || !m.businessEnabled() {
		return
	}
	outcome := attribute.String("outcome", string(qs.Status()))
	roleAttr := attribute.String("role", string(role))
	// a failed set carries an error message, not a question
	if qs.Status() == types.StatusFailed {
		return
	}
	m.QuestionsGenerated.Add(ctx, int64(len(qs.CommonQuestions)),
		metric.WithAttributes(outcome, roleAttr, attribute.String("list", "common")))
	m.QuestionsGenerated.Add(ctx, int64(len(qs.ResumeQuestions)),
		metric.WithAttributes(outcome, roleAttr, attribute.String("list", "resume")))
}

// RecordAnswers adds the number of non-empty answers
func (m *Metrics) RecordAnswers(ctx context.Context, answers types.AnswerList) {
	if m == nil || !m.businessEnabled() {
		return
	}
	filled := 0
	for _, a := range answers.Answers {
		if a != "" {
			filled++
		}
	}
	m.AnswersGenerated.Add(ctx, int64(filled), metric.WithAttributes(attribute.String("outcome", string(answers.Status()))))
}

// RecordRateLimitHit counts one rejected request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, path string) {
	if m == nil {
		return
	}
	if m.cfg != nil && (!m.cfg.Infrastructure.Enabled || !m.cfg.Infrastructure.TrackRateLimits) {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}
