package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"interviewprep/internal/config"
	apperrors "interviewprep/internal/errors"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const tracerName = "interviewprep.ai.gemini"

// maxBackoff caps the delay between two attempts
const maxBackoff = 30 * time.Second

// GeminiProvider runs the model calls of one operation. It holds no
// credential: every call builds its own client through the factory.
type GeminiProvider struct {
	op             config.Operation
	config         config.OperationAIConfig
	factory        ClientFactory
	circuitBreaker *AICircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	observer       CallObserver
	logger         *apperrors.Logger
}

// ProviderOption customizes a GeminiProvider
type ProviderOption func(*GeminiProvider)

// WithObserver reports every call to o
func WithObserver(o CallObserver) ProviderOption {
	return func(g *GeminiProvider) { g.observer = o }
}

// NewGeminiProvider creates the provider for op. cfg must come from
// config.GetOperationConfig so that Timeout and MaxRetries are set.
func NewGeminiProvider(op config.Operation, cfg config.OperationAIConfig, factory ClientFactory, logger *apperrors.Logger, opts ...ProviderOption) *GeminiProvider {
	g := &GeminiProvider{
		op:             op,
		config:         cfg,
		factory:        factory,
		circuitBreaker: NewAICircuitBreaker(op, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(op, cfg, logger),
		logger:         logger,
	}
	for _, opt := range opts {
		opt(g)
	}

	logger.Debug("Initialized AI provider",
		"operation", op,
		"model", cfg.Model,
		"timeout", g.timeout(),
		"max_retries", g.maxRetries(),
		"circuit_breaker", cfg.CircuitBreaker.Enabled)
	return g
}

func (g *GeminiProvider) Model() string { return g.config.Model }

func (g *GeminiProvider) Operation() config.Operation { return g.op }

func (g *GeminiProvider) maxRetries() int {
	if g.config.MaxRetries == nil {
		return 0
	}
	return *g.config.MaxRetries
}

func (g *GeminiProvider) timeout() time.Duration {
	if g.config.Timeout == nil {
		return 0
	}
	return *g.config.Timeout
}

func (g *GeminiProvider) generateConfig() *genai.GenerateContentConfig {
	if g.config.Temperature == nil {
		return nil
	}
	temp := *g.config.Temperature
	return &genai.GenerateContentConfig{Temperature: &temp}
}

// Generate sends contents to the model and returns the response text
func (g *GeminiProvider) Generate(ctx context.Context, apiKey string, contents []*genai.Content, spanAttributes ...attribute.KeyValue) (string, *TokenUsage, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "gemini."+string(g.op))
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.String("ai.operation", string(g.op)),
	)
	if g.config.Temperature != nil {
		span.SetAttributes(attribute.Float64("ai.temperature", float64(*g.config.Temperature)))
	}
	span.SetAttributes(spanAttributes...)

	if timeout := g.timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	attempts := 0
	report := func(usage *TokenUsage, err error) {
		if g.observer == nil {
			return
		}
		g.observer.ObserveCall(ctx, CallReport{
			Operation: string(g.op),
			Model:     g.config.Model,
			Success:   err == nil,
			Attempts:  attempts,
			Duration:  time.Since(start),
			Usage:     usage,
			Err:       err,
		})
	}
	fail := func(err error) (string, *TokenUsage, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("success", false))
		report(nil, err)
		return "", nil, err
	}

	client, err := g.factory(ctx, apiKey)
	if err != nil {
		return fail(err)
	}

	genConfig := g.generateConfig()
	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, func() (*genai.GenerateContentResponse, error) {
			attempts++
			return client.GenerateContent(ctx, g.config.Model, contents, genConfig)
		})
	})
	if err != nil {
		return fail(g.classifyError(ctx, err))
	}
	if result == nil {
		return fail(apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "empty response from model", nil))
	}

	text := result.Text()
	usage := extractTokenUsage(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("ai.attempts", attempts),
		attribute.Int("output.length", len(text)),
	)

	g.logger.Debug("AI call completed",
		"operation", g.op,
		"model", g.config.Model,
		"attempts", attempts,
		"duration_ms", time.Since(start).Milliseconds(),
		"response_length", len(text))

	report(usage, nil)
	return text, usage, nil
}

func (g *GeminiProvider) classifyError(ctx context.Context, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		appErr = apperrors.NewAIError(apperrors.ErrCodeCircuitOpen, "AI service temporarily unavailable", err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		appErr = apperrors.NewAIError(apperrors.ErrCodeAITimeout, "AI request timed out", err)
	default:
		appErr = apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "AI request failed", err)
	}
	return appErr.WithContext("operation", string(g.op)).WithContext("model", g.config.Model)
}

// executeWithRetry retries transient failures with exponential backoff.
// With MaxRetries 0 it performs exactly one attempt.
func (g *GeminiProvider) executeWithRetry(ctx context.Context, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := g.maxRetries()
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := backoffDelay(attempt)
			g.logger.Warn("Retrying AI operation",
				"operation", g.op,
				"attempt", attempt,
				"max_retries", maxRetries,
				"backoff", backoff,
				"error", lastErr.Error())

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", g.op,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	if maxRetries == 0 {
		return nil, lastErr
	}
	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", g.op,
		"max_retries", maxRetries)
	return nil, fmt.Errorf("%s failed after retries: %w", g.op, lastErr)
}

// backoffDelay is 2^(attempt-1) seconds plus up to 10% jitter, capped
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, maxBackoff)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isRetryableError reports transient transport and upstream failures
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return retryableStatus(gErr.Code)
	}

	return false
}

// isUpstreamFailure decides what the circuit breaker counts as a failure
func isUpstreamFailure(err error) bool {
	return isRetryableError(err) || errors.Is(err, context.DeadlineExceeded)
}

func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

// ModelInfo describes the availability of the configured model
type ModelInfo struct {
	Operation   string `json:"operation"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo looks the configured model up using apiKey
func (g *GeminiProvider) GetModelInfo(ctx context.Context, apiKey string, timeout time.Duration) *ModelInfo {
	info := &ModelInfo{Operation: string(g.op), Name: g.config.Model}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client, err := g.factory(ctx, apiKey)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	inspector, ok := client.(ModelInspector)
	if !ok {
		info.Error = "model lookup not supported by client"
		return info
	}

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return inspector.Get(ctx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed", "model", g.config.Model, "error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

// GetCircuitBreakerStats exposes breaker state for the stats endpoint
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return g.circuitBreaker.GetStats()
}

func (g *GeminiProvider) IsHealthy() bool {
	return g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy()
}
