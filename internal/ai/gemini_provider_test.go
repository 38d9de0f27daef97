package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"interviewprep/internal/config"
	apperrors "interviewprep/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

type recordingObserver struct {
	mu      sync.Mutex
	reports []CallReport
}

func (o *recordingObserver) ObserveCall(_ context.Context, report CallReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, report)
}

// blockingModel never answers before the context is done
type blockingModel struct{}

func (blockingModel) GenerateContent(ctx context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type inspectingModel struct {
	*stubModel
	model *genai.Model
	err   error
}

func (m inspectingModel) Get(_ context.Context, _ string, _ *genai.GetModelConfig) (*genai.Model, error) {
	return m.model, m.err
}

func operationConfig(mutate func(*config.OperationAIConfig)) config.OperationAIConfig {
	cfg := testConfig().GetOperationConfig(config.OpAnalyze)
	if mutate != nil {
		mutate(&cfg)
	}
	return cfg
}

func prompt(text string) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
}

func TestGenerateReturnsTextAndUsage(t *testing.T) {
	stub := newStub(textReply("hello"))
	rec := &factoryRecorder{model: stub}
	obs := &recordingObserver{}
	p := NewGeminiProvider(config.OpAnalyze, operationConfig(nil), rec.factory(), testLogger(), WithObserver(obs))

	text, usage, err := p.Generate(context.Background(), testKey, prompt("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	require.NotNil(t, usage)
	assert.Equal(t, int64(10), usage.InputTokens)
	assert.Equal(t, int64(5), usage.OutputTokens)
	assert.Equal(t, int64(15), usage.TotalTokens)

	require.Len(t, obs.reports, 1)
	report := obs.reports[0]
	assert.Equal(t, "analyze", report.Operation)
	assert.Equal(t, "gemini-2.0-flash", report.Model)
	assert.True(t, report.Success)
	assert.Equal(t, 1, report.Attempts)
	assert.Equal(t, usage, report.Usage)
}

func TestGeneratePassesTemperature(t *testing.T) {
	stub := newStub(textReply("ok"))
	rec := &factoryRecorder{model: stub}
	temp := float32(0.2)
	p := NewGeminiProvider(config.OpAnalyze, operationConfig(func(c *config.OperationAIConfig) {
		c.Temperature = &temp
	}), rec.factory(), testLogger())

	_, _, err := p.Generate(context.Background(), testKey, prompt("hi"))
	require.NoError(t, err)
	require.NotNil(t, stub.configs[0])
	require.NotNil(t, stub.configs[0].Temperature)
	assert.InDelta(t, 0.2, float64(*stub.configs[0].Temperature), 1e-6)
}

func TestGenerateSingleAttemptByDefault(t *testing.T) {
	upstream := genai.APIError{Code: 503, Message: "unavailable"}
	stub := newStub(errReply(upstream), textReply("never reached"))
	rec := &factoryRecorder{model: stub}
	obs := &recordingObserver{}
	p := NewGeminiProvider(config.OpAnalyze, operationConfig(nil), rec.factory(), testLogger(), WithObserver(obs))

	_, _, err := p.Generate(context.Background(), testKey, prompt("hi"))
	require.Error(t, err)
	assert.Equal(t, 1, stub.callCount())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAIServiceFailed))

	var apiErr genai.APIError
	assert.True(t, errors.As(err, &apiErr), "upstream error stays reachable")
	assert.Equal(t, 503, apiErr.Code)

	require.Len(t, obs.reports, 1)
	assert.False(t, obs.reports[0].Success)
	assert.Nil(t, obs.reports[0].Usage)
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	retries := 1
	stub := newStub(errReply(genai.APIError{Code: 503, Message: "unavailable"}), textReply("recovered"))
	rec := &factoryRecorder{model: stub}
	obs := &recordingObserver{}
	p := NewGeminiProvider(config.OpAnalyze, operationConfig(func(c *config.OperationAIConfig) {
		c.MaxRetries = &retries
	}), rec.factory(), testLogger(), WithObserver(obs))

	text, _, err := p.Generate(context.Background(), testKey, prompt("hi"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 2, stub.callCount())
	require.Len(t, obs.reports, 1)
	assert.Equal(t, 2, obs.reports[0].Attempts)
	assert.Len(t, rec.keys, 1, "one client per operation")
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	retries := 3
	stub := newStub(errReply(genai.APIError{Code: 400, Message: "API key not valid"}))
	rec := &factoryRecorder{model: stub}
	p := NewGeminiProvider(config.OpAnalyze, operationConfig(func(c *config.OperationAIConfig) {
		c.MaxRetries = &retries
	}), rec.factory(), testLogger())

	_, _, err := p.Generate(context.Background(), testKey, prompt("hi"))
	require.Error(t, err)
	assert.Equal(t, 1, stub.callCount())
	assert.Contains(t, err.Error(), "failed after retries")
}

func TestGenerateTimeout(t *testing.T) {
	timeout := 20 * time.Millisecond
	rec := &factoryRecorder{model: blockingModel{}}
	p := NewGeminiProvider(config.OpAnalyze, operationConfig(func(c *config.OperationAIConfig) {
		c.Timeout = &timeout
	}), rec.factory(), testLogger())

	start := time.Now()
	_, _, err := p.Generate(context.Background(), testKey, prompt("hi"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAITimeout), err.Error())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGenerateFactoryError(t *testing.T) {
	rec := &factoryRecorder{err: apperrors.NewValidationError(apperrors.ErrCodeMissingAPIKey, "API key is required", nil)}
	p := NewGeminiProvider(config.OpAnalyze, operationConfig(nil), rec.factory(), testLogger())

	_, _, err := p.Generate(context.Background(), "", prompt("hi"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingAPIKey))
}

func TestGeminiClientFactoryRequiresKey(t *testing.T) {
	_, err := NewGeminiClientFactory(nil)(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingAPIKey))
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "network error", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, want: true},
		{name: "genai 503", err: genai.APIError{Code: 503}, want: true},
		{name: "genai 429", err: genai.APIError{Code: 429}, want: true},
		{name: "genai 400", err: genai.APIError{Code: 400}, want: false},
		{name: "genai 403", err: genai.APIError{Code: 403}, want: false},
		{name: "wrapped genai 500", err: fmt.Errorf("call: %w", genai.APIError{Code: 500}), want: true},
		{name: "googleapi 502", err: &googleapi.Error{Code: 502}, want: true},
		{name: "googleapi 404", err: &googleapi.Error{Code: 404}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	first := backoffDelay(1)
	assert.GreaterOrEqual(t, first, time.Second)
	assert.Less(t, first, 1100*time.Millisecond+time.Millisecond)

	third := backoffDelay(3)
	assert.GreaterOrEqual(t, third, 4*time.Second)

	assert.Equal(t, maxBackoff, backoffDelay(10))
}

func TestGetModelInfo(t *testing.T) {
	t.Run("available", func(t *testing.T) {
		model := inspectingModel{
			stubModel: newStub(textReply("")),
			model:     &genai.Model{DisplayName: "Gemini 2.0 Flash", Version: "2.0"},
		}
		rec := &factoryRecorder{model: model}
		p := NewGeminiProvider(config.OpAnalyze, operationConfig(nil), rec.factory(), testLogger())

		info := p.GetModelInfo(context.Background(), testKey, time.Second)
		assert.True(t, info.Available)
		assert.Equal(t, "Gemini 2.0 Flash", info.DisplayName)
		assert.Equal(t, "analyze", info.Operation)
		assert.Empty(t, info.Error)
	})

	t.Run("lookup fails", func(t *testing.T) {
		model := inspectingModel{stubModel: newStub(textReply("")), err: errors.New("not found")}
		rec := &factoryRecorder{model: model}
		p := NewGeminiProvider(config.OpAnalyze, operationConfig(nil), rec.factory(), testLogger())

		info := p.GetModelInfo(context.Background(), testKey, 0)
		assert.False(t, info.Available)
		assert.Contains(t, info.Error, "not found")
	})

	t.Run("client without lookup", func(t *testing.T) {
		rec := &factoryRecorder{model: newStub(textReply(""))}
		p := NewGeminiProvider(config.OpAnalyze, operationConfig(nil), rec.factory(), testLogger())

		info := p.GetModelInfo(context.Background(), testKey, 0)
		assert.False(t, info.Available)
		assert.NotEmpty(t, info.Error)
	})
}

func TestDefaultConfigCallsModelOncePerOperation(t *testing.T) {
	stub := newStub(errReply(genai.APIError{Code: 503, Message: "overloaded"}))
	rec := &factoryRecorder{model: stub}
	p := NewGeminiProvider(config.OpAnalyze, operationConfig(nil), rec.factory(), testLogger())

	for range 10 {
		_, _, err := p.Generate(context.Background(), testKey, prompt("hi"))
		require.Error(t, err)
		assert.False(t, apperrors.HasCode(err, apperrors.ErrCodeCircuitOpen))
	}
	assert.Equal(t, 10, stub.callCount(), "every failed operation still made its single call")
	assert.Equal(t, map[string]any{"enabled": false}, p.GetCircuitBreakerStats())
}
