package ai

import (
	"context"
	"net/http"
	"time"

	"interviewprep/internal/errors"

	"google.golang.org/genai"
)

// GenerativeModel is the part of the Gemini models service this package uses
type GenerativeModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ModelInspector is implemented by clients that can describe a model
type ModelInspector interface {
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// ClientFactory builds a client bound to one caller-supplied credential.
// A new client is created for every operation so no key is ever shared.
type ClientFactory func(ctx context.Context, apiKey string) (GenerativeModel, error)

// NewGeminiClientFactory returns a factory creating Gemini API clients.
// httpClient may be nil.
func NewGeminiClientFactory(httpClient *http.Client) ClientFactory {
	return func(ctx context.Context, apiKey string) (GenerativeModel, error) {
		if apiKey == "" {
			return nil, errors.NewValidationError(errors.ErrCodeMissingAPIKey, "API key is required", nil)
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
		}
		return client.Models, nil
	}
}

// TokenUsage reports the tokens consumed by one call
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// CallReport describes one finished model call
type CallReport struct {
	Operation string
	Model     string
	Success   bool
	Attempts  int
	Duration  time.Duration
	Usage     *TokenUsage
	Err       error
}

// CallObserver receives a report after every model call, successful or not
type CallObserver interface {
	ObserveCall(ctx context.Context, report CallReport)
}
