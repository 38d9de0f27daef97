package server

import (
	"context"
	"sync"
	"time"

	"interviewprep/internal/ai"
	"interviewprep/internal/config"
	appErrors "interviewprep/internal/errors"
	"interviewprep/internal/observability"
	"interviewprep/internal/types"
)

// AnalyzeRequest is the JSON body of /analyze. Uploads use multipart
// fields of the same names plus a "file" part.
type AnalyzeRequest struct {
	APIKey         string `json:"apiKey"`
	Resume         string `json:"resume"`
	JobDescription string `json:"jobDescription"`
}

// QuestionsRequest is the JSON body of /questions and /prep
type QuestionsRequest struct {
	APIKey  string `json:"apiKey"`
	Resume  string `json:"resume"`
	Role    string `json:"role"`
	Company string `json:"company"`
}

// AnswersRequest is the JSON body of /answers
type AnswersRequest struct {
	APIKey    string   `json:"apiKey"`
	Resume    string   `json:"resume"`
	Role      string   `json:"role"`
	Company   string   `json:"company"`
	Questions []string `json:"questions"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Assistant runs the workflows behind the API endpoints
type Assistant interface {
	Extract(ctx context.Context, file *types.UploadedFile, credential string) types.ExtractionResult
	Analyze(ctx context.Context, credential string, in types.AnalyzeInput) (types.AnalysisResult, error)
	AnalyzeUpload(ctx context.Context, credential string, file *types.UploadedFile, jobDescription string) (types.AnalysisReport, error)
	Questions(ctx context.Context, credential string, in types.QuestionsInput) (types.QuestionSet, error)
	Answers(ctx context.Context, credential string, in types.AnswersInput) (types.AnswerList, error)
	PrepareInterview(ctx context.Context, credential string, in types.QuestionsInput) (types.InterviewPrep, error)
}

// ModelProvider reports the state of one model-backed operation
type ModelProvider interface {
	Operation() config.Operation
	GetModelInfo(ctx context.Context, apiKey string, timeout time.Duration) *ai.ModelInfo
	GetCircuitBreakerStats() map[string]any
	IsHealthy() bool
}

var _ ModelProvider = (*ai.GeminiProvider)(nil)

// Services are the collaborators the handlers call into
type Services struct {
	Assistant Assistant
	Providers []ModelProvider
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// API Authentication, replaced when Vault rotates the keys
	keysMu  sync.RWMutex
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// HealthCheckTimeout bounds each model lookup of /health
	HealthCheckTimeout time.Duration

	assistant     Assistant
	providers     []ModelProvider
	observability *observability.ObservabilityManager
	vault         SecretSource
	promptWatcher *PromptWatcher
	keyWatcher    *KeyWatcher

	Logger *appErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host               string
	Port               string
	Version            string
	APIKeys            []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxRequestSize     int64
	RateLimit          *config.RateLimitConfig
	HealthCheckTimeout time.Duration
	// Vault is optional and enables access key rotation
	Vault SecretSource
}

// NewServer creates a new Server instance. om may be nil, which disables
// tracing and metrics.
func NewServer(appCfg *config.Config, cfg ServerConfig, services Services, om *observability.ObservabilityManager, logger *appErrors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	healthTimeout := cfg.HealthCheckTimeout
	if healthTimeout <= 0 {
		healthTimeout = 10 * time.Second
	}

	s := &Server{
		Host:               cfg.Host,
		Port:               cfg.Port,
		Version:            cfg.Version,
		AppConfig:          appCfg,
		ReadTimeout:        cfg.ReadTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		IdleTimeout:        cfg.IdleTimeout,
		MaxRequestSize:     cfg.MaxRequestSize,
		RateLimit:          cfg.RateLimit,
		RateLimiter:        rateLimiter,
		HealthCheckTimeout: healthTimeout,
		assistant:          services.Assistant,
		providers:          services.Providers,
		observability:      om,
		vault:              cfg.Vault,
		Logger:             logger,
	}
	s.SetAPIKeys(cfg.APIKeys)
	return s
}

// SetAPIKeys replaces the accepted access keys. An empty list disables
// authentication.
func (s *Server) SetAPIKeys(keys []string) {
	apiKeyMap := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	s.keysMu.Lock()
	s.APIKeys = apiKeyMap
	s.keysMu.Unlock()
}

func (s *Server) authEnabled() bool {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.APIKeys) > 0
}

func (s *Server) validAPIKey(key string) bool {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return s.APIKeys[key]
}

func (s *Server) apiKeyCount() int {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.APIKeys)
}
