package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"interviewprep/internal/ai"
	appErrors "interviewprep/internal/errors"
	"interviewprep/internal/types"
)

// healthHandler reports circuit breaker state per operation. When the
// caller supplies a Gemini key, the configured models are looked up too.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "interviewprep",
		"version": s.Version,
	}

	overallHealthy := true
	breakers := make(map[string]any, len(s.providers))
	for _, p := range s.providers {
		breakers[string(p.Operation())] = p.GetCircuitBreakerStats()
		if !p.IsHealthy() {
			overallHealthy = false
		}
	}
	response["circuit_breakers"] = breakers

	if key := r.Header.Get(CredentialHeader); key != "" {
		models := s.checkAIModelsHealth(r.Context(), key)
		for _, info := range models {
			if !info.Available {
				overallHealthy = false
			}
		}
		response["ai_models"] = models
	}

	status := http.StatusOK
	if !overallHealthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, nil, status, response)
}

// checkAIModelsHealth looks up the model of every operation with apiKey
func (s *Server) checkAIModelsHealth(ctx context.Context, apiKey string) map[string]*ai.ModelInfo {
	models := make(map[string]*ai.ModelInfo, len(s.providers))
	for _, p := range s.providers {
		models[string(p.Operation())] = p.GetModelInfo(ctx, apiKey, s.HealthCheckTimeout)
	}
	return models
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "interviewprep",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"auth_enabled":           s.authEnabled(),
			"api_key_count":          s.apiKeyCount(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	breakers := make(map[string]any, len(s.providers))
	for _, p := range s.providers {
		breakers[string(p.Operation())] = p.GetCircuitBreakerStats()
	}
	response["circuit_breakers"] = breakers

	if s.promptWatcher != nil {
		response["prompt_watcher"] = s.promptWatcher.Status()
	}
	if s.keyWatcher != nil {
		response["key_watcher"] = s.keyWatcher.Status()
	}

	writeJSON(w, nil, http.StatusOK, response)
}

// rolesHandler lists the job roles in display order
func (s *Server) rolesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, nil, http.StatusOK, map[string]any{"roles": types.JobRoles})
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			"content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return bodyError(err, "failed to read request body")
	}
	defer func() { _ = r.Body.Close() }()

	if err := json.Unmarshal(body, v); err != nil {
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			fmt.Sprintf("failed to parse JSON: %v", err), err)
	}

	return nil
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, nil, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}
