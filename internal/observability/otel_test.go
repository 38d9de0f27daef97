package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"interviewprep/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetObservabilityConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Observability.Tracing.SampleRate = 0.25

	obs := GetObservabilityConfig(cfg, "1.2.3")
	assert.Equal(t, "interviewprep", obs.ServiceName)
	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.Equal(t, 0.25, obs.SampleRate)
	assert.True(t, obs.Prometheus.Enabled)
	assert.Equal(t, "/metrics", obs.Prometheus.Endpoint)

	cfg.Observability.ServiceVersion = "9.9.9"
	assert.Equal(t, "9.9.9", GetObservabilityConfig(cfg, "1.2.3").ServiceVersion)

	assert.False(t, ForCLI(obs).Prometheus.Enabled)
	assert.True(t, obs.Prometheus.Enabled, "ForCLI works on a copy")
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)

	assert.Nil(t, om.Metrics())

	called := false
	handler := om.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)

	_, span := om.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestEnabledManagerWithoutExporters(t *testing.T) {
	cfg := config.Default()
	cfg.Observability.Prometheus.Enabled = false

	om, err := NewObservabilityManager(GetObservabilityConfig(cfg, "test"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	require.NotNil(t, om.Metrics())

	_, span := om.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	rec := httptest.NewRecorder()
	om.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
