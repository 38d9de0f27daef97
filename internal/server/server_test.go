package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"interviewprep/internal/ai"
	"interviewprep/internal/assistant"
	"interviewprep/internal/config"
	appErrors "interviewprep/internal/errors"
	"interviewprep/internal/extract"
	"interviewprep/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	displayOutput = io.Discard
}

type fakeCoach struct {
	mu          sync.Mutex
	analysis    types.AnalysisResult
	questions   types.QuestionSet
	roles       []types.JobRole
	answerCalls [][]string
}

func (f *fakeCoach) AnalyzeResume(_ context.Context, _, _, _ string) types.AnalysisResult {
	return f.analysis
}

func (f *fakeCoach) GenerateInterviewQuestions(_ context.Context, _, _ string, role types.JobRole, _ string) types.QuestionSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, role)
	return f.questions
}

func (f *fakeCoach) GenerateModelAnswers(_ context.Context, _, _ string, _ types.JobRole, _ string, questions []string) types.AnswerList {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answerCalls = append(f.answerCalls, questions)
	answers := make([]string, len(questions))
	for i, q := range questions {
		answers[i] = "A:" + q
	}
	return types.AnswerList{Answers: answers}
}

type fakeProvider struct {
	op        config.Operation
	healthy   bool
	available bool
	keys      []string
}

func (p *fakeProvider) Operation() config.Operation { return p.op }

func (p *fakeProvider) GetModelInfo(_ context.Context, apiKey string, _ time.Duration) *ai.ModelInfo {
	p.keys = append(p.keys, apiKey)
	return &ai.ModelInfo{Operation: string(p.op), Name: "gemini-2.0-flash", Available: p.available}
}

func (p *fakeProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{"enabled": true, "state": "closed"}
}

func (p *fakeProvider) IsHealthy() bool { return p.healthy }

type testEnv struct {
	server   *Server
	coach    *fakeCoach
	provider *fakeProvider
}

func newTestEnv(t *testing.T, mutate func(*ServerConfig)) *testEnv {
	t.Helper()
	logger := appErrors.NewNopLogger()
	coach := &fakeCoach{
		analysis: types.AnalysisResult{
			Probability: types.NumberScore(72),
			MatchRate:   types.NumberScore(80),
			Feedback:    "좋습니다",
		},
		questions: types.QuestionSet{
			CommonQuestions: []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7"},
			ResumeQuestions: []string{"r1", "r2"},
		},
	}
	provider := &fakeProvider{op: config.OpAnalyze, healthy: true, available: true}

	cfg := ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		Version:        "test",
		MaxRequestSize: 1 << 20,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	svc := assistant.New(extract.New(nil, logger), coach, nil, logger)
	s := NewServer(config.Default(), cfg, Services{
		Assistant: svc,
		Providers: []ModelProvider{provider},
	}, nil, logger)
	t.Cleanup(s.cleanupRateLimiter)

	return &testEnv{server: s, coach: coach, provider: provider}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, path, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRolesAndRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/roles", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string][]string](t, rec)
	require.Len(t, body["roles"], 10)
	assert.Equal(t, "IT/소프트웨어 개발", body["roles"][0])

	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	req.Header.Set(RequestIDHeader, "caller-id")
	assert.Equal(t, "caller-id", env.do(req).Header().Get(RequestIDHeader))
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestExtractEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("plain text upload", func(t *testing.T) {
		rec := env.do(uploadRequest(t, "/extract", "resume.txt", []byte("Go developer"), nil))
		require.Equal(t, http.StatusOK, rec.Code)

		result := decode[types.ExtractionResult](t, rec)
		assert.True(t, result.OK)
		assert.Equal(t, "Go developer", result.Text)
		assert.Equal(t, extract.MsgResumeExtracted, result.Message)
	})

	t.Run("unsupported type", func(t *testing.T) {
		rec := env.do(uploadRequest(t, "/extract", "resume.hwp", []byte("x"), nil))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		result := decode[types.ExtractionResult](t, rec)
		assert.False(t, result.OK)
		assert.Equal(t, extract.MsgUnsupportedType+"application/octet-stream", result.Message)
	})

	t.Run("no file part", func(t *testing.T) {
		rec := env.do(uploadRequest(t, "/extract", "", nil, map[string]string{"apiKey": "k"}))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, extract.MsgNoFile, decode[types.ExtractionResult](t, rec).Message)
	})

	t.Run("json body is rejected", func(t *testing.T) {
		rec := env.do(jsonRequest(t, "/extract", map[string]string{}))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, appErrors.ErrCodeInvalidRequest, decode[ErrorResponse](t, rec).Code)
	})
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("json text", func(t *testing.T) {
		rec := env.do(jsonRequest(t, "/analyze", AnalyzeRequest{
			APIKey:         "gemini-key",
			Resume:         "resume",
			JobDescription: "jd",
		}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"probability":72,"match_rate":80,"feedback":"좋습니다"}`, rec.Body.String())
	})

	t.Run("missing credential", func(t *testing.T) {
		rec := env.do(jsonRequest(t, "/analyze", AnalyzeRequest{Resume: "resume", JobDescription: "jd"}))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decode[ErrorResponse](t, rec)
		assert.Equal(t, assistant.MsgAnalyzeFieldsRequired, resp.Message)
		assert.Equal(t, appErrors.ErrCodeInvalidRequest, resp.Code)
	})

	t.Run("upload with header credential", func(t *testing.T) {
		req := uploadRequest(t, "/analyze", "resume.txt", []byte("Go developer"),
			map[string]string{"jobDescription": "Backend engineer"})
		req.Header.Set(CredentialHeader, "gemini-key")

		rec := env.do(req)
		require.Equal(t, http.StatusOK, rec.Code)

		report := decode[map[string]json.RawMessage](t, rec)
		assert.JSONEq(t, `{"text":"Go developer","message":"`+extract.MsgResumeExtracted+`","ok":true}`, string(report["extraction"]))
		assert.JSONEq(t, `{"probability":72,"match_rate":80,"feedback":"좋습니다"}`, string(report["analysis"]))
	})

	t.Run("upload that cannot be extracted", func(t *testing.T) {
		req := uploadRequest(t, "/analyze", "resume.hwp", []byte("x"),
			map[string]string{"jobDescription": "jd", "apiKey": "gemini-key"})

		rec := env.do(req)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		report := decode[map[string]json.RawMessage](t, rec)
		assert.NotContains(t, report, "analysis")
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		rec := env.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestQuestionsEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		wantCode int
		wantRole types.JobRole
		errCode  string
	}{
		{name: "role by name", role: "마케팅", wantCode: http.StatusOK, wantRole: types.RoleMarketing},
		{name: "role by index", role: "1", wantCode: http.StatusOK, wantRole: types.RoleSoftware},
		{name: "unknown role", role: "astronaut", wantCode: http.StatusBadRequest, errCode: appErrors.ErrCodeInvalidJobRole},
		{name: "missing role", role: "", wantCode: http.StatusBadRequest, errCode: appErrors.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := env.do(jsonRequest(t, "/questions", QuestionsRequest{
				APIKey: "gemini-key",
				Resume: "resume",
				Role:   tt.role,
			}))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, decode[ErrorResponse](t, rec).Code)
				assert.Empty(t, env.coach.roles)
				return
			}
			assert.Equal(t, []types.JobRole{tt.wantRole}, env.coach.roles)
			qs := decode[types.QuestionSet](t, rec)
			assert.Len(t, qs.CommonQuestions, 7)
		})
	}
}

func TestAnswersEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	req := jsonRequest(t, "/answers", AnswersRequest{
		Resume:    "resume",
		Role:      "인사(HR)",
		Questions: []string{"q1", "q2"},
	})
	req.Header.Set(CredentialHeader, "gemini-key")

	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"answers":["A:q1","A:q2"]}`, rec.Body.String())
}

func TestPrepEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(jsonRequest(t, "/prep", QuestionsRequest{
		APIKey:  "gemini-key",
		Resume:  "resume",
		Role:    "IT/소프트웨어 개발",
		Company: "ACME",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	prep := decode[types.InterviewPrep](t, rec)
	assert.Equal(t, types.RoleSoftware, prep.Role)
	assert.Equal(t, "ACME", prep.Company)
	require.Len(t, prep.Common, assistant.TopQuestions)
	assert.Equal(t, types.QA{Question: "c1", Answer: "A:c1"}, prep.Common[0])
	assert.Len(t, prep.Resume, 2)
	assert.Len(t, env.coach.answerCalls, 2)
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) { c.APIKeys = []string{"secret-access-key"} })
	body := AnalyzeRequest{APIKey: "gemini-key", Resume: "resume", JobDescription: "jd"}

	tests := []struct {
		name     string
		setup    func(*http.Request)
		wantCode int
	}{
		{name: "missing key", setup: func(*http.Request) {}, wantCode: http.StatusUnauthorized},
		{name: "wrong key", setup: func(r *http.Request) { r.Header.Set("X-API-Key", "nope") }, wantCode: http.StatusUnauthorized},
		{name: "header key", setup: func(r *http.Request) { r.Header.Set("X-API-Key", "secret-access-key") }, wantCode: http.StatusOK},
		{name: "bearer token", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-access-key") }, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(t, "/analyze", body)
			tt.setup(req)
			assert.Equal(t, tt.wantCode, env.do(req).Code)
		})
	}

	t.Run("health stays public", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	})

	t.Run("rotated keys take effect", func(t *testing.T) {
		env.server.SetAPIKeys([]string{"rotated-access-key"})

		req := jsonRequest(t, "/analyze", body)
		req.Header.Set("X-API-Key", "secret-access-key")
		assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)

		req = jsonRequest(t, "/analyze", body)
		req.Header.Set("X-API-Key", "rotated-access-key")
		assert.Equal(t, http.StatusOK, env.do(req).Code)
	})
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) {
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})
	body := AnalyzeRequest{APIKey: "gemini-key", Resume: "resume", JobDescription: "jd"}

	first := jsonRequest(t, "/analyze", body)
	first.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, http.StatusOK, env.do(first).Code)

	second := jsonRequest(t, "/analyze", body)
	second.RemoteAddr = "10.0.0.1:1234"
	rec := env.do(second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded", decode[ErrorResponse](t, rec).Error)

	other := jsonRequest(t, "/analyze", body)
	other.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, env.do(other).Code)
}

func TestRequestSizeLimit(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) { c.MaxRequestSize = 64 })
	rec := env.do(jsonRequest(t, "/analyze", AnalyzeRequest{
		APIKey:         "gemini-key",
		Resume:         strings.Repeat("x", 200),
		JobDescription: "jd",
	}))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, appErrors.ErrCodeFileTooLarge, decode[ErrorResponse](t, rec).Code)
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("breakers only without a credential", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[map[string]any](t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.NotContains(t, body, "ai_models")
		assert.Empty(t, env.provider.keys)
	})

	t.Run("model lookup with a credential", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.provider.available = false

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(CredentialHeader, "gemini-key")
		rec := env.do(req)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		body := decode[map[string]any](t, rec)
		assert.Equal(t, "degraded", body["status"])
		assert.Contains(t, body["ai_models"], "analyze")
		assert.Equal(t, []string{"gemini-key"}, env.provider.keys)
	})

	t.Run("open breaker degrades", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.provider.healthy = false
		rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) {
		c.APIKeys = []string{"a", "b", ""}
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 30, BurstCapacity: 5, ByIP: true}
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	server := body["server"].(map[string]any)
	assert.Equal(t, true, server["auth_enabled"])
	assert.Equal(t, float64(2), server["api_key_count"])
	assert.Equal(t, float64(5), body["rate_limiting"].(map[string]any)["burst_capacity"])
	assert.Contains(t, body["circuit_breakers"], "analyze")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Serve(ctx, listener) }()

	url := "http://" + listener.Addr().String() + "/roles"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
