package ai

import (
	"context"
	"sync"

	"interviewprep/internal/config"
	"interviewprep/internal/errors"

	"google.golang.org/genai"
)

type stubReply struct {
	text string
	err  error
}

// stubModel replays canned replies in order, repeating the last one
type stubModel struct {
	mu       sync.Mutex
	replies  []stubReply
	calls    int
	models   []string
	contents [][]*genai.Content
	configs  []*genai.GenerateContentConfig
}

func newStub(replies ...stubReply) *stubModel {
	return &stubModel{replies: replies}
}

func textReply(text string) stubReply { return stubReply{text: text} }

func errReply(err error) stubReply { return stubReply{err: err} }

func (s *stubModel) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := min(s.calls, len(s.replies)-1)
	s.calls++
	s.models = append(s.models, model)
	s.contents = append(s.contents, contents)
	s.configs = append(s.configs, cfg)

	reply := s.replies[idx]
	if reply.err != nil {
		return nil, reply.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(reply.text, genai.RoleModel)},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 5,
			TotalTokenCount:      15,
		},
	}, nil
}

func (s *stubModel) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// lastPrompt returns the text of the first part of the last request
func (s *stubModel) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.contents) == 0 {
		return ""
	}
	last := s.contents[len(s.contents)-1]
	return last[0].Parts[0].Text
}

type factoryRecorder struct {
	model GenerativeModel
	err   error
	keys  []string
}

func (f *factoryRecorder) factory() ClientFactory {
	return func(_ context.Context, apiKey string) (GenerativeModel, error) {
		f.keys = append(f.keys, apiKey)
		if f.err != nil {
			return nil, f.err
		}
		return f.model, nil
	}
}

func testLogger() *errors.Logger {
	return errors.NewNopLogger()
}

func newTestCoach(model GenerativeModel) (*Coach, *factoryRecorder) {
	rec := &factoryRecorder{model: model}
	return NewCoach(testConfig(), rec.factory(), testLogger()), rec
}

func testConfig() *config.Config {
	return config.Default()
}
