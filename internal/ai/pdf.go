package ai

import (
	"context"

	"interviewprep/internal/config"
	"interviewprep/internal/errors"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// GeminiPDFReader extracts resume text from PDF bytes with a multimodal model
type GeminiPDFReader struct {
	provider    *GeminiProvider
	instruction func() string
}

// NewGeminiPDFReader wires the extract operation of cfg
func NewGeminiPDFReader(cfg *config.Config, factory ClientFactory, logger *errors.Logger, opts ...ProviderOption) *GeminiPDFReader {
	return &GeminiPDFReader{
		provider: NewGeminiProvider(config.OpExtract, cfg.GetOperationConfig(config.OpExtract), factory, logger, opts...),
		instruction: func() string {
			return resolvePrompt(cfg.Prompts().Get(config.OpExtract), DefaultPrompts[config.OpExtract])
		},
	}
}

// ReadPDF performs exactly one model call. The returned text is untrimmed;
// the caller decides what counts as empty.
func (r *GeminiPDFReader) ReadPDF(ctx context.Context, credential string, data []byte) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, "application/pdf"),
			genai.NewPartFromText(r.instruction()),
		}, genai.RoleUser),
	}

	text, _, err := r.provider.Generate(ctx, credential, contents,
		attribute.Int("input.pdf_bytes", len(data)))
	return text, err
}

func (r *GeminiPDFReader) Provider() *GeminiProvider { return r.provider }
