package ai

import (
	"context"
	"testing"

	"interviewprep/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiPDFReader(t *testing.T) {
	model := newStub(textReply("Jane Doe\nGo developer"))
	rec := &factoryRecorder{model: model}
	cfg := testConfig()
	reader := NewGeminiPDFReader(cfg, rec.factory(), testLogger())

	text, err := reader.ReadPDF(context.Background(), "AIza-key", []byte("%PDF-1.7 ..."))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo developer", text)

	assert.Equal(t, 1, model.callCount())
	assert.Equal(t, []string{"AIza-key"}, rec.keys)
	assert.Equal(t, cfg.GetOperationConfig(config.OpExtract).Model, model.models[0])
	assert.Equal(t, config.OpExtract, reader.Provider().Operation())

	require.Len(t, model.contents[0], 1)
	parts := model.contents[0][0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "application/pdf", parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte("%PDF-1.7 ..."), parts[0].InlineData.Data)
	assert.Equal(t, PDFExtractionInstruction, parts[1].Text)
}

func TestGeminiPDFReaderUsesCustomInstruction(t *testing.T) {
	model := newStub(textReply("text"))
	rec := &factoryRecorder{model: model}
	cfg := testConfig()
	cfg.Prompts().Set(config.OpExtract, "Only the text, please.")
	reader := NewGeminiPDFReader(cfg, rec.factory(), testLogger())

	_, err := reader.ReadPDF(context.Background(), "AIza-key", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "Only the text, please.", model.contents[0][0].Parts[1].Text)
}
