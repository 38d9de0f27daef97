package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"interviewprep/internal/errors"

	"github.com/ledongthuc/pdf"
)

// LocalPDFReader reads the text layer of a PDF without calling a model.
// Scanned documents without a text layer yield an empty string.
type LocalPDFReader struct{}

func NewLocalPDFReader() *LocalPDFReader { return &LocalPDFReader{} }

func (LocalPDFReader) NeedsCredential() bool { return false }

func (LocalPDFReader) ReadPDF(ctx context.Context, _ string, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeDocumentParse,
			fmt.Sprintf("failed to read pdf: %v", err), err)
	}

	var textBuilder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}
	return textBuilder.String(), nil
}
