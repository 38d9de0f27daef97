// Package extract turns uploaded resume files into plain text.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"interviewprep/internal/errors"
	"interviewprep/internal/types"
	"interviewprep/internal/utils"
)

// User-facing extraction messages
const (
	MsgNoFile          = "No file uploaded"
	MsgResumeExtracted = "Successfully extracted text from your resume!"
	MsgDOCXExtracted   = "Successfully extracted text from your DOCX file!"
	MsgUnsupportedType = "Unsupported file type: "
	MsgErrorPrefix     = "Error processing file: "
	MsgCredentialPDF   = "API key is required to process PDF files"
	MsgEmptyPDF        = "Could not extract text from PDF"
)

// PDFReader turns PDF bytes into text
type PDFReader interface {
	ReadPDF(ctx context.Context, credential string, data []byte) (string, error)
}

// credentialFree is implemented by PDF readers that run locally
type credentialFree interface {
	NeedsCredential() bool
}

// Observer is told about every finished extraction
type Observer interface {
	ObserveExtraction(ctx context.Context, mediaType types.MediaType, ok bool)
}

// Extractor dispatches on the declared media type. It never panics and
// never returns an error; failures are reported in the result message.
type Extractor struct {
	pdf         PDFReader
	maxFileSize int64
	observer    Observer
	logger      *errors.Logger
}

// Option customizes an Extractor
type Option func(*Extractor)

// WithMaxFileSize rejects files larger than n bytes. Zero disables the check.
func WithMaxFileSize(n int64) Option {
	return func(e *Extractor) { e.maxFileSize = n }
}

func WithObserver(o Observer) Option {
	return func(e *Extractor) { e.observer = o }
}

func New(pdf PDFReader, logger *errors.Logger, opts ...Option) *Extractor {
	e := &Extractor{pdf: pdf, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the text of file. credential is only used for PDFs.
func (e *Extractor) Extract(ctx context.Context, file *types.UploadedFile, credential string) (result types.ExtractionResult) {
	if file == nil {
		return failure(MsgNoFile)
	}

	defer func() {
		if r := recover(); r != nil {
			err := errors.NewExtractionError(errors.ErrCodeDocumentParse, "extraction panicked", fmt.Errorf("%v", r))
			e.logger.LogError(err, "Recovered from panic during extraction", "file", file.Name)
			result = failure(MsgErrorPrefix + fmt.Sprint(r))
		}
		if e.observer != nil {
			e.observer.ObserveExtraction(ctx, file.MediaType, result.OK)
		}
	}()

	if e.maxFileSize > 0 && int64(len(file.Data)) > e.maxFileSize {
		err := errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("file is %s, the limit is %s",
				utils.FormatFileSize(int64(len(file.Data))), utils.FormatFileSize(e.maxFileSize)), nil)
		return e.fail(err, file)
	}

	switch file.MediaType {
	case types.MediaTypeText:
		text, err := decodeText(file.Data)
		if err != nil {
			return e.fail(err, file)
		}
		return success(text, MsgResumeExtracted)

	case types.MediaTypePDF:
		text, err := e.readPDF(ctx, credential, file.Data)
		if err != nil {
			return e.fail(err, file)
		}
		return success(text, MsgResumeExtracted)

	case types.MediaTypeDOCX:
		text, err := DOCXText(file.Data)
		if err != nil {
			return e.fail(err, file)
		}
		return success(text, MsgDOCXExtracted)

	default:
		e.logger.Warn("Rejected upload with unsupported media type",
			"file", file.Name,
			"media_type", string(file.MediaType))
		return failure(MsgUnsupportedType + string(file.MediaType))
	}
}

func (e *Extractor) readPDF(ctx context.Context, credential string, data []byte) (string, error) {
	if e.pdf == nil {
		return "", errors.NewConfigError(errors.ErrCodeInvalidConfig, "no PDF backend configured", nil)
	}
	needsCredential := true
	if cf, ok := e.pdf.(credentialFree); ok {
		needsCredential = cf.NeedsCredential()
	}
	if needsCredential && credential == "" {
		return "", errors.NewValidationError(errors.ErrCodeMissingAPIKey, MsgCredentialPDF, nil)
	}

	text, err := e.pdf.ReadPDF(ctx, credential, data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.NewExtractionError(errors.ErrCodeEmptyExtraction, MsgEmptyPDF, nil)
	}
	return text, nil
}

func (e *Extractor) fail(err error, file *types.UploadedFile) types.ExtractionResult {
	e.logger.LogError(err, "File extraction failed",
		"file", file.Name,
		"media_type", string(file.MediaType),
		"size", len(file.Data))
	return failure(MsgErrorPrefix + failureReason(err))
}

// failureReason prefers the AppError message over its wrapped chain
func failureReason(err error) string {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return err.Error()
	}
	if appErr.Type == errors.ErrorTypeAI && appErr.Cause != nil {
		return appErr.Cause.Error()
	}
	return appErr.Message
}

func decodeText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		offset := 0
		for offset < len(data) {
			r, size := utf8.DecodeRune(data[offset:])
			if r == utf8.RuneError && size <= 1 {
				break
			}
			offset += size
		}
		return "", errors.NewValidationError(errors.ErrCodeInvalidEncoding,
			fmt.Sprintf("'utf-8' codec can't decode byte 0x%02x in position %d", data[offset], offset), nil)
	}
	return string(data), nil
}

func success(text, message string) types.ExtractionResult {
	return types.ExtractionResult{Text: text, Message: message, OK: true}
}

func failure(message string) types.ExtractionResult {
	return types.ExtractionResult{Message: message}
}
