package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"interviewprep/internal/common"
	appErrors "interviewprep/internal/errors"
	"interviewprep/internal/types"
	"interviewprep/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CredentialHeader carries the caller's Gemini key. It takes precedence
// over an apiKey field in the body.
const CredentialHeader = "X-Gemini-Key"

// multipartMemory is the part of an upload kept in memory before spilling
// to temporary files
const multipartMemory = 32 << 20

func (s *Server) startSpan(r *http.Request, name string) (context.Context, trace.Span) {
	ctx, span := s.observability.Tracer("interviewprep.api").Start(r.Context(), name)
	span.SetAttributes(attribute.String("request.id", requestID(r.Context())))
	return ctx, span
}

func credential(r *http.Request, fromBody string) string {
	if key := strings.TrimSpace(r.Header.Get(CredentialHeader)); key != "" {
		return key
	}
	return strings.TrimSpace(fromBody)
}

// resolveRole leaves an empty role to the workflow's required field check
func resolveRole(raw string) (types.JobRole, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return common.ResolveJobRole(raw)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readUpload returns the "file" part of a multipart request, or nil when
// the request carries no file
func readUpload(r *http.Request) (*types.UploadedFile, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, bodyError(err, "failed to parse multipart form")
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, bodyError(err, "failed to read uploaded file")
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, bodyError(err, "failed to read uploaded file")
	}

	return &types.UploadedFile{
		Name:      header.Filename,
		MediaType: uploadMediaType(header.Header.Get("Content-Type"), header.Filename),
		Data:      data,
	}, nil
}

// uploadMediaType trusts the declared part type unless it is missing or
// generic, in which case the file name decides
func uploadMediaType(declared, filename string) types.MediaType {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
		return types.MediaType(mediaType)
	}
	return utils.MediaTypeForFile(filename)
}

func bodyError(err error, message string) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return appErrors.NewValidationError(appErrors.ErrCodeFileTooLarge,
			fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
	}
	return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, message, err)
}

// extractHandler turns an uploaded resume into text
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.extract")
	defer span.End()

	if !isMultipart(r) {
		s.fail(w, span, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			"content-type must be multipart/form-data", nil))
		return
	}
	upload, err := readUpload(r)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	if upload != nil {
		span.SetAttributes(
			attribute.String("request.media_type", string(upload.MediaType)),
			attribute.Int("request.file_size", len(upload.Data)))
	}

	result := s.assistant.Extract(ctx, upload, credential(r, r.FormValue("apiKey")))
	span.SetAttributes(attribute.Bool("success", result.OK))

	status := http.StatusOK
	if !result.OK {
		span.SetStatus(codes.Error, result.Message)
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, span, status, result)
}

// analyzeHandler scores a resume against a job description. A multipart
// request analyzes the uploaded file, a JSON request the given text.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.analyze")
	defer span.End()

	if isMultipart(r) {
		upload, err := readUpload(r)
		if err != nil {
			s.fail(w, span, err)
			return
		}
		span.SetAttributes(attribute.String("request.kind", "upload"))

		report, err := s.assistant.AnalyzeUpload(ctx,
			credential(r, r.FormValue("apiKey")), upload, r.FormValue("jobDescription"))
		if err != nil {
			s.fail(w, span, err)
			return
		}

		status := http.StatusOK
		if !report.Extraction.OK {
			span.SetStatus(codes.Error, report.Extraction.Message)
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, span, status, report)
		return
	}

	var req AnalyzeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.fail(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.String("request.kind", "text"),
		attribute.Int("request.resume_length", len(req.Resume)),
		attribute.Int("request.jd_length", len(req.JobDescription)))

	result, err := s.assistant.Analyze(ctx, credential(r, req.APIKey), types.AnalyzeInput{
		Resume:         req.Resume,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		s.fail(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("outcome", string(result.Status())))
	writeJSON(w, span, http.StatusOK, result)
}

func (s *Server) parseQuestionsRequest(r *http.Request) (string, types.QuestionsInput, error) {
	var req QuestionsRequest
	if err := parseJSONRequest(r, &req); err != nil {
		return "", types.QuestionsInput{}, err
	}
	role, err := resolveRole(req.Role)
	if err != nil {
		return "", types.QuestionsInput{}, err
	}
	return credential(r, req.APIKey), types.QuestionsInput{
		Resume:  req.Resume,
		Role:    role,
		Company: req.Company,
	}, nil
}

func (s *Server) questionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.questions")
	defer span.End()

	cred, in, err := s.parseQuestionsRequest(r)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("request.role", string(in.Role)))

	qs, err := s.assistant.Questions(ctx, cred, in)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.String("outcome", string(qs.Status())),
		attribute.Int("response.common_count", len(qs.CommonQuestions)),
		attribute.Int("response.resume_count", len(qs.ResumeQuestions)))
	writeJSON(w, span, http.StatusOK, qs)
}

func (s *Server) answersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.answers")
	defer span.End()

	var req AnswersRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.fail(w, span, err)
		return
	}
	role, err := resolveRole(req.Role)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.String("request.role", string(role)),
		attribute.Int("request.question_count", len(req.Questions)))

	answers, err := s.assistant.Answers(ctx, credential(r, req.APIKey), types.AnswersInput{
		Resume:    req.Resume,
		Role:      role,
		Company:   req.Company,
		Questions: req.Questions,
	})
	if err != nil {
		s.fail(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("outcome", string(answers.Status())))
	writeJSON(w, span, http.StatusOK, answers)
}

func (s *Server) prepHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.prep")
	defer span.End()

	cred, in, err := s.parseQuestionsRequest(r)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("request.role", string(in.Role)))

	prep, err := s.assistant.PrepareInterview(ctx, cred, in)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.Int("response.common_count", len(prep.Common)),
		attribute.Int("response.resume_count", len(prep.Resume)))
	writeJSON(w, span, http.StatusOK, prep)
}

// fail records err on the span and writes it with the status its type implies
func (s *Server) fail(w http.ResponseWriter, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	status := statusFor(err)
	resp := ErrorResponse{Error: http.StatusText(status), Message: err.Error()}
	if appErr, ok := appErrors.AsAppError(err); ok {
		span.SetAttributes(attribute.String("error.type", string(appErr.Type)))
		resp.Message = appErr.Message
		resp.Code = appErr.Code
	}
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed")
	}
	writeJSON(w, nil, status, resp)
}

func statusFor(err error) int {
	appErr, ok := appErrors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case appErr.Code == appErrors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case appErr.Type == appErrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case appErr.Code == appErrors.ErrCodeCircuitOpen:
		return http.StatusServiceUnavailable
	case appErr.Code == appErrors.ErrCodeAITimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, span trace.Span, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && span != nil {
		span.RecordError(err)
	}
}
