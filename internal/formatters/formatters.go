package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"interviewprep/internal/types"
)

// Empty-state texts
const (
	NoQuestions = "생성된 질문이 없습니다."
	NoAnswer    = "모범답안을 생성하지 못했습니다. 다시 시도해 주세요."
	NoFeedback  = "피드백이 없습니다."
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry is the registry used by the CLI output handler
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	for _, f := range []Formatter{
		&ExtractionTextFormatter{},
		&AnalysisTextFormatter{},
		&ReportTextFormatter{},
		&QuestionsTextFormatter{},
		&AnswersTextFormatter{},
		&PrepTextFormatter{},
	} {
		registry.RegisterFormatter("text", f.SupportedType(), f)
	}
	for _, f := range []Formatter{
		&ExtractionMarkdownFormatter{},
		&AnalysisMarkdownFormatter{},
		&ReportMarkdownFormatter{},
		&QuestionsMarkdownFormatter{},
		&AnswersMarkdownFormatter{},
		&PrepMarkdownFormatter{},
	} {
		registry.RegisterFormatter("markdown", f.SupportedType(), f)
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ExtractionResult:
		return "ExtractionResult"
	case types.AnalysisResult:
		return "AnalysisResult"
	case types.AnalysisReport:
		return "AnalysisReport"
	case types.QuestionSet:
		return "QuestionSet"
	case AnsweredQuestions:
		return "AnsweredQuestions"
	case types.InterviewPrep:
		return "InterviewPrep"
	default:
		return "any"
	}
}

// AnsweredQuestions is an AnswerList shown next to the questions it answers
type AnsweredQuestions struct {
	Questions []string         `json:"questions"`
	Answers   types.AnswerList `json:"result"`
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	if aq, ok := data.(AnsweredQuestions); ok {
		data = aq.Answers
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// percent renders a score the way the analysis page shows it
func percent(s types.Score) string {
	if s.IsNumeric() {
		return s.String() + "%"
	}
	return s.String()
}

func feedbackOrDefault(feedback string) string {
	if strings.TrimSpace(feedback) == "" {
		return NoFeedback
	}
	return feedback
}

func answerOrDefault(answer string) string {
	if strings.TrimSpace(answer) == "" {
		return NoAnswer
	}
	return strings.TrimSpace(answer)
}

func expect[T any](data any) (T, error) {
	v, ok := data.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("expected %T, got %T", zero, data)
	}
	return v, nil
}
