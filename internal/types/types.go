package types

// MediaType is the declared content type of an uploaded file
type MediaType string

const (
	MediaTypeText MediaType = "text/plain"
	MediaTypePDF  MediaType = "application/pdf"
	MediaTypeDOCX MediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// UploadedFile is a resume as handed over by the CLI or HTTP layer.
// Data is never modified by this module.
type UploadedFile struct {
	Name      string    `json:"name"`
	MediaType MediaType `json:"mediaType"`
	Data      []byte    `json:"-"`
}

// ExtractionResult is either extracted text with a success message, or an
// empty text with a failure reason.
type ExtractionResult struct {
	Text    string `json:"text"`
	Message string `json:"message"`
	OK      bool   `json:"ok"`
}

// AnalysisResult is the resume vs. job description assessment.
type AnalysisResult struct {
	Probability Score  `json:"probability"`
	MatchRate   Score  `json:"match_rate"`
	Feedback    string `json:"feedback"`
	Outcome     `json:"-"`
}

// AnalysisReport is the outcome of analyzing an uploaded resume. Analysis
// is nil when the file could not be turned into text.
type AnalysisReport struct {
	Extraction ExtractionResult `json:"extraction"`
	Analysis   *AnalysisResult  `json:"analysis,omitempty"`
}

// QuestionSet holds the two generated interview question lists
type QuestionSet struct {
	CommonQuestions []string `json:"common_questions"`
	ResumeQuestions []string `json:"resume_questions"`
	Outcome         `json:"-"`
}

// AnswerList is positionally aligned with the questions it answers
type AnswerList struct {
	Answers []string `json:"answers"`
	Outcome `json:"-"`
}

// QA pairs a question with its model answer
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// InterviewPrep is the combined questions-and-answers package for one role
type InterviewPrep struct {
	Role    JobRole `json:"role"`
	Company string  `json:"company"`
	Common  []QA    `json:"common"`
	Resume  []QA    `json:"resume"`
}

// AnalyzeInput is the input of the resume analysis operation
type AnalyzeInput struct {
	Resume         string `json:"resume"`
	JobDescription string `json:"jobDescription"`
}

// QuestionsInput is the input of the question generation operation
type QuestionsInput struct {
	Resume  string  `json:"resume"`
	Role    JobRole `json:"role"`
	Company string  `json:"company"`
}

// AnswersInput is the input of the model answer generation operation
type AnswersInput struct {
	Resume    string   `json:"resume"`
	Role      JobRole  `json:"role"`
	Company   string   `json:"company"`
	Questions []string `json:"questions"`
}
