package formatters

import (
	"fmt"
	"strings"

	"interviewprep/internal/types"
)

// ExtractionTextFormatter prints the status line followed by the text
type ExtractionTextFormatter struct{}

func (f *ExtractionTextFormatter) Format(data any) (string, error) {
	result, err := expect[types.ExtractionResult](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(result.Message)
	output.WriteString("\n")
	if result.OK {
		output.WriteString("\n")
		output.WriteString(result.Text)
		if !strings.HasSuffix(result.Text, "\n") {
			output.WriteString("\n")
		}
	}
	return output.String(), nil
}

func (f *ExtractionTextFormatter) SupportedType() string { return "ExtractionResult" }

// AnalysisTextFormatter prints both scores and the feedback
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	result, err := expect[types.AnalysisResult](data)
	if err != nil {
		return "", err
	}
	return analysisText(result), nil
}

func analysisText(result types.AnalysisResult) string {
	var output strings.Builder
	output.WriteString("=== 이력서 분석 ===\n")
	output.WriteString(fmt.Sprintf("합격 가능성: %s\n", percent(result.Probability)))
	output.WriteString(fmt.Sprintf("이력서-직무 적합도: %s\n\n", percent(result.MatchRate)))
	output.WriteString("=== 상세 피드백 ===\n")
	output.WriteString(feedbackOrDefault(result.Feedback))
	output.WriteString("\n")
	return output.String()
}

func (f *AnalysisTextFormatter) SupportedType() string { return "AnalysisResult" }

// ReportTextFormatter prints the extraction status and, if present, the analysis
type ReportTextFormatter struct{}

func (f *ReportTextFormatter) Format(data any) (string, error) {
	report, err := expect[types.AnalysisReport](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(report.Extraction.Message)
	output.WriteString("\n")
	if report.Analysis != nil {
		output.WriteString("\n")
		output.WriteString(analysisText(*report.Analysis))
	}
	return output.String(), nil
}

func (f *ReportTextFormatter) SupportedType() string { return "AnalysisReport" }

// QuestionsTextFormatter prints both question lists
type QuestionsTextFormatter struct{}

func (f *QuestionsTextFormatter) Format(data any) (string, error) {
	qs, err := expect[types.QuestionSet](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	writeTextList(&output, "공통 질문", qs.CommonQuestions)
	output.WriteString("\n")
	writeTextList(&output, "이력서 기반 질문", qs.ResumeQuestions)
	return output.String(), nil
}

func writeTextList(output *strings.Builder, title string, items []string) {
	output.WriteString(fmt.Sprintf("=== %s ===\n", title))
	if len(items) == 0 {
		output.WriteString(NoQuestions)
		output.WriteString("\n")
		return
	}
	for i, item := range items {
		output.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
	}
}

func (f *QuestionsTextFormatter) SupportedType() string { return "QuestionSet" }

// AnswersTextFormatter prints each question with its answer
type AnswersTextFormatter struct{}

func (f *AnswersTextFormatter) Format(data any) (string, error) {
	aq, err := expect[AnsweredQuestions](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	writeTextQA(&output, "모범답안", pairs(aq.Questions, aq.Answers.Answers))
	return output.String(), nil
}

func (f *AnswersTextFormatter) SupportedType() string { return "AnsweredQuestions" }

// PrepTextFormatter prints the top questions of both lists with answers
type PrepTextFormatter struct{}

func (f *PrepTextFormatter) Format(data any) (string, error) {
	prep, err := expect[types.InterviewPrep](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("직무: %s\n", prep.Role))
	if prep.Company != "" {
		output.WriteString(fmt.Sprintf("회사/팀: %s\n", prep.Company))
	}
	output.WriteString("\n")
	writeTextQA(&output, "공통 질문 (Top 5)", prep.Common)
	output.WriteString("\n")
	writeTextQA(&output, "이력서 기반 질문 (Top 5)", prep.Resume)
	return output.String(), nil
}

func writeTextQA(output *strings.Builder, title string, items []types.QA) {
	output.WriteString(fmt.Sprintf("=== %s ===\n", title))
	if len(items) == 0 {
		output.WriteString(NoQuestions)
		output.WriteString("\n")
		return
	}
	for i, qa := range items {
		output.WriteString(fmt.Sprintf("%d. %s\n", i+1, qa.Question))
		output.WriteString(fmt.Sprintf("   %s\n", answerOrDefault(qa.Answer)))
	}
}

func (f *PrepTextFormatter) SupportedType() string { return "InterviewPrep" }

func pairs(questions, answers []string) []types.QA {
	out := make([]types.QA, len(questions))
	for i, q := range questions {
		out[i].Question = q
		if i < len(answers) {
			out[i].Answer = answers[i]
		}
	}
	return out
}
