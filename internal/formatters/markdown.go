package formatters

import (
	"fmt"
	"strings"

	"interviewprep/internal/types"
)

type ExtractionMarkdownFormatter struct{}

func (f *ExtractionMarkdownFormatter) Format(data any) (string, error) {
	result, err := expect[types.ExtractionResult](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# Resume Text\n\n")
	output.WriteString(fmt.Sprintf("> %s\n", result.Message))
	if result.OK {
		output.WriteString("\n```\n")
		output.WriteString(strings.TrimRight(result.Text, "\n"))
		output.WriteString("\n```\n")
	}
	return output.String(), nil
}

func (f *ExtractionMarkdownFormatter) SupportedType() string { return "ExtractionResult" }

type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	result, err := expect[types.AnalysisResult](data)
	if err != nil {
		return "", err
	}
	var output strings.Builder
	output.WriteString("# 📄 이력서 & 채용 공고 분석\n\n")
	writeAnalysisMarkdown(&output, result)
	return output.String(), nil
}

func writeAnalysisMarkdown(output *strings.Builder, result types.AnalysisResult) {
	output.WriteString("| 항목 | 결과 |\n")
	output.WriteString("|---|---|\n")
	output.WriteString(fmt.Sprintf("| ✅ 합격 가능성 | %s |\n", percent(result.Probability)))
	output.WriteString(fmt.Sprintf("| 📊 이력서-직무 적합도 | %s |\n\n", percent(result.MatchRate)))
	output.WriteString("## 📋 상세 피드백\n\n")
	output.WriteString(feedbackOrDefault(result.Feedback))
	output.WriteString("\n")
}

func (f *AnalysisMarkdownFormatter) SupportedType() string { return "AnalysisResult" }

type ReportMarkdownFormatter struct{}

func (f *ReportMarkdownFormatter) Format(data any) (string, error) {
	report, err := expect[types.AnalysisReport](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# 📄 이력서 & 채용 공고 분석\n\n")
	output.WriteString(fmt.Sprintf("> %s\n\n", report.Extraction.Message))
	if report.Analysis != nil {
		writeAnalysisMarkdown(&output, *report.Analysis)
	}
	return output.String(), nil
}

func (f *ReportMarkdownFormatter) SupportedType() string { return "AnalysisReport" }

type QuestionsMarkdownFormatter struct{}

func (f *QuestionsMarkdownFormatter) Format(data any) (string, error) {
	qs, err := expect[types.QuestionSet](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# 🧠 면접 질문\n\n")
	writeMarkdownList(&output, "📚 공통 질문", qs.CommonQuestions)
	output.WriteString("\n")
	writeMarkdownList(&output, "🧾 이력서 기반 질문", qs.ResumeQuestions)
	return output.String(), nil
}

func writeMarkdownList(output *strings.Builder, title string, items []string) {
	output.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(items) == 0 {
		output.WriteString(NoQuestions)
		output.WriteString("\n")
		return
	}
	for i, item := range items {
		output.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
	}
}

func (f *QuestionsMarkdownFormatter) SupportedType() string { return "QuestionSet" }

type AnswersMarkdownFormatter struct{}

func (f *AnswersMarkdownFormatter) Format(data any) (string, error) {
	aq, err := expect[AnsweredQuestions](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# 모범답안\n\n")
	writeMarkdownQA(&output, pairs(aq.Questions, aq.Answers.Answers))
	return output.String(), nil
}

func (f *AnswersMarkdownFormatter) SupportedType() string { return "AnsweredQuestions" }

type PrepMarkdownFormatter struct{}

func (f *PrepMarkdownFormatter) Format(data any) (string, error) {
	prep, err := expect[types.InterviewPrep](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# 🧠 면접 준비\n\n")
	output.WriteString(fmt.Sprintf("**직무:** %s\n\n", prep.Role))
	if prep.Company != "" {
		output.WriteString(fmt.Sprintf("**회사/팀:** %s\n\n", prep.Company))
	}
	output.WriteString("## 📚 공통 질문 (Top 5)\n\n")
	writeMarkdownQA(&output, prep.Common)
	output.WriteString("\n## 🧾 이력서 기반 질문 (Top 5)\n\n")
	writeMarkdownQA(&output, prep.Resume)
	return output.String(), nil
}

func writeMarkdownQA(output *strings.Builder, items []types.QA) {
	if len(items) == 0 {
		output.WriteString(NoQuestions)
		output.WriteString("\n")
		return
	}
	for i, qa := range items {
		output.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, qa.Question))
		if strings.TrimSpace(qa.Answer) == "" {
			output.WriteString(fmt.Sprintf("_%s_\n\n", NoAnswer))
			continue
		}
		output.WriteString(strings.TrimSpace(qa.Answer))
		output.WriteString("\n\n")
	}
}

func (f *PrepMarkdownFormatter) SupportedType() string { return "InterviewPrep" }
