package ai

import (
	"strings"

	"interviewprep/internal/config"
)

// Template placeholders. Custom prompt files use the same names.
const (
	PlaceholderResume    = "{resume}"
	PlaceholderJD        = "{jd}"
	PlaceholderRole      = "{role}"
	PlaceholderCompany   = "{company}"
	PlaceholderQuestions = "{questions}"
)

// PDFExtractionInstruction accompanies the PDF bytes in the multimodal request
const PDFExtractionInstruction = "Extract the plain text content from this resume PDF. Return only the extracted text without any additional commentary."

// DefaultPrompts holds the built-in templates per operation
var DefaultPrompts = map[config.Operation]string{
	config.OpExtract: PDFExtractionInstruction,

	config.OpAnalyze: `다음 이력서와 채용 공고를 분석하여 아래 항목을 한국어로 자세히 작성하세요:

1. 합격 가능성 (0-100%)
2. 이력서와 채용 공고 간의 적합도 (0-100%)
3. 전반적인 피드백과 개선 제안

응답은 반드시 다음 정확한 키를 가진 JSON 형식으로만 작성하세요:
- "probability" (숫자만)
- "match_rate" (숫자만)
- "feedback" (상세한 한국어 텍스트)

=== RESUME ===
{resume}

=== JOB DESCRIPTION ===
{jd}`,

	config.OpQuestions: `당신은 전문 면접관입니다. 아래 기준에 따라 간결한 한국어 면접 질문을 두 목록으로 작성하세요:

1) 대부분의 직무에 공통적으로 적용 가능한 질문 (행동 기반 + 필요 시 일반 기술 질문)
2) 지원자의 이력서, 선택한 직무/회사 정보를 바탕으로 한 맞춤 질문

제약 사항:
- 각 목록당 6~8개 항목
- 답변 없이 질문만 작성
- 질문은 짧고 핵심적으로 작성

응답은 반드시 다음 JSON 형식으로만 제출하세요:
{
  "common_questions": ["q1", "q2", ...],
  "resume_questions": ["q1", "q2", ...]
}

=== JOB ROLE ===
{role}

=== COMPANY INFO ===
{company}

=== RESUME ===
{resume}`,

	config.OpAnswers: `다음 지원자 정보를 참고하여 각 질문에 대한 모범답안을 한국어로 간결하게 작성하세요.
각 답변은 3~5문장 이내로 핵심만 담아주세요.

응답은 반드시 다음 JSON 형식으로만 제출하세요:
{"answers": ["a1", "a2", ...]}  (질문 리스트와 동일한 순서/길이)

=== 직무 ===
{role}

=== 회사/팀 정보 ===
{company}

=== 이력서 ===
{resume}

=== 질문 목록 ===
{questions}`,
}

// resolvePrompt picks the first non-empty template
func resolvePrompt(fromConfig, fromDefault string) string {
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

// renderPrompt substitutes the placeholders in a template
func renderPrompt(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for placeholder, value := range values {
		pairs = append(pairs, placeholder, value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// bulletList renders questions as "- q" lines
func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
