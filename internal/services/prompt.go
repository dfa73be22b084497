package services

import (
	"fmt"
	"strings"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildPageExtractionPrompt creates the prompt sent with each page image.
func (pb *PromptBuilder) BuildPageExtractionPrompt() string {
	return `You are a document transcriber. You will be provided with an image of one page of a handwritten or printed answer sheet.

Transcribe ALL text content visible on the page:
1. Preserve the original question numbering exactly as written (e.g. "2b", "III", "Q4").
2. Keep the answers under their question numbers, in the order they appear on the page.
3. Transcribe mathematical notation in plain text or LaTeX where needed.
4. For diagrams or figures, insert a short bracketed description of what is drawn.
5. Ignore page headers, footers, and page numbers.

Return ONLY the transcribed content. Do not summarize, grade, or comment on the answers.`
}

// BuildGradingPrompt creates the prompt for the single structured grading
// call. The student submission and answer key are attached as documents.
func (pb *PromptBuilder) BuildGradingPrompt(rubricContext string) string {
	if strings.TrimSpace(rubricContext) == "" {
		rubricContext = "No additional rubric context available. Use the point values stated in the answer key."
	}

	return fmt.Sprintf(`You are an experienced examiner grading a student submission against an answer key.

You are given two documents: first the STUDENT SUBMISSION, then the ANSWER KEY.

GRADING RUBRIC CONTEXT:
%s

Grade every question that appears in the answer key:
1. Match each answer in the submission to its question in the key, preserving the key's question order and its original numbering (which may be non-numeric, e.g. "2b").
2. Award partial credit where the rubric or the answer key allows it.
3. "score" must never exceed "max_score" for an item.
4. "total_score" and "max_possible_score" must equal the sums over all items.
5. For unanswered questions, use an empty "student_answer" and a score of 0.
6. "feedback" should state concretely what was right, what was missing, and why points were deducted.
7. "summary" is a short overall assessment; "improvement_areas" lists the topics the student should revise.

Be consistent: identical mistakes receive identical deductions.`, rubricContext)
}

// BuildRetrievalQuery creates the query text used to retrieve rubric
// context for grading.
func (pb *PromptBuilder) BuildRetrievalQuery(docType string) string {
	switch docType {
	case "grading_rubric":
		return "Grading rubric, point allocation, and partial credit rules"
	case "exam_guidelines":
		return "Exam grading guidelines and examiner instructions"
	default:
		return "Grading criteria and scoring guidelines"
	}
}

// FormatRAGContext renders retrieved chunks into a prompt section.
func FormatRAGContext(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var parts []string
	for i, result := range results {
		parts = append(parts, fmt.Sprintf("--- Context %d (Score: %.2f) ---\n%s",
			i+1, result.Score, strings.TrimSpace(result.Text)))
	}

	return strings.Join(parts, "\n\n")
}
