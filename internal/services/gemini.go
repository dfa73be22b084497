package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"alfredoptarigan/exam-grader/internal/models"
)

type GeminiService interface {
	ExtractPageText(ctx context.Context, image []byte, mimeType string) (string, error)
	GradeSubmission(ctx context.Context, submission, answerKey models.DocumentPayload, rubricContext string) (*models.GradingReport, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type geminiService struct {
	client        *genai.Client
	modelName     string
	embedModel    string
	maxRetries    int
	promptBuilder *PromptBuilder
}

func NewGeminiService(apiKey, modelName string, maxRetries int) (GeminiService, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if maxRetries < 1 {
		maxRetries = 1
	}

	return &geminiService{
		client:        client,
		modelName:     modelName,
		embedModel:    "text-embedding-004",
		maxRetries:    maxRetries,
		promptBuilder: NewPromptBuilder(),
	}, nil
}

// ExtractPageText implements GeminiService. The image is sent inline as a
// user part alongside the transcription prompt.
func (g *geminiService) ExtractPageText(ctx context.Context, image []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(g.promptBuilder.BuildPageExtractionPrompt()),
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	temperature := float32(0.1)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 8192,
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, config)
		if err == nil {
			if text := resp.Text(); text != "" {
				return text, nil
			}
			err = fmt.Errorf("no text content in response")
		}

		lastErr = err

		select {
		case <-ctx.Done():
			return "", &models.ExtractionError{Err: ctx.Err()}
		default:
		}

		if attempt < g.maxRetries {
			log.Printf("⚠️  Extraction attempt %d failed: %v. Retrying...", attempt, err)
		}
	}

	return "", &models.ExtractionError{Err: fmt.Errorf("failed after %d attempts: %w", g.maxRetries, lastErr)}
}

// GradeSubmission implements GeminiService. Both documents are sent inline
// with a grading prompt; the response is constrained to the report schema
// via structured output and parsed into a GradingReport.
func (g *geminiService) GradeSubmission(ctx context.Context, submission, answerKey models.DocumentPayload, rubricContext string) (*models.GradingReport, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(g.promptBuilder.BuildGradingPrompt(rubricContext)),
		{InlineData: &genai.Blob{MIMEType: submission.MediaType, Data: submission.Data}},
		{InlineData: &genai.Blob{MIMEType: answerKey.MediaType, Data: answerKey.Data}},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	temperature := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  16384,
		ResponseMIMEType: "application/json",
		ResponseSchema:   gradingReportSchema(),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate grading response: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("no text content in grading response")
	}

	return parseGradingReport(raw)
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	// Truncate text if too long (max ~10000 tokens for embedding)
	if len(text) > 40000 {
		text = text[:40000]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// gradingReportSchema constrains the model's JSON output to the report
// shape. Scores and item order are whatever the model returns; they are
// passed through without re-validation.
func gradingReportSchema() *genai.Schema {
	itemSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":              {Type: genai.TypeString},
			"question_number": {Type: genai.TypeString},
			"question_text":   {Type: genai.TypeString},
			"model_answer":    {Type: genai.TypeString},
			"student_answer":  {Type: genai.TypeString},
			"score":           {Type: genai.TypeNumber},
			"max_score":       {Type: genai.TypeNumber},
			"feedback":        {Type: genai.TypeString},
		},
		Required: []string{
			"id", "question_number", "question_text", "model_answer",
			"student_answer", "score", "max_score", "feedback",
		},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"items":              {Type: genai.TypeArray, Items: itemSchema},
			"total_score":        {Type: genai.TypeNumber},
			"max_possible_score": {Type: genai.TypeNumber},
			"summary":            {Type: genai.TypeString},
			"improvement_areas":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"items", "total_score", "max_possible_score", "summary", "improvement_areas"},
	}
}

func parseGradingReport(raw string) (*models.GradingReport, error) {
	jsonStr := extractJSON(raw)

	var report models.GradingReport
	if err := json.Unmarshal([]byte(jsonStr), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal grading report: %w", err)
	}

	return &report, nil
}

// extractJSON tries to extract JSON from text that might contain markdown
// or other formatting around it.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	} else if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}
