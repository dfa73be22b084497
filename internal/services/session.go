package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"alfredoptarigan/exam-grader/internal/models"
	"alfredoptarigan/exam-grader/internal/repositories"
)

// GradingSessionService runs one persisted grading session end to end:
// load the documents, gather rubric context, invoke the grader and store
// the outcome on the session row.
type GradingSessionService interface {
	GradeSession(ctx context.Context, sessionID uuid.UUID) error
}

type gradingSessionService struct {
	sessionRepo   repositories.GradingSessionRepository
	docRepo       repositories.DocumentRepository
	geminiService GeminiService
	qdrantService QdrantService
	grader        GraderService
	promptBuilder *PromptBuilder
}

func NewGradingSessionService(
	sessionRepo repositories.GradingSessionRepository,
	docRepo repositories.DocumentRepository,
	geminiService GeminiService,
	qdrantService QdrantService,
	grader GraderService,
) GradingSessionService {
	return &gradingSessionService{
		sessionRepo:   sessionRepo,
		docRepo:       docRepo,
		geminiService: geminiService,
		qdrantService: qdrantService,
		grader:        grader,
		promptBuilder: NewPromptBuilder(),
	}
}

func (s *gradingSessionService) GradeSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		return fmt.Errorf("failed to get grading session: %w", err)
	}

	// The poller can re-enqueue a session that a worker already picked up.
	if session.Status != models.SessionQueued {
		log.Printf("⏭️  Session %s already %s, skipping", sessionID, session.Status)
		return nil
	}

	if err := s.sessionRepo.UpdateStatus(sessionID, models.SessionProcessing); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	log.Printf("🔄 Starting grading for session ID: %s", sessionID)

	submission, err := s.loadPayload(session.SubmissionDocumentID)
	if err != nil {
		s.sessionRepo.UpdateError(sessionID, fmt.Sprintf("Submission document not available: %v", err))
		return fmt.Errorf("failed to load submission: %w", err)
	}

	answerKey, err := s.loadPayload(session.AnswerKeyDocumentID)
	if err != nil {
		s.sessionRepo.UpdateError(sessionID, fmt.Sprintf("Answer key document not available: %v", err))
		return fmt.Errorf("failed to load answer key: %w", err)
	}

	log.Println("🔍 Retrieving rubric context for grading...")
	rubricContext, err := s.retrieveRubricContext(ctx)
	if err != nil {
		log.Printf("⚠️  Warning: failed to retrieve rubric context: %v", err)
		rubricContext = ""
	}

	log.Println("🤖 Grading submission with LLM...")
	report, err := s.grader.Evaluate(ctx, submission, answerKey, rubricContext)
	if err != nil {
		s.sessionRepo.UpdateError(sessionID, fmt.Sprintf("Failed to grade submission: %v", err))
		return fmt.Errorf("failed to grade submission: %w", err)
	}

	log.Println("💾 Saving grading report...")
	if err := s.sessionRepo.UpdateReport(sessionID, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	log.Printf("✅ Grading completed successfully for session ID: %s", sessionID)
	return nil
}

func (s *gradingSessionService) loadPayload(docID uuid.UUID) (models.DocumentPayload, error) {
	doc, err := s.docRepo.FindByID(docID)
	if err != nil {
		return models.DocumentPayload{}, err
	}

	data, err := os.ReadFile(doc.FilePath)
	if err != nil {
		return models.DocumentPayload{}, fmt.Errorf("failed to read document file: %w", err)
	}

	mediaType := doc.MediaType
	if mediaType == "" {
		mediaType = "application/pdf"
	}

	return models.DocumentPayload{Data: data, MediaType: mediaType}, nil
}

func (s *gradingSessionService) retrieveRubricContext(ctx context.Context) (string, error) {
	query := s.promptBuilder.BuildRetrievalQuery("grading_rubric")

	embedding, err := s.geminiService.GenerateEmbedding(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to generate query embedding: %w", err)
	}

	var allResults []SearchResult
	for _, docType := range []string{"grading_rubric", "exam_guidelines"} {
		results, err := s.qdrantService.SearchSimilar(ctx, embedding, docType, 3)
		if err != nil {
			log.Printf("⚠️  Failed to search for %s: %v", docType, err)
			continue
		}
		allResults = append(allResults, results...)
	}

	return FormatRAGContext(allResults), nil
}
