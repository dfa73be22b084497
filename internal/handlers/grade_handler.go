package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/exam-grader/internal/models"
	"alfredoptarigan/exam-grader/internal/repositories"
	"alfredoptarigan/exam-grader/internal/services"
)

type GradeHandler struct {
	sessionRepo repositories.GradingSessionRepository
	docRepo     repositories.DocumentRepository
	controller  *services.PipelineController
	grader      services.GraderService
	worker      services.Worker
}

func NewGradeHandler(
	sessionRepo repositories.GradingSessionRepository,
	docRepo repositories.DocumentRepository,
	controller *services.PipelineController,
	grader services.GraderService,
	worker services.Worker,
) *GradeHandler {
	return &GradeHandler{
		sessionRepo: sessionRepo,
		docRepo:     docRepo,
		controller:  controller,
		grader:      grader,
		worker:      worker,
	}
}

// HandleGrade handles POST /grade. Grading requires a completed
// transcription run for the submission; that gate is enforced here, not by
// the grader itself.
func (h *GradeHandler) HandleGrade(c *fiber.Ctx) error {
	var req models.GradeRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.SubmissionDocumentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "submission_document_id is required",
		})
	}

	if req.AnswerKeyDocumentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "answer_key_document_id is required",
		})
	}

	submissionID, err := uuid.Parse(req.SubmissionDocumentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid submission_document_id format",
		})
	}

	answerKeyID, err := uuid.Parse(req.AnswerKeyDocumentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid answer_key_document_id format",
		})
	}

	if _, err := h.docRepo.FindByID(submissionID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Submission document not found",
		})
	}

	if _, err := h.docRepo.FindByID(answerKeyID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Answer key document not found",
		})
	}

	if h.controller.Snapshot().Status != models.PipelineCompleted {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Transcription must be completed before grading",
		})
	}

	session := &models.GradingSession{
		ID:                   uuid.New(),
		SubmissionDocumentID: submissionID,
		AnswerKeyDocumentID:  answerKeyID,
		Status:               models.SessionQueued,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}

	if err := h.sessionRepo.Create(session); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create grading session",
		})
	}

	h.worker.EnqueueJob(session.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.GradeResponse{
		ID:     session.ID.String(),
		Status: string(models.SessionQueued),
	})
}

// HandleGradingState handles GET /grade/state: the live state of the
// grading trigger (none, in_progress, succeeded, failed).
func (h *GradeHandler) HandleGradingState(c *fiber.Ctx) error {
	state, report, err := h.grader.State()

	response := fiber.Map{"state": string(state)}
	if report != nil {
		response["report"] = report
	}
	if err != nil {
		response["error"] = err.Error()
	}

	return c.JSON(response)
}
