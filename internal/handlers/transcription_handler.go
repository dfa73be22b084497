package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/exam-grader/internal/models"
	"alfredoptarigan/exam-grader/internal/repositories"
	"alfredoptarigan/exam-grader/internal/services"
)

type TranscriptionHandler struct {
	controller *services.PipelineController
	docRepo    repositories.DocumentRepository
}

func NewTranscriptionHandler(
	controller *services.PipelineController,
	docRepo repositories.DocumentRepository,
) *TranscriptionHandler {
	return &TranscriptionHandler{
		controller: controller,
		docRepo:    docRepo,
	}
}

// HandleStart handles POST /transcriptions. It kicks off a background
// transcription run for the given document; clients poll the state
// endpoint for progress.
func (h *TranscriptionHandler) HandleStart(c *fiber.Ctx) error {
	var req models.TranscribeRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	docID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document_id format",
		})
	}

	doc, err := h.docRepo.FindByID(docID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	if err := h.controller.Start(context.Background(), doc.FilePath); err != nil {
		if errors.Is(err, services.ErrRunInFlight) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A transcription run is already in flight. Reset it first.",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start transcription",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(models.TranscribeResponse{
		DocumentID: doc.ID.String(),
		Status:     string(models.PipelineLoading),
	})
}

// HandleState handles GET /transcriptions/state.
func (h *TranscriptionHandler) HandleState(c *fiber.Ctx) error {
	return c.JSON(h.controller.Snapshot())
}

// HandleTranscript handles GET /transcriptions/transcript.
func (h *TranscriptionHandler) HandleTranscript(c *fiber.Ctx) error {
	return c.JSON(models.TranscriptResponse{
		Transcript: h.controller.CombinedTranscript(),
	})
}

// HandleReset handles POST /transcriptions/reset.
func (h *TranscriptionHandler) HandleReset(c *fiber.Ctx) error {
	h.controller.Reset()
	return c.JSON(fiber.Map{
		"status": string(models.PipelineIdle),
	})
}
