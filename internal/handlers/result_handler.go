package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/exam-grader/internal/models"
	"alfredoptarigan/exam-grader/internal/repositories"
)

type ResultHandler struct {
	sessionRepo repositories.GradingSessionRepository
}

func NewResultHandler(sessionRepo repositories.GradingSessionRepository) *ResultHandler {
	return &ResultHandler{
		sessionRepo: sessionRepo,
	}
}

// HandleGetResult handles GET /grade/:id.
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	idParam := c.Params("id")
	sessionID, err := uuid.Parse(idParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid grading session ID format",
		})
	}

	session, err := h.sessionRepo.FindByID(sessionID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Grading session not found",
		})
	}

	response := models.ResultResponse{
		ID:     session.ID.String(),
		Status: string(session.Status),
	}

	if session.Status == models.SessionCompleted && session.ReportJSON != nil {
		var report models.GradingReport
		if err := json.Unmarshal([]byte(*session.ReportJSON), &report); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to decode grading report",
			})
		}
		response.Report = &report
	}

	if session.Status == models.SessionFailed {
		response.ErrorMessage = session.ErrorMessage
	}

	return c.JSON(response)
}
