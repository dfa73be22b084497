package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/exam-grader/internal/models"
)

type GradingSessionRepository interface {
	Create(session *models.GradingSession) error
	FindByID(id uuid.UUID) (*models.GradingSession, error)
	UpdateStatus(id uuid.UUID, status models.GradingSessionStatus) error
	UpdateReport(id uuid.UUID, report *models.GradingReport) error
	UpdateError(id uuid.UUID, errorMsg string) error
	FindPendingJobs(limit int) ([]models.GradingSession, error)
}

type gradingSessionRepository struct {
	db *gorm.DB
}

func NewGradingSessionRepository(db *gorm.DB) GradingSessionRepository {
	return &gradingSessionRepository{db: db}
}

func (r *gradingSessionRepository) Create(session *models.GradingSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create grading session: %w", err)
	}
	return nil
}

func (r *gradingSessionRepository) FindByID(id uuid.UUID) (*models.GradingSession, error) {
	var session models.GradingSession
	if err := r.db.Where("id = ?", id).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("grading session not found")
		}
		return nil, fmt.Errorf("failed to find grading session: %w", err)
	}
	return &session, nil
}

func (r *gradingSessionRepository) UpdateStatus(id uuid.UUID, status models.GradingSessionStatus) error {
	result := r.db.Model(&models.GradingSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("grading session not found")
	}

	return nil
}

func (r *gradingSessionRepository) UpdateReport(id uuid.UUID, report *models.GradingReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	result := r.db.Model(&models.GradingSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      models.SessionCompleted,
			"report_json": string(raw),
			"updated_at":  time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update report: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("grading session not found")
	}

	return nil
}

func (r *gradingSessionRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	result := r.db.Model(&models.GradingSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.SessionFailed,
			"error_message": errorMsg,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update error: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("grading session not found")
	}

	return nil
}

func (r *gradingSessionRepository) FindPendingJobs(limit int) ([]models.GradingSession, error) {
	var sessions []models.GradingSession
	err := r.db.
		Where("status = ?", models.SessionQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&sessions).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}

	return sessions, nil
}
