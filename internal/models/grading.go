package models

import (
	"time"

	"github.com/google/uuid"
)

type GradingSessionStatus string

const (
	SessionQueued     GradingSessionStatus = "queued"
	SessionProcessing GradingSessionStatus = "processing"
	SessionCompleted  GradingSessionStatus = "completed"
	SessionFailed     GradingSessionStatus = "failed"
)

// GradingSession is the persisted bookkeeping record for one grading job.
// The report itself is stored as a JSON blob since its shape is owned by
// the grading backend, not the schema.
type GradingSession struct {
	ID                   uuid.UUID            `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SubmissionDocumentID uuid.UUID            `gorm:"type:uuid;not null" json:"submission_document_id"`
	AnswerKeyDocumentID  uuid.UUID            `gorm:"type:uuid;not null" json:"answer_key_document_id"`
	Status               GradingSessionStatus `gorm:"not null;default:'queued'" json:"status"`
	ReportJSON           *string              `gorm:"type:jsonb" json:"-"`
	ErrorMessage         *string              `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt            time.Time            `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time            `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	SubmissionDocument Document `gorm:"foreignKey:SubmissionDocumentID" json:"-"`
	AnswerKeyDocument  Document `gorm:"foreignKey:AnswerKeyDocumentID" json:"-"`
}

func (GradingSession) TableName() string {
	return "grading_sessions"
}

// GradingItem is one graded question as returned by the grading backend.
// QuestionNumber is text because source numbering may be non-numeric
// ("2b", "III", ...).
type GradingItem struct {
	ID             string  `json:"id"`
	QuestionNumber string  `json:"question_number"`
	QuestionText   string  `json:"question_text"`
	ModelAnswer    string  `json:"model_answer"`
	StudentAnswer  string  `json:"student_answer"`
	Score          float64 `json:"score"`
	MaxScore       float64 `json:"max_score"`
	Feedback       string  `json:"feedback"`
}

// GradingReport is the structured grading result. TotalScore and
// MaxPossibleScore are taken verbatim from the backend; they are expected
// to equal the sums over Items but are not recomputed here.
type GradingReport struct {
	Items            []GradingItem `json:"items"`
	TotalScore       float64       `json:"total_score"`
	MaxPossibleScore float64       `json:"max_possible_score"`
	Summary          string        `json:"summary"`
	ImprovementAreas []string      `json:"improvement_areas"`
}

// ItemSums returns the score/max-score sums over Items, for comparing
// against the backend-reported totals.
func (r *GradingReport) ItemSums() (total, max float64) {
	for _, item := range r.Items {
		total += item.Score
		max += item.MaxScore
	}
	return total, max
}

// DocumentPayload is a fully materialized document handed to the grading
// backend: raw bytes plus a declared media type.
type DocumentPayload struct {
	Data      []byte
	MediaType string
}
