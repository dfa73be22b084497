package services

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"

	"alfredoptarigan/exam-grader/internal/models"
)

// SubmissionGrader is the grading backend: one structured call comparing a
// submission against an answer key.
type SubmissionGrader interface {
	GradeSubmission(ctx context.Context, submission, answerKey models.DocumentPayload, rubricContext string) (*models.GradingReport, error)
}

// GradingState is the observable state of the grading trigger.
type GradingState string

const (
	GradingNone       GradingState = "none"
	GradingInProgress GradingState = "in_progress"
	GradingSucceeded  GradingState = "succeeded"
	GradingFailed     GradingState = "failed"
)

// ErrEvaluationInFlight is returned when Evaluate is called while a
// previous call is still running. At most one evaluation runs per session.
var ErrEvaluationInFlight = errors.New("an evaluation is already in flight")

// GraderService gates and runs the grading call. It is a structured
// pass-through: the backend's item order and totals are stored verbatim,
// with no re-scoring or bounds validation. A repeated Evaluate after a
// failure simply replaces the stored error or report (last write wins).
type GraderService interface {
	Evaluate(ctx context.Context, submission, answerKey models.DocumentPayload, rubricContext string) (*models.GradingReport, error)
	State() (GradingState, *models.GradingReport, error)
}

type graderService struct {
	backend SubmissionGrader

	mu       sync.Mutex
	state    GradingState
	report   *models.GradingReport
	err      error
	inFlight bool
}

func NewGraderService(backend SubmissionGrader) GraderService {
	return &graderService{
		backend: backend,
		state:   GradingNone,
	}
}

// Evaluate implements GraderService.
func (g *graderService) Evaluate(ctx context.Context, submission, answerKey models.DocumentPayload, rubricContext string) (*models.GradingReport, error) {
	g.mu.Lock()
	if g.inFlight {
		g.mu.Unlock()
		return nil, ErrEvaluationInFlight
	}
	g.inFlight = true
	g.state = GradingInProgress
	g.mu.Unlock()

	report, err := g.backend.GradeSubmission(ctx, submission, answerKey, rubricContext)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = false

	if err != nil {
		evalErr := &models.EvaluationError{Err: err}
		g.state = GradingFailed
		g.report = nil
		g.err = evalErr
		return nil, evalErr
	}

	warnOnTotalsDivergence(report)

	g.state = GradingSucceeded
	g.report = report
	g.err = nil
	return report, nil
}

// State implements GraderService.
func (g *graderService) State() (GradingState, *models.GradingReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state, g.report, g.err
}

// warnOnTotalsDivergence logs when the backend's reported totals disagree
// with the sums over its items. The report is kept as-is either way; the
// backend is the source of truth.
func warnOnTotalsDivergence(report *models.GradingReport) {
	total, max := report.ItemSums()
	if math.Abs(total-report.TotalScore) > 1e-6 || math.Abs(max-report.MaxPossibleScore) > 1e-6 {
		log.Printf("⚠️  Grading report totals diverge from item sums: total %.2f vs %.2f, max %.2f vs %.2f",
			report.TotalScore, total, report.MaxPossibleScore, max)
	}
}
