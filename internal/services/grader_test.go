package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/exam-grader/internal/models"
)

type fakeGradingBackend struct {
	reports []*models.GradingReport
	errs    []error
	calls   int
	block   chan struct{}
	started chan struct{}
}

func (f *fakeGradingBackend) GradeSubmission(ctx context.Context, submission, answerKey models.DocumentPayload, rubricContext string) (*models.GradingReport, error) {
	idx := f.calls
	f.calls++

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}

	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.reports) {
		return f.reports[idx], nil
	}
	return nil, errors.New("no scripted result")
}

func sampleReport() *models.GradingReport {
	return &models.GradingReport{
		Items: []models.GradingItem{
			{
				ID:             "item-1",
				QuestionNumber: "1",
				QuestionText:   "Define osmosis.",
				ModelAnswer:    "Movement of water across a membrane.",
				StudentAnswer:  "Water moving through a membrane.",
				Score:          4,
				MaxScore:       5,
				Feedback:       "Missing the concentration gradient.",
			},
			{
				ID:             "item-2",
				QuestionNumber: "2",
				QuestionText:   "Name the powerhouse of the cell.",
				ModelAnswer:    "Mitochondria.",
				StudentAnswer:  "Mitochondria.",
				Score:          3,
				MaxScore:       5,
				Feedback:       "Correct but no elaboration.",
			},
		},
		TotalScore:       7,
		MaxPossibleScore: 10,
		Summary:          "Solid grasp of the basics.",
		ImprovementAreas: []string{"Elaborate on mechanisms"},
	}
}

func payloads() (models.DocumentPayload, models.DocumentPayload) {
	submission := models.DocumentPayload{Data: []byte("submission"), MediaType: "application/pdf"}
	answerKey := models.DocumentPayload{Data: []byte("answer key"), MediaType: "application/pdf"}
	return submission, answerKey
}

func TestEvaluateReturnsBackendReport(t *testing.T) {
	expected := sampleReport()
	grader := NewGraderService(&fakeGradingBackend{reports: []*models.GradingReport{expected}})
	submission, answerKey := payloads()

	report, err := grader.Evaluate(context.Background(), submission, answerKey, "")
	require.NoError(t, err)
	require.NotNil(t, report)

	// Item order, scores, and totals come through untouched.
	assert.Equal(t, expected.Items, report.Items)
	assert.Equal(t, 7.0, report.TotalScore)
	assert.Equal(t, 10.0, report.MaxPossibleScore)

	state, stored, stateErr := grader.State()
	assert.Equal(t, GradingSucceeded, state)
	assert.Equal(t, expected, stored)
	assert.NoError(t, stateErr)
}

func TestEvaluateFailureThenSuccess(t *testing.T) {
	backendErr := errors.New("model overloaded")
	good := sampleReport()
	grader := NewGraderService(&fakeGradingBackend{
		errs:    []error{backendErr, nil},
		reports: []*models.GradingReport{nil, good},
	})
	submission, answerKey := payloads()

	_, err := grader.Evaluate(context.Background(), submission, answerKey, "")
	require.Error(t, err)

	var evalErr *models.EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.ErrorIs(t, evalErr.Err, backendErr)

	state, report, stateErr := grader.State()
	assert.Equal(t, GradingFailed, state)
	assert.Nil(t, report)
	assert.Error(t, stateErr)

	// A retry after failure overwrites the stored error with the new
	// result; only the latest outcome is kept.
	report, err = grader.Evaluate(context.Background(), submission, answerKey, "")
	require.NoError(t, err)
	assert.Equal(t, good, report)

	state, report, stateErr = grader.State()
	assert.Equal(t, GradingSucceeded, state)
	assert.Equal(t, good, report)
	assert.NoError(t, stateErr)
}

func TestEvaluateSingleFlight(t *testing.T) {
	backend := &fakeGradingBackend{
		reports: []*models.GradingReport{sampleReport()},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	grader := NewGraderService(backend)
	submission, answerKey := payloads()

	done := make(chan error, 1)
	go func() {
		_, err := grader.Evaluate(context.Background(), submission, answerKey, "")
		done <- err
	}()
	<-backend.started

	state, _, _ := grader.State()
	assert.Equal(t, GradingInProgress, state)

	_, err := grader.Evaluate(context.Background(), submission, answerKey, "")
	assert.ErrorIs(t, err, ErrEvaluationInFlight)

	close(backend.block)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("first evaluation did not finish")
	}

	state, _, _ = grader.State()
	assert.Equal(t, GradingSucceeded, state)
	assert.Equal(t, 1, backend.calls)
}

func TestEvaluateKeepsDivergentTotals(t *testing.T) {
	// Backend totals that disagree with the item sums are stored as-is;
	// divergence is a log line, not an error.
	divergent := sampleReport()
	divergent.TotalScore = 9
	divergent.MaxPossibleScore = 12

	grader := NewGraderService(&fakeGradingBackend{reports: []*models.GradingReport{divergent}})
	submission, answerKey := payloads()

	report, err := grader.Evaluate(context.Background(), submission, answerKey, "")
	require.NoError(t, err)
	assert.Equal(t, 9.0, report.TotalScore)
	assert.Equal(t, 12.0, report.MaxPossibleScore)
}
