package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/exam-grader/internal/models"
)

var (
	testPreviewProfile    = QualityProfile{DPI: 72, JPEGQuality: 50}
	testExtractionProfile = QualityProfile{DPI: 200, JPEGQuality: 90}
)

type fakeSource struct {
	pages      int
	countErr   error
	previewErr map[int]error
	renderErr  map[int]error
}

func (f *fakeSource) PageCount(ctx context.Context, path string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.pages, nil
}

func (f *fakeSource) RenderPage(ctx context.Context, path string, page int, profile QualityProfile) ([]byte, error) {
	if profile.DPI == testPreviewProfile.DPI {
		if err := f.previewErr[page]; err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf("preview-%d", page)), nil
	}
	if err := f.renderErr[page]; err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("image-%d", page)), nil
}

type fakeExtractor struct {
	texts   map[int]string
	errs    map[int]error
	block   chan struct{}
	started chan int
}

func (f *fakeExtractor) ExtractPageText(ctx context.Context, image []byte, mimeType string) (string, error) {
	var page int
	fmt.Sscanf(string(image), "image-%d", &page)

	if f.started != nil {
		f.started <- page
	}
	if f.block != nil {
		<-f.block
	}
	if err := f.errs[page]; err != nil {
		return "", err
	}
	if text, ok := f.texts[page]; ok {
		return text, nil
	}
	return fmt.Sprintf("text-%d", page), nil
}

func newTestController(source *fakeSource, extractor *fakeExtractor) *PipelineController {
	return NewPipelineController(source, extractor, testPreviewProfile, testExtractionProfile)
}

func collectStates(ctrl *PipelineController) *[]models.PipelineState {
	states := &[]models.PipelineState{}
	ctrl.SetObserver(func(s models.PipelineState) {
		*states = append(*states, s)
	})
	return states
}

// assertWellFormedRun checks the universal publish-order properties:
// currentPage never decreases, page statuses only move forward, and the
// full pending skeleton is visible as soon as processing begins.
func assertWellFormedRun(t *testing.T, states []models.PipelineState, totalPages int) {
	t.Helper()

	statusRank := map[models.PageStatus]int{
		models.PagePending:    0,
		models.PageProcessing: 1,
		models.PageCompleted:  2,
		models.PageError:      2,
	}

	lastPage := 0
	lastRanks := make(map[int]int)
	skeletonSeen := false

	for _, state := range states {
		assert.GreaterOrEqual(t, state.CurrentPage, lastPage, "currentPage must be monotonically non-decreasing")
		lastPage = state.CurrentPage

		if state.Status == models.PipelineProcessing && !skeletonSeen {
			require.Len(t, state.Pages, totalPages, "all pages must be allocated before extraction begins")
			for _, page := range state.Pages {
				assert.Equal(t, models.PagePending, page.Status)
			}
			skeletonSeen = true
		}

		for _, page := range state.Pages {
			rank := statusRank[page.Status]
			assert.GreaterOrEqual(t, rank, lastRanks[page.PageNumber],
				"page %d regressed from a later status", page.PageNumber)
			if lastRanks[page.PageNumber] == 2 && rank == 2 {
				continue
			}
			lastRanks[page.PageNumber] = rank
		}
	}

	if totalPages > 0 {
		assert.True(t, skeletonSeen, "no processing state was published")
	}
}

func TestRunCompletesAllPages(t *testing.T) {
	ctrl := newTestController(&fakeSource{pages: 3}, &fakeExtractor{})
	states := collectStates(ctrl)

	err := ctrl.Run(context.Background(), "exam.pdf")
	require.NoError(t, err)

	snap := ctrl.Snapshot()
	assert.Equal(t, models.PipelineCompleted, snap.Status)
	assert.Equal(t, 3, snap.TotalPages)
	require.Len(t, snap.Pages, 3)

	for i, page := range snap.Pages {
		assert.Equal(t, i+1, page.PageNumber)
		assert.Equal(t, models.PageCompleted, page.Status)
		assert.Equal(t, fmt.Sprintf("text-%d", i+1), page.Content)
		assert.Equal(t, []byte(fmt.Sprintf("preview-%d", i+1)), page.PreviewImage)
	}

	assert.Equal(t, "text-1\n\ntext-2\n\ntext-3", ctrl.CombinedTranscript())
	assertWellFormedRun(t, *states, 3)
}

func TestRunContinuesAfterExtractionFailure(t *testing.T) {
	extractor := &fakeExtractor{errs: map[int]error{2: errors.New("backend unavailable")}}
	ctrl := newTestController(&fakeSource{pages: 3}, extractor)
	states := collectStates(ctrl)

	err := ctrl.Run(context.Background(), "exam.pdf")
	require.NoError(t, err, "a per-page extraction failure must not fail the run")

	snap := ctrl.Snapshot()
	assert.Equal(t, models.PipelineCompleted, snap.Status)
	require.Len(t, snap.Pages, 3)

	assert.Equal(t, models.PageCompleted, snap.Pages[0].Status)
	assert.Equal(t, models.PageError, snap.Pages[1].Status)
	assert.Equal(t, ExtractionFailedPlaceholder, snap.Pages[1].Content)
	assert.Equal(t, models.PageCompleted, snap.Pages[2].Status)

	// The errored page contributes nothing to the transcript.
	assert.Equal(t, "text-1\n\ntext-3", ctrl.CombinedTranscript())
	assertWellFormedRun(t, *states, 3)
}

func TestRunFailsWhenPageCountUnavailable(t *testing.T) {
	source := &fakeSource{countErr: &models.DocumentError{Err: errors.New("corrupt file")}}
	ctrl := newTestController(source, &fakeExtractor{})
	states := collectStates(ctrl)

	err := ctrl.Run(context.Background(), "broken.pdf")
	require.Error(t, err)

	var docErr *models.DocumentError
	assert.True(t, errors.As(err, &docErr))

	snap := ctrl.Snapshot()
	assert.Equal(t, models.PipelineError, snap.Status)
	assert.Empty(t, snap.Pages)
	assert.Equal(t, 0, snap.TotalPages)
	assert.NotEmpty(t, snap.ErrorMessage)

	// No page was ever observed in progress.
	for _, state := range *states {
		for _, page := range state.Pages {
			assert.NotEqual(t, models.PageProcessing, page.Status)
		}
	}
}

func TestRunFailsWhenPreviewRenderFails(t *testing.T) {
	source := &fakeSource{
		pages:      3,
		previewErr: map[int]error{2: &models.RenderError{Page: 2, Err: errors.New("render crash")}},
	}
	ctrl := newTestController(source, &fakeExtractor{})

	err := ctrl.Run(context.Background(), "exam.pdf")
	require.Error(t, err)

	snap := ctrl.Snapshot()
	assert.Equal(t, models.PipelineError, snap.Status)
	assert.NotEmpty(t, snap.ErrorMessage)

	// Page 1 finished before the fatal failure; page 2 never got its
	// preview, so it was never marked in-progress.
	require.Len(t, snap.Pages, 3)
	assert.Equal(t, models.PageCompleted, snap.Pages[0].Status)
	assert.Equal(t, models.PagePending, snap.Pages[1].Status)
	assert.Equal(t, models.PagePending, snap.Pages[2].Status)
}

func TestRunFailsWhenExtractionRenderFails(t *testing.T) {
	source := &fakeSource{
		pages:     2,
		renderErr: map[int]error{1: &models.RenderError{Page: 1, Err: errors.New("render crash")}},
	}
	ctrl := newTestController(source, &fakeExtractor{})

	err := ctrl.Run(context.Background(), "exam.pdf")
	require.Error(t, err)

	var renderErr *models.RenderError
	assert.True(t, errors.As(err, &renderErr))
	assert.Equal(t, models.PipelineError, ctrl.Snapshot().Status)
}

func TestRunZeroPageDocument(t *testing.T) {
	ctrl := newTestController(&fakeSource{pages: 0}, &fakeExtractor{})

	err := ctrl.Run(context.Background(), "empty.pdf")
	require.NoError(t, err)

	snap := ctrl.Snapshot()
	assert.Equal(t, models.PipelineCompleted, snap.Status)
	assert.Equal(t, 0, snap.TotalPages)
	assert.Empty(t, snap.Pages)
	assert.Equal(t, "", ctrl.CombinedTranscript())
}

func TestStartRejectsOverlappingRun(t *testing.T) {
	extractor := &fakeExtractor{
		block:   make(chan struct{}),
		started: make(chan int, 3),
	}
	ctrl := newTestController(&fakeSource{pages: 1}, extractor)

	require.NoError(t, ctrl.Start(context.Background(), "exam.pdf"))
	<-extractor.started

	assert.ErrorIs(t, ctrl.Start(context.Background(), "other.pdf"), ErrRunInFlight)
	assert.ErrorIs(t, ctrl.Run(context.Background(), "other.pdf"), ErrRunInFlight)

	close(extractor.block)
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Status == models.PipelineCompleted
	}, time.Second, 10*time.Millisecond)
}

func TestResetReturnsIdle(t *testing.T) {
	ctrl := newTestController(&fakeSource{pages: 2}, &fakeExtractor{})
	require.NoError(t, ctrl.Run(context.Background(), "exam.pdf"))

	ctrl.Reset()

	snap := ctrl.Snapshot()
	assert.Equal(t, models.PipelineIdle, snap.Status)
	assert.Equal(t, 0, snap.TotalPages)
	assert.Equal(t, 0, snap.CurrentPage)
	assert.Empty(t, snap.Pages)
	assert.Empty(t, snap.ErrorMessage)
	assert.Equal(t, "", ctrl.CombinedTranscript())
}

func TestResetDiscardsStaleRun(t *testing.T) {
	extractor := &fakeExtractor{
		block:   make(chan struct{}),
		started: make(chan int, 3),
	}
	ctrl := newTestController(&fakeSource{pages: 2}, extractor)

	require.NoError(t, ctrl.Start(context.Background(), "exam.pdf"))
	<-extractor.started // page 1 extraction is now in flight

	ctrl.Reset()
	close(extractor.block) // let the abandoned run resolve

	// The late-resolving extraction must never touch the new state.
	assert.Never(t, func() bool {
		return ctrl.Snapshot().Status != models.PipelineIdle
	}, 300*time.Millisecond, 20*time.Millisecond)

	// The controller is immediately usable for a fresh run; the closed
	// block channel no longer gates the extractor.
	require.NoError(t, ctrl.Run(context.Background(), "next.pdf"))
	assert.Equal(t, models.PipelineCompleted, ctrl.Snapshot().Status)
}
