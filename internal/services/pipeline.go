package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"alfredoptarigan/exam-grader/internal/models"
)

// PageExtractor turns one rendered page image into text.
type PageExtractor interface {
	ExtractPageText(ctx context.Context, image []byte, mimeType string) (string, error)
}

// ErrRunInFlight is returned by Start/Run when a transcription run is
// already active on this controller. Callers must reset (or wait) between
// documents.
var ErrRunInFlight = errors.New("a transcription run is already in flight")

// ExtractionFailedPlaceholder is stored as a page's content when its
// extraction call fails. It never appears in the combined transcript.
const ExtractionFailedPlaceholder = "Failed to extract content."

const pageImageMIMEType = "image/jpeg"

// PipelineController drives the sequential transcription of a document:
// page count, then for each page in increasing order a preview render, an
// extraction-quality render and an extraction call. Pages are never
// processed concurrently; progress is always a single current page.
//
// A page-count or render failure aborts the run with an overall error
// status. An extraction failure only marks that one page as errored and
// the loop continues, so a run can complete with any mix of completed and
// errored pages.
//
// Reset abandons the run by bumping a generation counter; every state
// mutation re-checks the generation at apply time, so anything still
// resolving from an abandoned run is discarded instead of applied.
type PipelineController struct {
	source     DocumentSource
	extractor  PageExtractor
	preview    QualityProfile
	extraction QualityProfile

	mu         sync.Mutex
	state      models.PipelineState
	generation uint64
	running    bool
	observer   func(models.PipelineState)
}

func NewPipelineController(
	source DocumentSource,
	extractor PageExtractor,
	preview QualityProfile,
	extraction QualityProfile,
) *PipelineController {
	return &PipelineController{
		source:     source,
		extractor:  extractor,
		preview:    preview,
		extraction: extraction,
		state:      models.NewPipelineState(),
	}
}

// SetObserver registers a callback invoked with a state snapshot after
// every transition. The snapshot is a deep copy; the callback must not be
// registered while a run is active.
func (p *PipelineController) SetObserver(fn func(models.PipelineState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = fn
}

// Snapshot returns a deep copy of the current pipeline state.
func (p *PipelineController) Snapshot() models.PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// CombinedTranscript concatenates the content of all completed pages in
// page order, separated by a blank line. Errored and unfinished pages
// contribute nothing.
func (p *PipelineController) CombinedTranscript() string {
	state := p.Snapshot()

	var parts []string
	for _, page := range state.Pages {
		if page.Status == models.PageCompleted {
			parts = append(parts, page.Content)
		}
	}

	return strings.Join(parts, "\n\n")
}

// Start launches a transcription run in the background. It returns
// ErrRunInFlight if a run is already active.
func (p *PipelineController) Start(ctx context.Context, documentPath string) error {
	gen, err := p.beginRun()
	if err != nil {
		return err
	}

	go func() {
		if err := p.run(ctx, documentPath, gen); err != nil {
			log.Printf("❌ Transcription run failed: %v", err)
		}
	}()

	return nil
}

// Run executes a transcription run synchronously. It returns
// ErrRunInFlight if a run is already active, and otherwise the fatal
// error of the run, if any. Per-page extraction failures are not fatal
// and do not surface here.
func (p *PipelineController) Run(ctx context.Context, documentPath string) error {
	gen, err := p.beginRun()
	if err != nil {
		return err
	}
	return p.run(ctx, documentPath, gen)
}

// Reset discards all state and returns the controller to idle. Any still
// pending operation from the abandoned run is invalidated and will not
// touch the new state.
func (p *PipelineController) Reset() {
	p.mu.Lock()
	p.generation++
	p.running = false
	p.state = models.NewPipelineState()
	snapshot := p.state.Clone()
	observer := p.observer
	p.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
}

func (p *PipelineController) beginRun() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return 0, ErrRunInFlight
	}

	p.running = true
	p.state = models.PipelineState{Status: models.PipelineLoading}
	return p.generation, nil
}

func (p *PipelineController) endRun(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen == p.generation {
		p.running = false
	}
}

// apply mutates the state and publishes a snapshot, unless the run's
// generation has been invalidated by a reset. Returns false when stale;
// the caller must then abandon the run without further effects.
func (p *PipelineController) apply(gen uint64, mutate func(*models.PipelineState)) bool {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return false
	}
	if mutate != nil {
		mutate(&p.state)
	}
	snapshot := p.state.Clone()
	observer := p.observer
	p.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
	return true
}

func (p *PipelineController) run(ctx context.Context, documentPath string, gen uint64) error {
	defer p.endRun(gen)

	log.Printf("🔄 Starting transcription run for %s", documentPath)

	// Publish the loading state set by beginRun.
	if !p.apply(gen, nil) {
		return nil
	}

	total, err := p.source.PageCount(ctx, documentPath)
	if err != nil {
		p.apply(gen, func(s *models.PipelineState) {
			s.Status = models.PipelineError
			s.ErrorMessage = "Unable to read the document. It may be corrupt or unsupported."
		})
		return err
	}

	p.apply(gen, func(s *models.PipelineState) {
		s.Status = models.PipelineProcessing
		s.TotalPages = total
		if total > 0 {
			s.CurrentPage = 1
		}
		s.Pages = make([]models.PageRecord, total)
		for i := range s.Pages {
			s.Pages[i] = models.PageRecord{PageNumber: i + 1, Status: models.PagePending}
		}
	})

	for i := 1; i <= total; i++ {
		if !p.apply(gen, func(s *models.PipelineState) { s.CurrentPage = i }) {
			return nil
		}

		// A page must have its preview before it can be tracked as
		// in-progress, so a preview failure aborts the whole run.
		preview, err := p.source.RenderPage(ctx, documentPath, i, p.preview)
		if err != nil {
			p.apply(gen, func(s *models.PipelineState) {
				s.Status = models.PipelineError
				s.ErrorMessage = fmt.Sprintf("Failed to render page %d.", i)
			})
			return err
		}

		if !p.apply(gen, func(s *models.PipelineState) {
			s.Pages[i-1].PreviewImage = preview
			s.Pages[i-1].Status = models.PageProcessing
		}) {
			return nil
		}

		pageImage, err := p.source.RenderPage(ctx, documentPath, i, p.extraction)
		if err != nil {
			p.apply(gen, func(s *models.PipelineState) {
				s.Status = models.PipelineError
				s.ErrorMessage = fmt.Sprintf("Failed to render page %d.", i)
			})
			return err
		}

		text, err := p.extractor.ExtractPageText(ctx, pageImage, pageImageMIMEType)
		if err != nil {
			// Local failure: mark the page and keep going.
			log.Printf("⚠️  Extraction failed for page %d: %v", i, err)
			if !p.apply(gen, func(s *models.PipelineState) {
				s.Pages[i-1].Content = ExtractionFailedPlaceholder
				s.Pages[i-1].Status = models.PageError
			}) {
				return nil
			}
			continue
		}

		if !p.apply(gen, func(s *models.PipelineState) {
			s.Pages[i-1].Content = text
			s.Pages[i-1].Status = models.PageCompleted
		}) {
			return nil
		}
	}

	p.apply(gen, func(s *models.PipelineState) {
		s.Status = models.PipelineCompleted
	})

	log.Printf("✅ Transcription run finished for %s (%d pages)", documentPath, total)
	return nil
}
