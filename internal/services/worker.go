package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/exam-grader/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(sessionID uuid.UUID)
}

type worker struct {
	sessionRepo    repositories.GradingSessionRepository
	sessionService GradingSessionService
	jobQueue       chan uuid.UUID
	concurrency    int
	wg             sync.WaitGroup
	stopChan       chan struct{}
}

func NewWorker(
	sessionRepo repositories.GradingSessionRepository,
	sessionService GradingSessionService,
	concurrency int,
) Worker {
	return &worker{
		sessionRepo:    sessionRepo,
		sessionService: sessionService,
		jobQueue:       make(chan uuid.UUID, 100),
		concurrency:    concurrency,
		stopChan:       make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	log.Printf("🚀 Starting worker with %d concurrent workers", w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	// Pick up sessions that were queued before a restart.
	w.wg.Add(1)
	go w.pollPendingJobs(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	log.Println("🛑 Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	log.Println("✅ Worker stopped")
}

// EnqueueJob implements Worker.
func (w *worker) EnqueueJob(sessionID uuid.UUID) {
	select {
	case w.jobQueue <- sessionID:
		log.Printf("📥 Grading session %s enqueued", sessionID)
	case <-w.stopChan:
		log.Printf("⚠️  Worker stopped, cannot enqueue session %s", sessionID)
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			log.Printf("👷 Worker #%d stopped", workerID)
			return
		case sessionID := <-w.jobQueue:
			log.Printf("👷 Worker #%d processing session %s", workerID, sessionID)
			if err := w.sessionService.GradeSession(ctx, sessionID); err != nil {
				log.Printf("❌ Worker #%d failed to process session %s: %v", workerID, sessionID, err)
			} else {
				log.Printf("✅ Worker #%d completed session %s", workerID, sessionID)
			}
		}
	}
}

func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			pendingJobs, err := w.sessionRepo.FindPendingJobs(10)
			if err != nil {
				log.Printf("⚠️  Failed to fetch pending sessions: %v", err)
				continue
			}

			if len(pendingJobs) > 0 {
				log.Printf("📋 Found %d pending grading sessions", len(pendingJobs))
			}

			for _, job := range pendingJobs {
				w.EnqueueJob(job.ID)
			}
		}
	}
}
