package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"talentflow/interview-grader/internal/config"
	"talentflow/interview-grader/internal/repositories"
)

var ErrWorkerStopped = errors.New("grading worker stopped")

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueCandidate(candidateID uuid.UUID)
	EnsureGraded(ctx context.Context, candidateID uuid.UUID) (*GradingOutcome, error)
}

type job struct {
	candidateID uuid.UUID
	reply       chan jobResult
}

type jobResult struct {
	outcome *GradingOutcome
	err     error
}

type worker struct {
	candidateRepo  repositories.CandidateRepository
	orchestrator   GradingOrchestrator
	jobQueue       chan job
	concurrency    int
	pollerInterval time.Duration
	claimLease     time.Duration
	wg             sync.WaitGroup
	stopChan       chan struct{}
	stopOnce       sync.Once

	mu      sync.Mutex
	pending map[uuid.UUID]struct{}
}

func NewWorker(
	candidateRepo repositories.CandidateRepository,
	orchestrator GradingOrchestrator,
	cfg config.GradingConfig,
) Worker {
	concurrency := cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &worker{
		candidateRepo:  candidateRepo,
		orchestrator:   orchestrator,
		jobQueue:       make(chan job, cfg.QueueSize),
		concurrency:    concurrency,
		pollerInterval: cfg.PollerInterval(),
		claimLease:     cfg.ClaimLease(),
		stopChan:       make(chan struct{}),
		pending:        make(map[uuid.UUID]struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	log.WithField("concurrency", w.concurrency).Info("🚀 Starting grading worker")

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	if w.pollerInterval > 0 {
		w.wg.Add(1)
		go w.pollPendingGrading(ctx)
	}

	log.Info("✅ Grading worker started successfully")
}

// Stop implements Worker.
func (w *worker) Stop() {
	log.Info("🛑 Stopping grading worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	log.Info("✅ Grading worker stopped")
}

// EnqueueCandidate implements Worker. A candidate already waiting in the
// queue is not queued twice; a full queue is left to the poller.
func (w *worker) EnqueueCandidate(candidateID uuid.UUID) {
	logger := log.WithField("candidate_id", candidateID)

	w.mu.Lock()
	if _, ok := w.pending[candidateID]; ok {
		w.mu.Unlock()
		return
	}
	w.pending[candidateID] = struct{}{}
	w.mu.Unlock()

	select {
	case w.jobQueue <- job{candidateID: candidateID}:
		logger.Debug("📥 Grading job enqueued")
	case <-w.stopChan:
		w.clearPending(candidateID)
		logger.Warn("⚠️ Worker stopped, cannot enqueue grading job")
	default:
		w.clearPending(candidateID)
		logger.Warn("⚠️ Grading queue full, leaving candidate to the poller")
	}
}

// EnsureGraded implements Worker. The pass runs on the pool under the
// worker's context, so an abandoned wait does not abort grading.
func (w *worker) EnsureGraded(ctx context.Context, candidateID uuid.UUID) (*GradingOutcome, error) {
	reply := make(chan jobResult, 1)

	select {
	case w.jobQueue <- job{candidateID: candidateID, reply: reply}:
	case <-w.stopChan:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case result := <-reply:
		return result.outcome, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *worker) clearPending(candidateID uuid.UUID) {
	w.mu.Lock()
	delete(w.pending, candidateID)
	w.mu.Unlock()
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	logger := log.WithField("worker_id", workerID)
	logger.Debug("👷 Worker started processing jobs")

	for {
		select {
		case <-w.stopChan:
			logger.Debug("👷 Worker stopped")
			return
		case <-ctx.Done():
			return
		case j := <-w.jobQueue:
			if j.reply == nil {
				w.clearPending(j.candidateID)
			}
			outcome, err := w.run(ctx, logger, j.candidateID)
			if j.reply != nil {
				j.reply <- jobResult{outcome: outcome, err: err}
			}
		}
	}
}

func (w *worker) run(ctx context.Context, logger *log.Entry, candidateID uuid.UUID) (outcome *GradingOutcome, err error) {
	logger = logger.WithField("candidate_id", candidateID)

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic_stack", string(debug.Stack())).Errorf("panic: (%v)", r)
			outcome, err = nil, fmt.Errorf("grading panicked: %v", r)
		}
	}()

	logger.Info("👷 Processing grading job")
	outcome, err = w.orchestrator.EnsureGraded(ctx, candidateID)
	if err != nil {
		logger.WithError(err).Error("❌ Grading job failed")
		return nil, err
	}

	logger.WithField("complete", outcome.Complete).Info("✅ Grading job completed")
	return outcome, nil
}

// pollPendingGrading re-enqueues candidates with unfinished answers,
// including answers whose claim was abandoned by a crashed pass.
func (w *worker) pollPendingGrading(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollerInterval)
	defer ticker.Stop()

	log.Info("🔄 Starting pending grading poller")
	w.enqueuePending()

	for {
		select {
		case <-w.stopChan:
			log.Info("🔄 Pending grading poller stopped")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.enqueuePending()
		}
	}
}

func (w *worker) enqueuePending() {
	limit := cap(w.jobQueue)
	if limit < 10 {
		limit = 10
	}

	ids, err := w.candidateRepo.FindNeedingGrading(limit, time.Now().Add(-w.claimLease))
	if err != nil {
		log.WithError(err).Warn("⚠️ Failed to fetch candidates needing grading")
		return
	}

	if len(ids) > 0 {
		log.WithField("count", len(ids)).Info("📋 Found candidates needing grading")
	}

	for _, id := range ids {
		w.EnqueueCandidate(id)
	}
}
