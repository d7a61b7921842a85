package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/metrics"
)

// ErrClosed is returned when enqueueing after Shutdown.
var ErrClosed = errors.New("queue is shutting down")

// Job is one background pass over one document.
type Job struct {
	ProposalID  uuid.UUID
	DocumentID  string
	SubmittedAt time.Time
	TraceID     string
}

// DocumentProcessor is the work a job runs.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, proposalID uuid.UUID, docID string) error
}

type ProcessorQueue struct {
	proc    DocumentProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc DocumentProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)
				for job := range q.ch {
					metrics.QueueDepth.Set(float64(len(q.ch)))
					q.run(workerID, job)
				}
				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx := context.Background()
	if job.TraceID != "" {
		ctx = common.WithTraceID(ctx, job.TraceID)
	}
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	start := time.Now()
	err := q.proc.ProcessDocument(ctx, job.ProposalID, job.DocumentID)
	log := q.logger.With(
		"worker_id", workerID,
		"proposal_id", job.ProposalID,
		"document_id", job.DocumentID,
		"wait_ms", start.Sub(job.SubmittedAt).Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.Error("queue.job.failed", "error", err)
		return
	}
	log.Info("queue.job.done")
}

// Enqueue blocks when the buffer is full until a worker frees a slot or ctx
// is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "proposal_id", job.ProposalID, "document_id", job.DocumentID)
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.full.backpressure", "proposal_id", job.ProposalID, "document_id", job.DocumentID, "size", cap(q.ch))
		select {
		case q.ch <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	metrics.QueueDepth.Set(float64(len(q.ch)))
	q.logger.Debug("queue.job.queued", "proposal_id", job.ProposalID, "document_id", job.DocumentID)
	return nil
}

// Schedule queues a document pass, taking the trace id from ctx.
func (q *ProcessorQueue) Schedule(ctx context.Context, proposalID uuid.UUID, docID string) error {
	trace := common.TraceIDFromContext(ctx)
	if trace == "" {
		trace = common.RequestIDFromContext(ctx)
	}
	return q.Enqueue(ctx, Job{ProposalID: proposalID, DocumentID: docID, SubmittedAt: time.Now(), TraceID: trace})
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
