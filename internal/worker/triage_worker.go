package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/service"
)

// TriageRunner is the part of the ticket service the workers drive.
type TriageRunner interface {
	ApplyTriage(ctx context.Context, id int64) (bool, error)
	PendingTriage(ctx context.Context, limit int) ([]domain.Ticket, error)
}

// TriageConfig sizes the worker pool.
type TriageConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// TriageWorker runs automated triage on a bounded goroutine pool so ticket
// creation never waits for the model.
type TriageWorker struct {
	runner  TriageRunner
	logger  *zap.Logger
	metrics *observability.Metrics
	cfg     TriageConfig

	jobs     chan int64
	mu       sync.Mutex
	inflight map[int64]struct{}
	wg       sync.WaitGroup
}

// NewTriageWorker builds an idle worker pool.
func NewTriageWorker(runner TriageRunner, logger *zap.Logger, metrics *observability.Metrics, cfg TriageConfig) *TriageWorker {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &TriageWorker{
		runner:   runner,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		jobs:     make(chan int64, cfg.QueueSize),
		inflight: make(map[int64]struct{}),
	}
}

// Subscribe enqueues every newly created ticket.
func (w *TriageWorker) Subscribe(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, event events.Event) error {
		w.Enqueue(event.TicketID)
		return nil
	})
}

// Start launches the pool; workers exit when ctx is cancelled.
func (w *TriageWorker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go w.loop(ctx)
	}
	w.logger.Info("triage workers started", zap.Int("workers", w.cfg.Workers))
}

// Wait blocks until every worker has exited.
func (w *TriageWorker) Wait() {
	w.wg.Wait()
}

// Enqueue schedules a ticket for triage. It never blocks: when the queue is
// full or the ticket is already queued the call is dropped and the sweeper
// picks the ticket up later.
func (w *TriageWorker) Enqueue(id int64) bool {
	w.mu.Lock()
	if _, queued := w.inflight[id]; queued {
		w.mu.Unlock()
		return false
	}
	w.inflight[id] = struct{}{}
	w.mu.Unlock()

	select {
	case w.jobs <- id:
		return true
	default:
		w.release(id)
		w.logger.Warn("triage queue full", zap.Int64("ticket_id", id))
		return false
	}
}

func (w *TriageWorker) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-w.jobs:
			w.process(ctx, id)
		}
	}
}

func (w *TriageWorker) process(ctx context.Context, id int64) {
	defer w.release(id)

	runCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	applied, err := w.runner.ApplyTriage(runCtx, id)
	switch {
	case err != nil:
		w.metrics.RecordTriage("failed")
		w.logger.Warn("triage failed", zap.Int64("ticket_id", id), zap.Error(err))
	case applied:
		w.metrics.RecordTriage("applied")
		w.logger.Info("ticket triaged", zap.Int64("ticket_id", id))
	default:
		w.metrics.RecordTriage("skipped")
	}
}

func (w *TriageWorker) release(id int64) {
	w.mu.Lock()
	delete(w.inflight, id)
	w.mu.Unlock()
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
