package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []int64
	done    chan int64
	fail    map[int64]bool
	pending []domain.Ticket
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{done: make(chan int64, 16), fail: map[int64]bool{}}
}

func (f *fakeRunner) ApplyTriage(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	fail := f.fail[id]
	f.mu.Unlock()
	defer func() { f.done <- id }()
	if fail {
		return false, errors.New("model down")
	}
	return true, nil
}

func (f *fakeRunner) PendingTriage(context.Context, int) ([]domain.Ticket, error) {
	return f.pending, nil
}

func waitFor(t *testing.T, ch <-chan int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for triage %d/%d", i+1, n)
		}
	}
}

func TestTriageWorkerProcessesCreatedTickets(t *testing.T) {
	runner := newFakeRunner()
	runner.fail[2] = true
	metrics := observability.NewMetrics()
	w := NewTriageWorker(runner, zap.NewNop(), metrics, TriageConfig{Workers: 2})

	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	w.Subscribe(dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	for _, id := range []int64{1, 2} {
		_ = dispatcher.Publish(ctx, events.NewEvent(events.EventTicketCreated, id, events.SystemActor, nil))
	}
	waitFor(t, runner.done, 2)

	cancel()
	w.Wait()

	// metrics are recorded after ApplyTriage returns, so check after Wait.
	snap := metrics.Snapshot()
	if snap.Triage["applied"] != 1 || snap.Triage["failed"] != 1 {
		t.Errorf("triage metrics = %v", snap.Triage)
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	w := NewTriageWorker(newFakeRunner(), zap.NewNop(), nil, TriageConfig{QueueSize: 1})
	if !w.Enqueue(1) {
		t.Fatal("first enqueue should succeed")
	}
	if w.Enqueue(1) {
		t.Error("duplicate enqueue should be dropped")
	}
	if w.Enqueue(2) {
		t.Error("enqueue into a full queue should be dropped")
	}
}

func TestSweeperQueuesPending(t *testing.T) {
	runner := newFakeRunner()
	runner.pending = []domain.Ticket{{ID: 5}, {ID: 6}}
	w := NewTriageWorker(runner, zap.NewNop(), nil, TriageConfig{})

	sweeper, err := NewTriageSweeper("@every 1m", runner, w, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if got := sweeper.Sweep(context.Background()); got != 2 {
		t.Errorf("queued %d, want 2", got)
	}
	// both are still queued, so a second sweep adds nothing
	if got := sweeper.Sweep(context.Background()); got != 0 {
		t.Errorf("second sweep queued %d, want 0", got)
	}
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	if _, err := NewTriageSweeper("every minute", newFakeRunner(), nil, zap.NewNop()); err == nil {
		t.Fatal("expected schedule error")
	}
}
