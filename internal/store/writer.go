package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/liftmeet-backend/internal/engine"
)

type pendingSave struct {
	version int
	state   engine.State
}

// Writer persists committed states off the session goroutines. Only the latest
// pending state per session is kept, so a slow database coalesces bursts.
type Writer struct {
	store   Store
	log     *zap.Logger
	timeout time.Duration
	retry   time.Duration

	mu      sync.Mutex
	pending map[string]pendingSave
	signal  chan struct{}
}

func NewWriter(s Store, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		store:   s,
		log:     log.Named("writer"),
		timeout: 5 * time.Second,
		retry:   time.Second,
		pending: make(map[string]pendingSave),
		signal:  make(chan struct{}, 1),
	}
}

// Persist queues state for saving and never blocks.
func (w *Writer) Persist(version int, state engine.State) {
	w.mu.Lock()
	if cur, ok := w.pending[state.SessionID]; ok && cur.version >= version {
		w.mu.Unlock()
		return
	}
	w.pending[state.SessionID] = pendingSave{version: version, state: state}
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is done, then makes one final flush. A failed
// flush is retried after a delay even if nothing new is persisted.
func (w *Writer) Run(ctx context.Context) error {
	var retry <-chan time.Time
	flush := func() {
		retry = nil
		if err := w.Flush(ctx); err != nil && ctx.Err() == nil {
			retry = time.After(w.retry)
		}
	}
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), w.timeout)
			defer cancel()
			if err := w.Flush(flushCtx); err != nil {
				w.log.Error("final flush failed", zap.Error(err))
			}
			return nil
		case <-w.signal:
			flush()
		case <-retry:
			flush()
		}
	}
}

// Flush saves everything queued so far. Failed saves are requeued unless a newer state arrived.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]pendingSave)
	w.mu.Unlock()

	var errs []error
	for id, p := range batch {
		saveCtx, cancel := context.WithTimeout(ctx, w.timeout)
		err := w.store.SaveSession(saveCtx, p.version, p.state)
		cancel()
		if err != nil {
			w.log.Warn("persist failed", zap.String("session_id", id), zap.Int("version", p.version), zap.Error(err))
			errs = append(errs, err)
			w.requeue(id, p)
			continue
		}
		w.log.Debug("persisted", zap.String("session_id", id), zap.Int("version", p.version))
	}
	return errors.Join(errs...)
}

func (w *Writer) requeue(id string, p pendingSave) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cur, ok := w.pending[id]; ok && cur.version >= p.version {
		return
	}
	w.pending[id] = p
}
