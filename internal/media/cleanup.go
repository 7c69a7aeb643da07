package media

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// JanitorConfig controls the concurrency characteristics of the janitor.
type JanitorConfig struct {
	QueueSize int
	Workers   int
}

// Janitor asynchronously deletes objects whose database binding was lost,
// typically because a record insert failed after its asset was uploaded.
type Janitor struct {
	store  ObjectStore
	logger *slog.Logger

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

var errJanitorClosed = errors.New("media janitor closed")

// NewJanitor constructs a background worker pool that removes orphaned objects.
func NewJanitor(store ObjectStore, cfg JanitorConfig, logger *slog.Logger) *Janitor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	j := &Janitor{
		store:  store,
		logger: logger,
		jobs:   make(chan string, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	j.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go j.worker()
	}

	return j
}

// Discard schedules deletion of the supplied object keys. Empty keys are
// ignored.
func (j *Janitor) Discard(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if key == "" {
			continue
		}

		// The send happens under the mutex so Shutdown cannot close the
		// channel between the closed check and the enqueue.
		j.mu.Lock()
		if j.closed {
			j.mu.Unlock()
			return errJanitorClosed
		}

		select {
		case <-ctx.Done():
			j.mu.Unlock()
			return ctx.Err()
		case j.jobs <- key:
			j.mu.Unlock()
		}
	}
	return nil
}

// Shutdown waits for the worker pool to drain outstanding deletions.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.jobs)
		j.mu.Unlock()
		j.cancel()
	})

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (j *Janitor) worker() {
	defer j.wg.Done()

	for {
		select {
		case <-j.ctx.Done():
			j.drain()
			return
		case key, ok := <-j.jobs:
			if !ok {
				return
			}
			j.remove(key)
		}
	}
}

func (j *Janitor) drain() {
	for {
		select {
		case key, ok := <-j.jobs:
			if !ok {
				return
			}
			j.remove(key)
		default:
			return
		}
	}
}

func (j *Janitor) remove(key string) {
	if j.store == nil {
		j.logger.Error("media janitor missing object store", "key", key)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := j.store.Delete(ctx, key); err != nil {
		j.logger.Error("delete orphaned object", "key", key, "error", err)
	}
}
