package store

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

// Writer saves profiles in the background so gameplay never waits on the
// store. Saves for one player are applied in order and coalesced: if a newer
// profile arrives while an older one is in flight, only the newest is
// written next. Failed saves are retried with exponential backoff.
type Writer struct {
	store    Store
	clock    quartz.Clock
	logger   zerolog.Logger
	attempts int
	backoff  time.Duration
	timeout  time.Duration

	mu    sync.Mutex
	slots map[string]*slot
	wg    sync.WaitGroup
}

type slot struct {
	next *Profile
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterClock sets the clock used for retry backoff.
func WithWriterClock(clock quartz.Clock) WriterOption {
	return func(w *Writer) { w.clock = clock }
}

// WithRetry sets the number of attempts per profile and the first backoff.
func WithRetry(attempts int, backoff time.Duration) WriterOption {
	return func(w *Writer) {
		w.attempts = max(attempts, 1)
		w.backoff = backoff
	}
}

// WithWriterLogger sets the parent logger.
func WithWriterLogger(logger zerolog.Logger) WriterOption {
	return func(w *Writer) { w.logger = logger }
}

// NewWriter returns a writer in front of s.
func NewWriter(s Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store:    s,
		clock:    quartz.NewReal(),
		logger:   zerolog.Nop(),
		attempts: 5,
		backoff:  500 * time.Millisecond,
		timeout:  5 * time.Second,
		slots:    make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With().Str("component", "store_writer").Logger()
	return w
}

// Save queues p. It never blocks on the store.
func (w *Writer) Save(p Profile) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, busy := w.slots[p.PlayerID]; busy {
		s.next = &p
		return
	}
	w.slots[p.PlayerID] = &slot{next: &p}
	w.wg.Add(1)
	go w.run(p.PlayerID)
}

// Wait blocks until every queued profile has been written or given up on.
func (w *Writer) Wait() {
	w.wg.Wait()
}

// run writes the newest queued profile for id, then frees the slot once
// nothing newer is waiting.
func (w *Writer) run(id string) {
	w.mu.Lock()
	s := w.slots[id]
	p := s.next
	if p == nil {
		delete(w.slots, id)
		w.mu.Unlock()
		w.wg.Done()
		return
	}
	s.next = nil
	w.mu.Unlock()
	w.try(id, *p, 1)
}

func (w *Writer) try(id string, p Profile, attempt int) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	err := w.store.Save(ctx, p)
	cancel()
	if err == nil {
		w.run(id)
		return
	}
	if attempt >= w.attempts {
		w.logger.Error().Err(err).Str("player_id", id).Int("chips", p.Chips).Int("attempts", attempt).Msg("Giving up saving profile")
		w.run(id)
		return
	}

	delay := w.backoff << (attempt - 1)
	w.logger.Warn().Err(err).Str("player_id", id).Int("attempt", attempt).Dur("retry_in", delay).Msg("Profile save failed, retrying")
	w.clock.AfterFunc(delay, func() {
		w.mu.Lock()
		newer := w.slots[id].next != nil
		w.mu.Unlock()
		if newer {
			w.run(id)
			return
		}
		w.try(id, p, attempt+1)
	}, "store", "retry")
}
