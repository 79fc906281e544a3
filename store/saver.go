package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tmarsden/strongbox/internal/util"
)

// Saver writes containers in the background so interactive callers never
// wait on disk. Queue hands over ciphertext and returns immediately;
// while a save is in flight further Queue calls replace the pending
// bytes, so a burst of edits collapses into a single write of the most
// recent state.
type Saver struct {
	store     *Store
	logger    *zap.Logger
	afterSave func(err error)

	mu      sync.Mutex
	cond    *sync.Cond
	pending []byte
	saving  bool
	closed  bool
	stopped bool
	lastErr error
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithSaverLogger sets the logger used by the saver. Defaults to a no-op
// logger.
func WithSaverLogger(logger *zap.Logger) SaverOption {
	return func(s *Saver) { s.logger = logger }
}

// WithAfterSave registers fn to run after every save attempt with that
// attempt's error. Useful for backup bookkeeping that should follow each
// successful write.
func WithAfterSave(fn func(err error)) SaverOption {
	return func(s *Saver) { s.afterSave = fn }
}

// NewSaver starts a background saver writing through store.
func NewSaver(store *Store, opts ...SaverOption) *Saver {
	s := &Saver{
		store:  store,
		logger: zap.NewNop(),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Queue schedules data to be saved and returns without waiting for the
// write. The slice is copied, the caller may reuse it. A queued save
// that has not started yet is replaced rather than stacked.
func (s *Saver) Queue(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = util.CopyBytes(data)
	s.cond.Signal()
}

// Flush blocks until no save is queued or in flight and returns the
// error of the last completed save, if any.
func (s *Saver) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.pending != nil || s.saving {
		s.cond.Wait()
	}
	return s.lastErr
}

// Close drains any queued save and stops the background goroutine. It
// returns the error of the last completed save, if any. The Saver must
// not be used afterwards.
func (s *Saver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
	for !s.stopped {
		s.cond.Wait()
	}
	return s.lastErr
}

func (s *Saver) run() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		for s.pending == nil && !s.closed {
			s.cond.Wait()
		}
		if s.pending == nil {
			s.stopped = true
			s.cond.Broadcast()
			return
		}

		data := s.pending
		s.pending = nil
		s.saving = true
		s.mu.Unlock()

		err := s.store.Save(data)
		if err != nil {
			s.logger.Warn("background save failed", zap.Error(err))
		}
		if s.afterSave != nil {
			s.afterSave(err)
		}

		s.mu.Lock()
		s.saving = false
		s.lastErr = err
		s.cond.Broadcast()
	}
}
