package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
	"go.uber.org/zap"

	"github.com/tmarsden/strongbox/crypto"
	"github.com/tmarsden/strongbox/internal/util"
)

// Session holds the key material derived from the master password for an
// unlocked vault. The key lives in a memguard enclave and only surfaces
// long enough to build a cipher pair. Callers must call Lock() when done
// (e.g. defer session.Lock()) to destroy the key material.
type Session struct {
	mu     sync.Mutex
	key    *memguard.Enclave
	salt   []byte
	rounds int
	logger *zap.Logger
}

// SessionOption configures a session at unlock time.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	logger *zap.Logger
}

// WithSessionLogger sets the logger the session reports through.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// Unlock derives the vault key from the master password and returns a
// session wrapping it. When salt is empty or rounds is zero, a fresh salt
// is generated and the work factor is calibrated for this device; that is
// the first-run path, and also how a vault gets new parameters on a
// password change.
//
// Derivation is deliberately slow. The context is checked before the work
// starts; callers wanting a responsive UI run Unlock off their main loop.
func Unlock(ctx context.Context, password string, salt []byte, rounds int, opts ...SessionOption) (*Session, error) {
	options := sessionOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&options)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(salt) == 0 || rounds == 0 {
		var err error
		salt, err = crypto.NewSalt()
		if err != nil {
			return nil, fmt.Errorf("unlocking vault: %w", err)
		}
		rounds, err = crypto.DetermineBestRounds()
		if err != nil {
			return nil, fmt.Errorf("unlocking vault: %w", err)
		}
		options.logger.Info("calibrated key derivation",
			zap.Int("rounds", rounds))
	}

	key, err := crypto.DeriveKey(password, salt, rounds)
	if err != nil {
		return nil, fmt.Errorf("unlocking vault: %w", err)
	}

	// NewEnclave wipes the key slice after sealing it.
	return &Session{
		key:    memguard.NewEnclave(key),
		salt:   util.CopyBytes(salt),
		rounds: rounds,
		logger: options.logger,
	}, nil
}

// CipherInfo materializes a fresh cipher pair from the session key. The
// caller owns the returned value and should Destroy it after use.
func (s *Session) CipherInfo() (*crypto.CipherInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil {
		return nil, ErrSessionLocked
	}

	buf, err := s.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening key enclave: %w", err)
	}
	defer buf.Destroy()

	return crypto.NewCipherInfo(buf.Bytes(), s.salt, s.rounds), nil
}

// Salt returns a copy of the key derivation salt.
func (s *Session) Salt() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return util.CopyBytes(s.salt)
}

// Rounds returns the log2 work factor of the session key.
func (s *Session) Rounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rounds
}

// Locked reports whether the session key has been destroyed.
func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key == nil
}

// Lock destroys the session key material. The session is unusable
// afterwards; unlocking again means deriving a fresh key.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.key = nil
	s.logger.Debug("session locked")
}
