// Package agent manages the handshake with external sync agents.
//
// A sync agent is a separate program that can reconcile secrets with an
// outside copy, for example another device. The manager keeps a roster
// of agents that answered the last roll call, runs at most one sync
// round at a time and validates responses with a one-time token so a
// stale or unsolicited response can never be accepted.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/tmarsden/strongbox/container"
	"github.com/tmarsden/strongbox/internal/uuid"
	"github.com/tmarsden/strongbox/vault"
)

// ErrUnknownAgent is returned when a sync round is started with an
// agent that never answered a roll call.
var ErrUnknownAgent = errors.New("unknown sync agent")

// Agent identifies a sync agent by its class ID and the name it shows
// to the user.
type Agent struct {
	ClassID     string
	DisplayName string
}

// Transport delivers messages to sync agents. Implementations own the
// wire; the manager only sequences the handshake and never cares how a
// message reaches the other side.
type Transport interface {
	// RollCall asks every reachable agent to announce itself.
	RollCall(ctx context.Context) error

	// SendSecrets delivers the secrets payload and the one-time
	// response token to a single agent.
	SendSecrets(ctx context.Context, classID, token string, payload []byte) error

	// Cancel tells a single agent to abandon the outstanding round.
	Cancel(ctx context.Context, classID string) error
}

// Manager keeps the roster of known sync agents and runs sync rounds
// against them.
type Manager struct {
	transport Transport
	logger    *zap.Logger

	mu        sync.Mutex
	agents    map[string]*Agent
	requested *Agent
	token     string
	active    bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used by the manager. Defaults to a no-op
// logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager returns a Manager that talks to agents through transport.
func NewManager(transport Transport, opts ...Option) *Manager {
	m := &Manager{
		transport: transport,
		logger:    zap.NewNop(),
		agents:    make(map[string]*Agent),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RollCall forgets all previously known agents and broadcasts a fresh
// roll call. Only agents that answer are considered available.
func (m *Manager) RollCall(ctx context.Context) error {
	m.mu.Lock()
	m.agents = make(map[string]*Agent)
	m.mu.Unlock()

	if err := m.transport.RollCall(ctx); err != nil {
		return fmt.Errorf("sending roll call: %w", err)
	}
	return nil
}

// HandleRollCallResponse registers an agent that answered the roll
// call. Responses missing the class ID or the display name are dropped.
func (m *Manager) HandleRollCallResponse(classID, displayName string) {
	if classID == "" || displayName == "" {
		m.logger.Warn("invalid roll call response",
			zap.String("classID", classID),
			zap.String("displayName", displayName))
		return
	}

	m.mu.Lock()
	m.agents[classID] = &Agent{ClassID: classID, DisplayName: displayName}
	m.mu.Unlock()

	m.logger.Debug("roll call response",
		zap.String("classID", classID),
		zap.String("displayName", displayName))
}

// Agents lists the currently known sync agents, sorted by display name.
func (m *Manager) Agents() []*Agent {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]*Agent, 0, len(m.agents))
	for _, a := range m.agents {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].DisplayName != list[j].DisplayName {
			return list[i].DisplayName < list[j].DisplayName
		}
		return list[i].ClassID < list[j].ClassID
	})
	return list
}

// SendSecrets starts a sync round with the given agent. The secrets go
// out together with a fresh one-time token the agent must echo in its
// response. Starting a new round supersedes any outstanding one.
func (m *Manager) SendSecrets(ctx context.Context, classID string, secrets []*vault.Secret) error {
	m.mu.Lock()
	agent, ok := m.agents[classID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", classID, ErrUnknownAgent)
	}
	m.requested = agent
	m.token = uuid.New()
	token := m.token
	m.mu.Unlock()

	payload, err := container.MarshalSecrets(secrets)
	if err != nil {
		return fmt.Errorf("encoding secrets for sync: %w", err)
	}
	if err := m.transport.SendSecrets(ctx, classID, token, payload); err != nil {
		return fmt.Errorf("sending secrets to agent: %w", err)
	}

	m.mu.Lock()
	m.active = true
	m.mu.Unlock()

	m.logger.Debug("secrets sent to agent", zap.String("classID", classID))
	return nil
}

// Active reports whether a sync round is outstanding.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// HandleResponse validates a sync response and, when it is accepted,
// ends the round and returns the agent's secrets for merging. Invalid
// responses are logged and dropped with ok false; the sender learns
// nothing.
//
// An accepted response whose payload does not parse still ends the
// round: ok is true with nil secrets, which callers should surface as a
// failed sync.
func (m *Manager) HandleResponse(classID, token string, payload []byte) (secrets []*vault.Secret, ok bool) {
	m.mu.Lock()
	agent, known := m.agents[classID]
	switch {
	case !known:
		m.mu.Unlock()
		m.logger.Warn("sync response from unknown agent",
			zap.String("classID", classID))
		return nil, false
	case agent != m.requested:
		m.mu.Unlock()
		m.logger.Warn("unexpected sync response, no request outstanding",
			zap.String("classID", classID))
		return nil, false
	case !m.active:
		m.mu.Unlock()
		m.logger.Warn("sync response received after request was cancelled, discarded",
			zap.String("classID", classID))
		return nil, false
	case token != m.token:
		m.mu.Unlock()
		m.logger.Warn("sync response with invalid token",
			zap.String("classID", classID))
		return nil, false
	}

	// The round is over. Regenerate the token so a replay of this
	// response can never be accepted again.
	m.active = false
	m.requested = nil
	m.token = uuid.New()
	m.mu.Unlock()

	if payload == nil {
		return nil, true
	}
	secrets, err := container.UnmarshalSecrets(payload)
	if err != nil {
		m.logger.Warn("sync response with invalid payload", zap.Error(err))
		return nil, true
	}
	return secrets, true
}

// Cancel abandons the outstanding sync round. The agent is told to
// stop and the token is regenerated, so a response that arrives anyway
// can never be accepted. Cancelling with no round outstanding is a
// no-op.
func (m *Manager) Cancel(ctx context.Context) error {
	m.mu.Lock()
	if m.requested == nil || !m.active {
		m.mu.Unlock()
		return nil
	}
	classID := m.requested.ClassID
	m.active = false
	m.token = uuid.New()
	m.mu.Unlock()

	if err := m.transport.Cancel(ctx, classID); err != nil {
		return fmt.Errorf("cancelling sync: %w", err)
	}
	return nil
}
