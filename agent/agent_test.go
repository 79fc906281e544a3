package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarsden/strongbox/container"
	"github.com/tmarsden/strongbox/vault"
)

type sentRound struct {
	classID string
	token   string
	payload []byte
}

// fakeTransport records everything the manager sends.
type fakeTransport struct {
	rollCalls int
	sent      []sentRound
	cancelled []string
	sendErr   error
}

func (f *fakeTransport) RollCall(ctx context.Context) error {
	f.rollCalls++
	return nil
}

func (f *fakeTransport) SendSecrets(ctx context.Context, classID, token string, payload []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentRound{classID: classID, token: token, payload: payload})
	return nil
}

func (f *fakeTransport) Cancel(ctx context.Context, classID string) error {
	f.cancelled = append(f.cancelled, classID)
	return nil
}

func (f *fakeTransport) lastSent(t *testing.T) sentRound {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func newTestManager(t *testing.T) (*Manager, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	return NewManager(transport), transport
}

func testSecrets(t *testing.T) []*vault.Secret {
	t.Helper()
	s := vault.NewSecret("Email")
	s.SetUsername("bob")
	s.SetPasswordSilent("hunter2")
	return []*vault.Secret{s}
}

// startRound registers an agent and opens a sync round with it,
// returning the token that went out.
func startRound(t *testing.T, m *Manager, transport *fakeTransport, classID string) string {
	t.Helper()
	m.HandleRollCallResponse(classID, "Agent "+classID)
	require.NoError(t, m.SendSecrets(context.Background(), classID, testSecrets(t)))
	return transport.lastSent(t).token
}

func TestRollCall(t *testing.T) {
	t.Run("ClearsRoster", func(t *testing.T) {
		m, transport := newTestManager(t)
		m.HandleRollCallResponse("org.example.sync", "Example Sync")
		require.Len(t, m.Agents(), 1)

		require.NoError(t, m.RollCall(context.Background()))

		assert.Empty(t, m.Agents())
		assert.Equal(t, 1, transport.rollCalls)
	})
}

func TestHandleRollCallResponse(t *testing.T) {
	t.Run("RegistersAgent", func(t *testing.T) {
		m, _ := newTestManager(t)
		m.HandleRollCallResponse("org.example.sync", "Example Sync")

		agents := m.Agents()
		require.Len(t, agents, 1)
		assert.Equal(t, "org.example.sync", agents[0].ClassID)
		assert.Equal(t, "Example Sync", agents[0].DisplayName)
	})

	t.Run("RejectsMissingFields", func(t *testing.T) {
		m, _ := newTestManager(t)
		m.HandleRollCallResponse("", "Example Sync")
		m.HandleRollCallResponse("org.example.sync", "")

		assert.Empty(t, m.Agents())
	})

	t.Run("SortedByDisplayName", func(t *testing.T) {
		m, _ := newTestManager(t)
		m.HandleRollCallResponse("org.zeta", "Zeta")
		m.HandleRollCallResponse("org.alpha", "Alpha")

		agents := m.Agents()
		require.Len(t, agents, 2)
		assert.Equal(t, "Alpha", agents[0].DisplayName)
		assert.Equal(t, "Zeta", agents[1].DisplayName)
	})

	t.Run("SameClassIDReplaces", func(t *testing.T) {
		m, _ := newTestManager(t)
		m.HandleRollCallResponse("org.example.sync", "Old Name")
		m.HandleRollCallResponse("org.example.sync", "New Name")

		agents := m.Agents()
		require.Len(t, agents, 1)
		assert.Equal(t, "New Name", agents[0].DisplayName)
	})
}

func TestSendSecrets(t *testing.T) {
	t.Run("SendsPayloadAndToken", func(t *testing.T) {
		m, transport := newTestManager(t)
		token := startRound(t, m, transport, "org.example.sync")

		sent := transport.lastSent(t)
		assert.Equal(t, "org.example.sync", sent.classID)
		assert.NotEmpty(t, token)
		assert.True(t, m.Active())

		secrets, err := container.UnmarshalSecrets(sent.payload)
		require.NoError(t, err)
		require.Len(t, secrets, 1)
		assert.Equal(t, "Email", secrets[0].Description())
		assert.Equal(t, "bob", secrets[0].Username())
	})

	t.Run("UnknownAgent", func(t *testing.T) {
		m, _ := newTestManager(t)
		err := m.SendSecrets(context.Background(), "org.ghost", testSecrets(t))
		require.ErrorIs(t, err, ErrUnknownAgent)
		assert.False(t, m.Active())
	})

	t.Run("TransportFailure", func(t *testing.T) {
		m, transport := newTestManager(t)
		m.HandleRollCallResponse("org.example.sync", "Example Sync")
		transport.sendErr = errors.New("wire down")

		err := m.SendSecrets(context.Background(), "org.example.sync", testSecrets(t))
		require.Error(t, err)
		assert.False(t, m.Active())
	})

	t.Run("FreshTokenPerRound", func(t *testing.T) {
		m, transport := newTestManager(t)
		first := startRound(t, m, transport, "org.example.sync")
		require.NoError(t, m.SendSecrets(context.Background(), "org.example.sync", testSecrets(t)))
		second := transport.lastSent(t).token

		assert.NotEqual(t, first, second)
	})
}

func TestHandleResponse(t *testing.T) {
	responsePayload := func(t *testing.T, description string) []byte {
		t.Helper()
		payload, err := container.MarshalSecrets([]*vault.Secret{vault.NewSecret(description)})
		require.NoError(t, err)
		return payload
	}

	t.Run("AcceptsValidResponse", func(t *testing.T) {
		m, transport := newTestManager(t)
		token := startRound(t, m, transport, "org.example.sync")

		secrets, ok := m.HandleResponse("org.example.sync", token, responsePayload(t, "Bank"))
		require.True(t, ok)
		require.Len(t, secrets, 1)
		assert.Equal(t, "Bank", secrets[0].Description())
		assert.False(t, m.Active())
	})

	t.Run("ReplayRejected", func(t *testing.T) {
		m, transport := newTestManager(t)
		token := startRound(t, m, transport, "org.example.sync")
		payload := responsePayload(t, "Bank")

		_, ok := m.HandleResponse("org.example.sync", token, payload)
		require.True(t, ok)

		_, ok = m.HandleResponse("org.example.sync", token, payload)
		assert.False(t, ok)
	})

	t.Run("UnknownAgentRejected", func(t *testing.T) {
		m, transport := newTestManager(t)
		token := startRound(t, m, transport, "org.example.sync")

		_, ok := m.HandleResponse("org.ghost", token, responsePayload(t, "Bank"))
		assert.False(t, ok)
		assert.True(t, m.Active())
	})

	t.Run("WrongAgentRejected", func(t *testing.T) {
		m, transport := newTestManager(t)
		m.HandleRollCallResponse("org.other", "Other")
		token := startRound(t, m, transport, "org.example.sync")

		_, ok := m.HandleResponse("org.other", token, responsePayload(t, "Bank"))
		assert.False(t, ok)
	})

	t.Run("WrongTokenRejectedWithoutEndingRound", func(t *testing.T) {
		m, transport := newTestManager(t)
		token := startRound(t, m, transport, "org.example.sync")

		_, ok := m.HandleResponse("org.example.sync", "bogus", responsePayload(t, "Bank"))
		require.False(t, ok)
		require.True(t, m.Active())

		_, ok = m.HandleResponse("org.example.sync", token, responsePayload(t, "Bank"))
		assert.True(t, ok)
	})

	t.Run("NoRoundOutstanding", func(t *testing.T) {
		m, _ := newTestManager(t)
		m.HandleRollCallResponse("org.example.sync", "Example Sync")

		_, ok := m.HandleResponse("org.example.sync", "anything", responsePayload(t, "Bank"))
		assert.False(t, ok)
	})

	t.Run("NilPayloadEndsRoundWithoutSecrets", func(t *testing.T) {
		m, transport := newTestManager(t)
		token := startRound(t, m, transport, "org.example.sync")

		secrets, ok := m.HandleResponse("org.example.sync", token, nil)
		require.True(t, ok)
		assert.Nil(t, secrets)
		assert.False(t, m.Active())
	})

	t.Run("GarbagePayloadEndsRoundWithoutSecrets", func(t *testing.T) {
		m, transport := newTestManager(t)
		token := startRound(t, m, transport, "org.example.sync")

		secrets, ok := m.HandleResponse("org.example.sync", token, []byte("junk"))
		require.True(t, ok)
		assert.Nil(t, secrets)
		assert.False(t, m.Active())
	})
}

func TestCancel(t *testing.T) {
	t.Run("NotifiesAgentAndBlocksLateResponse", func(t *testing.T) {
		m, transport := newTestManager(t)
		token := startRound(t, m, transport, "org.example.sync")

		require.NoError(t, m.Cancel(context.Background()))
		assert.Equal(t, []string{"org.example.sync"}, transport.cancelled)
		assert.False(t, m.Active())

		_, ok := m.HandleResponse("org.example.sync", token, nil)
		assert.False(t, ok)
	})

	t.Run("RegeneratesToken", func(t *testing.T) {
		m, transport := newTestManager(t)
		token := startRound(t, m, transport, "org.example.sync")

		require.NoError(t, m.Cancel(context.Background()))
		assert.NotEqual(t, token, m.token)
	})

	t.Run("NoRoundIsANoOp", func(t *testing.T) {
		m, transport := newTestManager(t)
		require.NoError(t, m.Cancel(context.Background()))
		assert.Empty(t, transport.cancelled)
	})
}
