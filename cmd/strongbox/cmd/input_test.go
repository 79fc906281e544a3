package cmd

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarsden/strongbox/vault"
)

func stubReadPassword(t *testing.T, passwords ...string) {
	t.Helper()
	old := readPassword
	i := 0
	readPassword = func(fd int) ([]byte, error) {
		if i >= len(passwords) {
			return nil, io.EOF
		}
		pw := passwords[i]
		i++
		return []byte(pw), nil
	}
	t.Cleanup(func() { readPassword = old })
}

func TestPromptPassword(t *testing.T) {
	stubReadPassword(t, "hunter2")

	var out bytes.Buffer
	pw, err := promptPassword("Enter password: ", &out)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
	assert.Equal(t, "Enter password: \n", out.String())
}

func TestPromptNewPassword(t *testing.T) {
	t.Run("Match", func(t *testing.T) {
		stubReadPassword(t, "correct horse", "correct horse")

		var out bytes.Buffer
		pw, err := promptNewPassword(&out)
		require.NoError(t, err)
		assert.Equal(t, "correct horse", pw)
		assert.Contains(t, out.String(), "Password strength:")
	})

	t.Run("Mismatch", func(t *testing.T) {
		stubReadPassword(t, "one", "two")

		var out bytes.Buffer
		_, err := promptNewPassword(&out)
		assert.EqualError(t, err, "passwords do not match")
	})

	t.Run("Empty", func(t *testing.T) {
		stubReadPassword(t, "")

		var out bytes.Buffer
		_, err := promptNewPassword(&out)
		assert.EqualError(t, err, "password must not be empty")
	})
}

func TestPromptLine(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("  alice \n"))
	line, err := promptLine(r, "Username", &out)
	require.NoError(t, err)
	assert.Equal(t, "alice", line)
	assert.Equal(t, "Username: ", out.String())

	// A partial line before EOF still counts.
	r = bufio.NewReader(strings.NewReader("bob"))
	line, err = promptLine(r, "Username", &out)
	require.NoError(t, err)
	assert.Equal(t, "bob", line)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},
		{"", false},
		{"anything else\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		r := bufio.NewReader(strings.NewReader(tt.input))
		assert.Equal(t, tt.want, confirm(r, "Sure?", &out), "input %q", tt.input)
		assert.Equal(t, "Sure? [y/N]: ", out.String())
	}
}

func TestStrengthLabel(t *testing.T) {
	// The label text survives whether or not color output is enabled.
	assert.Contains(t, strengthLabel(vault.Weak), "weak")
	assert.Contains(t, strengthLabel(vault.Strong), "strong")
	assert.Contains(t, strengthLabel(vault.CrazyStrong), "crazy strong")
}
