package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	s := NewStore()

	code, err := s.Issue("student@school.edu")
	require.NoError(t, err)
	require.Len(t, code, 6)

	require.NoError(t, s.Verify("student@school.edu", code))

	// Consumed on success: the same code cannot be replayed.
	assert.ErrorIs(t, s.Verify("student@school.edu", code), ErrNotFound)
}

func TestVerifyUnknownEmail(t *testing.T) {
	s := NewStore()

	assert.ErrorIs(t, s.Verify("nobody@school.edu", "123456"), ErrNotFound)
}

func TestVerifyWrongCode(t *testing.T) {
	s := NewStore()

	code, err := s.Issue("student@school.edu")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	assert.ErrorIs(t, s.Verify("student@school.edu", wrong), ErrMismatch)

	// The challenge survives a wrong guess.
	require.NoError(t, s.Verify("student@school.edu", code))
}

func TestVerifyExpiredCode(t *testing.T) {
	s := NewStore()

	code, err := s.Issue("student@school.edu")
	require.NoError(t, err)

	now := time.Now()
	s.now = func() time.Time { return now.Add(CodeTTL + time.Second) }

	// Even the right code is rejected after the TTL.
	assert.ErrorIs(t, s.Verify("student@school.edu", code), ErrExpired)

	// Expiry detection deletes the challenge.
	s.now = func() time.Time { return now }
	assert.ErrorIs(t, s.Verify("student@school.edu", code), ErrNotFound)
}

func TestIssueOverwritesLiveChallenge(t *testing.T) {
	s := NewStore()

	first, err := s.Issue("student@school.edu")
	require.NoError(t, err)

	second, err := s.Issue("student@school.edu")
	require.NoError(t, err)

	if first != second {
		assert.ErrorIs(t, s.Verify("student@school.edu", first), ErrMismatch)
	}
	require.NoError(t, s.Verify("student@school.edu", second))
}

func TestRevoke(t *testing.T) {
	s := NewStore()

	code, err := s.Issue("student@school.edu")
	require.NoError(t, err)

	s.Revoke("student@school.edu")
	assert.ErrorIs(t, s.Verify("student@school.edu", code), ErrNotFound)
}
