// Package verification keeps one-time login codes in process memory.
// A single live challenge exists per email; this store does not survive
// restarts and is not shared between instances.
package verification

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sync"
	"time"
)

const CodeTTL = 10 * time.Minute

var (
	ErrNotFound = errors.New("no verification code found")
	ErrExpired  = errors.New("verification code expired")
	ErrMismatch = errors.New("invalid verification code")
)

type challenge struct {
	code     string
	issuedAt time.Time
}

type Store struct {
	mu         sync.Mutex
	challenges map[string]challenge
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		challenges: make(map[string]challenge),
		now:        time.Now,
	}
}

// Issue creates a fresh 6-digit code for email, replacing any live challenge.
func (s *Store) Issue(email string) (string, error) {
	code, err := randomCode()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.challenges[email] = challenge{code: code, issuedAt: s.now()}
	s.mu.Unlock()

	return code, nil
}

// Verify checks the code for email and consumes the challenge on success.
// Expired challenges are deleted when detected.
func (s *Store) Verify(email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[email]
	if !ok {
		return ErrNotFound
	}

	if s.now().Sub(ch.issuedAt) > CodeTTL {
		delete(s.challenges, email)
		return ErrExpired
	}

	if ch.code != code {
		return ErrMismatch
	}

	delete(s.challenges, email)
	return nil
}

// Revoke drops a live challenge, e.g. when the email could not be sent.
func (s *Store) Revoke(email string) {
	s.mu.Lock()
	delete(s.challenges, email)
	s.mu.Unlock()
}

func randomCode() (string, error) {
	// 100000..999999 so the code is always six digits.
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	code := n.Int64() + 100000

	digits := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		digits[i] = byte('0' + code%10)
		code /= 10
	}
	return string(digits), nil
}
