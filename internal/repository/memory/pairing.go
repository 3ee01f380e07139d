package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/pairing"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

type PairingRepository struct {
	s *Store
}

func (r *PairingRepository) Create(_ context.Context, t *pairing.Token) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tokens[t.TokenHash]; ok {
		return pumpkin_errors.ErrConflict
	}
	r.s.tokens[t.TokenHash] = *t
	return nil
}

func (r *PairingRepository) Consume(_ context.Context, tokenHash string, now time.Time) (pairing.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[tokenHash]
	if !ok {
		return pairing.Token{}, pumpkin_errors.ErrNotFound
	}
	switch t.StateAt(now) {
	case pairing.StateRedeemed:
		return pairing.Token{}, pumpkin_errors.ErrTokenAlreadyUsed
	case pairing.StateInvalidated:
		return pairing.Token{}, pumpkin_errors.ErrTokenInvalidated
	case pairing.StateExpired:
		return pairing.Token{}, pumpkin_errors.ErrTokenExpired
	}
	t.UsedAt = timePtr(now)
	r.s.tokens[tokenHash] = t
	return t, nil
}

func (r *PairingRepository) Release(_ context.Context, tokenHash string, usedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[tokenHash]
	if !ok || t.UsedAt == nil || !t.UsedAt.Equal(usedAt) {
		return nil
	}
	t.UsedAt = nil
	r.s.tokens[tokenHash] = t
	return nil
}

func (r *PairingRepository) InvalidateUserTokens(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for hash, t := range r.s.tokens {
		if t.UserID == userID && t.StateAt(now) == pairing.StateIssued {
			t.InvalidatedAt = timePtr(now)
			r.s.tokens[hash] = t
			n++
		}
	}
	return n, nil
}

func (r *PairingRepository) PurgeExpired(_ context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for hash, t := range r.s.tokens {
		if !t.ExpiresAt.Before(cutoff) {
			continue
		}
		if userID != uuid.Nil && (t.UserID != userID || t.UsedAt != nil) {
			continue
		}
		delete(r.s.tokens, hash)
		n++
	}
	return n, nil
}
