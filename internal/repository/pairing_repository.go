package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/pairing"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

type PostgresPairingRepository struct {
	db DBTX
}

func NewPairingRepository(db DBTX) PairingRepository {
	return &PostgresPairingRepository{db: db}
}

const pairingColumns = `token_hash, user_id, expires_at, used_at, invalidated_at, created_at`

func scanToken(row rowScanner) (pairing.Token, error) {
	var t pairing.Token
	var usedAt, invalidatedAt sql.NullTime
	if err := row.Scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &usedAt, &invalidatedAt, &t.CreatedAt); err != nil {
		return pairing.Token{}, err
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	if invalidatedAt.Valid {
		t.InvalidatedAt = &invalidatedAt.Time
	}
	return t, nil
}

func (r *PostgresPairingRepository) Create(ctx context.Context, t *pairing.Token) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pairing_tokens (token_hash, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		t.TokenHash, t.UserID, t.ExpiresAt, t.CreatedAt,
	)
	return translateErr(err)
}

func (r *PostgresPairingRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (pairing.Token, error) {
	t, err := scanToken(r.db.QueryRowContext(ctx,
		`UPDATE pairing_tokens SET used_at = $2
		 WHERE token_hash = $1 AND used_at IS NULL AND invalidated_at IS NULL AND expires_at > $2
		 RETURNING `+pairingColumns,
		tokenHash, now,
	))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return pairing.Token{}, err
	}

	// Nothing was consumed; read the row to report why.
	t, err = scanToken(r.db.QueryRowContext(ctx,
		`SELECT `+pairingColumns+` FROM pairing_tokens WHERE token_hash = $1`, tokenHash,
	))
	if err != nil {
		return pairing.Token{}, translateErr(err)
	}
	return pairing.Token{}, consumeFailure(t, now)
}

// consumeFailure classifies a token that could not be consumed at now.
func consumeFailure(t pairing.Token, now time.Time) error {
	switch t.StateAt(now) {
	case pairing.StateRedeemed:
		return pumpkin_errors.ErrTokenAlreadyUsed
	case pairing.StateInvalidated:
		return pumpkin_errors.ErrTokenInvalidated
	case pairing.StateExpired:
		return pumpkin_errors.ErrTokenExpired
	default:
		// Raced with a concurrent redeem that has since been released.
		return pumpkin_errors.ErrConflict
	}
}

func (r *PostgresPairingRepository) Release(ctx context.Context, tokenHash string, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pairing_tokens SET used_at = NULL WHERE token_hash = $1 AND used_at = $2`,
		tokenHash, usedAt,
	)
	return err
}

func (r *PostgresPairingRepository) InvalidateUserTokens(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pairing_tokens SET invalidated_at = $2
		 WHERE user_id = $1 AND used_at IS NULL AND invalidated_at IS NULL AND expires_at > $2`,
		userID, now,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresPairingRepository) PurgeExpired(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	var res sql.Result
	var err error
	if userID == uuid.Nil {
		res, err = r.db.ExecContext(ctx, `DELETE FROM pairing_tokens WHERE expires_at < $1`, cutoff)
	} else {
		res, err = r.db.ExecContext(ctx,
			`DELETE FROM pairing_tokens WHERE user_id = $1 AND expires_at < $2 AND used_at IS NULL`, userID, cutoff)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
