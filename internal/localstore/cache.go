package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

const (
	// CacheRetention bounds how long a decrypted plaintext is kept.
	CacheRetention = 7 * 24 * time.Hour
	// DefaultSweepInterval controls the periodic cache sweep.
	DefaultSweepInterval = time.Hour
)

// DecryptionCache maps message ids to plaintext recovered earlier. A miss
// means the message has to be decrypted again, never that it does not exist.
type DecryptionCache interface {
	CachedPlaintext(ctx context.Context, messageID uuid.UUID) (string, bool, error)
	CachePlaintext(ctx context.Context, messageID uuid.UUID, plaintext string) error
	SweepCache(ctx context.Context) (int64, error)
}

var _ DecryptionCache = (*Store)(nil)

// CachePlaintext stores or refreshes the plaintext of a message.
func (s *Store) CachePlaintext(ctx context.Context, messageID uuid.UUID, plaintext string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO decryption_cache (message_id, plaintext, cached_at) VALUES (?, ?, ?)
ON CONFLICT(message_id) DO UPDATE SET plaintext = excluded.plaintext, cached_at = excluded.cached_at;
`, messageID.String(), plaintext, toUnix(s.now()))
	if err != nil {
		return fmt.Errorf("cache plaintext: %w", err)
	}
	return nil
}

// CachedPlaintext returns the cached plaintext. Entries past the retention
// window count as misses even before the sweep removes them.
func (s *Store) CachedPlaintext(ctx context.Context, messageID uuid.UUID) (string, bool, error) {
	var plaintext string
	err := s.db.QueryRowContext(ctx, `
SELECT plaintext FROM decryption_cache WHERE message_id = ? AND cached_at >= ?;
`, messageID.String(), toUnix(s.cutoff())).Scan(&plaintext)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cached plaintext: %w", err)
	}
	return plaintext, true, nil
}

// SweepCache deletes entries older than the retention window.
func (s *Store) SweepCache(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM decryption_cache WHERE cached_at < ?;`, toUnix(s.cutoff()))
	if err != nil {
		return 0, fmt.Errorf("sweep decryption cache: %w", err)
	}
	return res.RowsAffected()
}

// CacheSize returns the number of cached entries, expired ones included.
func (s *Store) CacheSize(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decryption_cache;`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) cutoff() time.Time {
	return s.now().Add(-s.retention)
}

// RunCacheSweeper sweeps the cache every interval until ctx is done. Sweep
// failures are logged and otherwise ignored.
func RunCacheSweeper(ctx context.Context, cache DecryptionCache, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = logger.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cache.SweepCache(ctx)
			if err != nil {
				log.Warnf("decryption cache sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Debugf("swept %d decryption cache entries", n)
			}
		}
	}
}
