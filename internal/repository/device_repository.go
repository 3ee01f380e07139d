package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

type PostgresDeviceRepository struct {
	db DBTX
}

func NewDeviceRepository(db DBTX) DeviceRepository {
	return &PostgresDeviceRepository{db: db}
}

const deviceColumns = `id, user_id, device_class, public_key, is_active, is_revoked, created_at, last_active_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (device.Device, error) {
	var d device.Device
	var class string
	err := row.Scan(&d.ID, &d.UserID, &class, &d.PublicKey, &d.IsActive, &d.IsRevoked, &d.CreatedAt, &d.LastActiveAt)
	d.Class = device.Class(class)
	return d, err
}

// lockUserDevices takes a transaction-scoped advisory lock so that cap checks
// for one user run one at a time.
func lockUserDevices(ctx context.Context, tx DBTX, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, userLockKey(userID))
	return err
}

func countActive(ctx context.Context, db DBTX, userID uuid.UUID) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM devices WHERE user_id = $1 AND is_active`, userID,
	).Scan(&n)
	return n, err
}

func (r *PostgresDeviceRepository) CreateWithinLimit(ctx context.Context, d *device.Device, limit int) error {
	return WithTx(ctx, r.db, func(tx DBTX) error {
		if err := lockUserDevices(ctx, tx, d.UserID); err != nil {
			return err
		}
		n, err := countActive(ctx, tx, d.UserID)
		if err != nil {
			return err
		}
		if n >= limit {
			return pumpkin_errors.ErrDeviceLimitExceeded
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO devices (`+deviceColumns+`) VALUES ($1, $2, $3, $4, TRUE, FALSE, $5, $6)`,
			d.ID, d.UserID, string(d.Class), d.PublicKey, d.CreatedAt, d.LastActiveAt,
		)
		if err != nil {
			return translateErr(err)
		}
		d.IsActive = true
		d.IsRevoked = false
		return nil
	})
}

func (r *PostgresDeviceRepository) ReactivateWithinLimit(ctx context.Context, deviceID, userID uuid.UUID, limit int, now time.Time) (device.Device, error) {
	var out device.Device
	err := WithTx(ctx, r.db, func(tx DBTX) error {
		if err := lockUserDevices(ctx, tx, userID); err != nil {
			return err
		}
		d, err := scanDevice(tx.QueryRowContext(ctx,
			`SELECT `+deviceColumns+` FROM devices WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			deviceID, userID,
		))
		if err != nil {
			return translateErr(err)
		}
		if d.IsRevoked {
			return pumpkin_errors.ErrDeviceRevoked
		}
		if d.IsActive {
			out = d
			return nil
		}
		n, err := countActive(ctx, tx, userID)
		if err != nil {
			return err
		}
		if n >= limit {
			return pumpkin_errors.ErrDeviceLimitExceeded
		}
		out, err = scanDevice(tx.QueryRowContext(ctx,
			`UPDATE devices SET is_active = TRUE, last_active_at = $2 WHERE id = $1 RETURNING `+deviceColumns,
			deviceID, now,
		))
		return translateErr(err)
	})
	if err != nil {
		return device.Device{}, err
	}
	return out, nil
}

func (r *PostgresDeviceRepository) Deactivate(ctx context.Context, deviceID, userID uuid.UUID) error {
	return r.setInactive(ctx, `UPDATE devices SET is_active = FALSE WHERE id = $1 AND user_id = $2`, deviceID, userID)
}

func (r *PostgresDeviceRepository) Revoke(ctx context.Context, deviceID, userID uuid.UUID) error {
	return r.setInactive(ctx, `UPDATE devices SET is_active = FALSE, is_revoked = TRUE WHERE id = $1 AND user_id = $2`, deviceID, userID)
}

func (r *PostgresDeviceRepository) setInactive(ctx context.Context, query string, deviceID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, query, deviceID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return pumpkin_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresDeviceRepository) GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (device.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = $1`, deviceID,
	))
	if err != nil {
		return device.Device{}, translateErr(err)
	}
	return d, nil
}

func (r *PostgresDeviceRepository) GetActiveDevices(ctx context.Context, userID uuid.UUID) ([]device.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE user_id = $1 AND is_active ORDER BY created_at ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]device.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *PostgresDeviceRepository) CountActiveDevices(ctx context.Context, userID uuid.UUID) (int, error) {
	return countActive(ctx, r.db, userID)
}

func (r *PostgresDeviceRepository) UpdateLastActive(ctx context.Context, deviceID uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET last_active_at = GREATEST(last_active_at, $2) WHERE id = $1`, deviceID, at,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pumpkin_errors.ErrNotFound
	}
	return nil
}
