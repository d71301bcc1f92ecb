package calltimer

import (
	"context"

	"parishfund/server/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// PostgresStorage keeps snapshots in call_timer_snapshots
type PostgresStorage struct {
	db database.DBTX
}

func NewPostgresStorage(db database.DBTX) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (p *PostgresStorage) Load(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	var snap Snapshot
	var status string
	err := p.db.QueryRow(ctx, `
		SELECT status, start_time, accumulated_time, last_pause_time
		FROM call_timer_snapshots WHERE session_id = $1
	`, StorageKey(sessionID)).Scan(&status, &snap.StartTime, &snap.AccumulatedTime, &snap.LastPauseTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, errors.Wrap(err, "timerStore.Load.Scan")
	}
	snap.Status = Status(status)
	return snap, true, nil
}

func (p *PostgresStorage) Save(ctx context.Context, sessionID string, snap Snapshot) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO call_timer_snapshots (session_id, status, start_time, accumulated_time, last_pause_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (session_id) DO UPDATE SET
			status = EXCLUDED.status,
			start_time = EXCLUDED.start_time,
			accumulated_time = EXCLUDED.accumulated_time,
			last_pause_time = EXCLUDED.last_pause_time,
			updated_at = EXCLUDED.updated_at
	`, StorageKey(sessionID), string(snap.Status), snap.StartTime, snap.AccumulatedTime, snap.LastPauseTime)
	if err != nil {
		return errors.Wrap(err, "timerStore.Save.Exec")
	}
	return nil
}
