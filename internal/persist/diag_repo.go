package persist

import (
	"context"

	"github.com/google/uuid"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/core/event"
)

// DiagRepo archives match diagnostics: rejected commands, phase
// activations, eliminations, and desync faults. Write-only from the
// simulation's point of view; ops queries read the tables directly.
type DiagRepo struct {
	db      *DB
	matchID uuid.UUID
}

func NewDiagRepo(db *DB, matchID uuid.UUID) *DiagRepo {
	return &DiagRepo{db: db, matchID: matchID}
}

// SaveRejected batch-inserts rejected command rows.
func (r *DiagRepo) SaveRejected(ctx context.Context, rows []command.Rejected) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		_, err = tx.Exec(ctx,
			`INSERT INTO rejected_commands (match_id, tick, nation, kind, reason)
			 VALUES ($1, $2, $3, $4, $5)`,
			r.matchID, int64(row.Tick), row.Nation, row.Kind.String(), string(row.Reason))
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// SavePhaseActivations batch-inserts phase activation rows.
func (r *DiagRepo) SavePhaseActivations(ctx context.Context, rows []event.PhaseActivated) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		_, err = tx.Exec(ctx,
			`INSERT INTO phase_activations (match_id, tick, phase)
			 VALUES ($1, $2, $3)`,
			r.matchID, int64(row.Tick), row.Phase)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// SaveEliminations batch-inserts nation elimination rows.
func (r *DiagRepo) SaveEliminations(ctx context.Context, rows []event.NationEliminated) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		_, err = tx.Exec(ctx,
			`INSERT INTO eliminations (match_id, tick, nation)
			 VALUES ($1, $2, $3)`,
			r.matchID, int64(row.Tick), row.Nation)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// SaveDesync records a desync fault with both checksums for triage.
func (r *DiagRepo) SaveDesync(ctx context.Context, tick uint64, peer int32, local, remote uint64) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO desync_faults (match_id, tick, peer, local_sum, remote_sum)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.matchID, int64(tick), peer, int64(local), int64(remote))
	return err
}

// SaveResult records the match outcome once the session finishes.
func (r *DiagRepo) SaveResult(ctx context.Context, endTick uint64, winner int32) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO match_results (match_id, end_tick, winner)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (match_id) DO UPDATE SET end_tick = $2, winner = $3`,
		r.matchID, int64(endTick), winner)
	return err
}
