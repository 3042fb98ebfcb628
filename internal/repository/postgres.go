package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

// NewPostgres returns a repository persisting committed schedules across
// process restarts. Records are immutable: commits insert, never update.
func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgres{pool: pool}
}

type postgres struct {
	pool *pgxpool.Pool
}

// Migrate creates the schedule table when missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS committed_schedules (
			cycle_id     UUID PRIMARY KEY,
			committed_at TIMESTAMPTZ NOT NULL,
			payload      JSONB NOT NULL
		)`)
	return err
}

func (r *postgres) Commit(ctx context.Context, c *Committed) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO committed_schedules (cycle_id, committed_at, payload) VALUES ($1, $2, $3)`,
		c.CycleID, c.CommittedAt, payload)
	return err
}

func (r *postgres) Get(ctx context.Context, cycle uuid.UUID) (*Committed, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM committed_schedules WHERE cycle_id = $1`, cycle).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("unknown cycle %s", cycle)
	}
	if err != nil {
		return nil, err
	}

	var c Committed
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgres) Cycles(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT cycle_id FROM committed_schedules ORDER BY committed_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		cycles = append(cycles, id)
	}
	return cycles, rows.Err()
}

func (r *postgres) ByFaculty(ctx context.Context, cycle uuid.UUID, facultyID string) ([]Entry, error) {
	return r.filter(ctx, cycle, func(e Entry) bool { return e.FacultyID == facultyID })
}

func (r *postgres) ByRoom(ctx context.Context, cycle uuid.UUID, roomID string) ([]Entry, error) {
	return r.filter(ctx, cycle, func(e Entry) bool { return e.RoomID == roomID })
}

func (r *postgres) ByDay(ctx context.Context, cycle uuid.UUID, day int) ([]Entry, error) {
	return r.filter(ctx, cycle, func(e Entry) bool { return e.Day == day })
}

func (r *postgres) ByStudent(ctx context.Context, cycle uuid.UUID, studentID string) ([]Entry, error) {
	c, err := r.Get(ctx, cycle)
	if err != nil {
		return nil, err
	}
	return filterByStudent(c, studentID), nil
}

func (r *postgres) Diff(ctx context.Context, from, to uuid.UUID) (*Diff, error) {
	a, err := r.Get(ctx, from)
	if err != nil {
		return nil, err
	}
	b, err := r.Get(ctx, to)
	if err != nil {
		return nil, err
	}
	return ComputeDiff(a, b), nil
}

func (r *postgres) filter(ctx context.Context, cycle uuid.UUID, keep func(Entry) bool) ([]Entry, error) {
	c, err := r.Get(ctx, cycle)
	if err != nil {
		return nil, err
	}
	return lo.Filter(c.Entries, func(e Entry, _ int) bool { return keep(e) }), nil
}
