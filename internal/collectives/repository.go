package collectives

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads collectives from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads a collective.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Collective, error) {
	var c Collective
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM collectives WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Collective{}, ErrCollectiveNotFound
	}
	return c, err
}

// Roster returns the members of a collective. An unknown collective yields
// ErrCollectiveNotFound.
func (r *Repository) Roster(ctx context.Context, collectiveID uuid.UUID) (Roster, error) {
	if _, err := r.Get(ctx, collectiveID); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT collective_id, user_id, role FROM collective_members WHERE collective_id=$1`, collectiveID)
	if err != nil {
		return nil, err
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Member, error) {
		var m Member
		err := row.Scan(&m.CollectiveID, &m.UserID, &m.Role)
		return m, err
	})
	if err != nil {
		return nil, err
	}
	return NewRoster(members), nil
}
