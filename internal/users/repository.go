package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturly/facturly/internal/fiscal"
)

const userColumns = `id, display_name, siret, vat_number, fiscal_regime, activity_type, declaration_frequency, created_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads a user by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// ListMicroEntrepreneurIDs returns ids of every user under a micro regime.
func (r *Repository) ListMicroEntrepreneurIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE fiscal_regime IN ('MICRO_BIC','BNC') ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		vat       pgtype.Text
		activity  pgtype.Text
		frequency pgtype.Text
	)
	if err := row.Scan(&u.ID, &u.DisplayName, &u.SIRET, &vat, &u.Regime, &activity, &frequency, &u.CreatedAt); err != nil {
		return User{}, err
	}
	u.VATNumber = vat.String
	u.Activity = fiscalActivity(activity)
	u.Frequency = fiscalFrequency(frequency)
	return u, nil
}

func fiscalActivity(t pgtype.Text) fiscal.ActivityType {
	if !t.Valid {
		return ""
	}
	return fiscal.ActivityType(t.String)
}

func fiscalFrequency(t pgtype.Text) fiscal.Frequency {
	if !t.Valid {
		return ""
	}
	return fiscal.Frequency(t.String)
}
