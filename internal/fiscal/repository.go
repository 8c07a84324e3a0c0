package fiscal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturly/facturly/internal/platform/db"
)

// PostgresRepository reads fiscal inputs from PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Snapshot runs fn inside a read-only repeatable-read transaction.
func (r *PostgresRepository) Snapshot(ctx context.Context, fn func(context.Context, SnapshotReader) error) error {
	return db.WithSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &snapshotReader{tx: tx})
	})
}

type snapshotReader struct {
	tx pgx.Tx
}

func (s *snapshotReader) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	var (
		p         Profile
		activity  pgtype.Text
		frequency pgtype.Text
	)
	err := s.tx.QueryRow(ctx, `SELECT id, fiscal_regime, activity_type, declaration_frequency FROM users WHERE id=$1`, userID).
		Scan(&p.UserID, &p.Regime, &activity, &frequency)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrUserNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	p.Activity = ActivityType(activity.String)
	p.Frequency = Frequency(frequency.String)
	return p, nil
}

func (s *snapshotReader) ListIssuedInvoices(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]IssuedInvoice, error) {
	rows, err := s.tx.Query(ctx, `
SELECT i.id, i.invoice_date, i.total_amount,
       COALESCE((SELECT SUM(si.amount) FROM sub_invoices si
                 WHERE si.parent_invoice_id = i.id AND si.receiver_id <> i.issuer_id), 0) AS shared_out,
       i.payment_status = 'paid' AS paid
FROM invoices i
WHERE i.issuer_id = $1 AND i.payment_status = 'paid'
  AND i.invoice_date >= $2 AND i.invoice_date < $3
ORDER BY i.invoice_date, i.id`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []IssuedInvoice
	for rows.Next() {
		var inv IssuedInvoice
		if err := rows.Scan(&inv.InvoiceID, &inv.InvoiceDate, &inv.Total, &inv.SharedOut, &inv.Paid); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *snapshotReader) ListReceivedShares(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ReceivedShare, error) {
	rows, err := s.tx.Query(ctx, `
SELECT si.id, si.parent_invoice_id, p.invoice_date, si.amount, p.payment_status = 'paid' AS parent_paid
FROM sub_invoices si
JOIN invoices p ON p.id = si.parent_invoice_id
WHERE si.receiver_id = $1 AND p.issuer_id <> $1 AND p.payment_status = 'paid'
  AND p.invoice_date >= $2 AND p.invoice_date < $3
ORDER BY p.invoice_date, si.id`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReceivedShare
	for rows.Next() {
		var share ReceivedShare
		if err := rows.Scan(&share.SubInvoiceID, &share.ParentInvoiceID, &share.ParentDate, &share.Amount, &share.ParentPaid); err != nil {
			return nil, err
		}
		out = append(out, share)
	}
	return out, rows.Err()
}
