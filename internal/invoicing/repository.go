package invoicing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturly/facturly/internal/platform/db"
	"github.com/facturly/facturly/internal/shared"
	"github.com/facturly/facturly/internal/sharing"
)

const (
	invoiceColumns = `id, issuer_id, collective_id, client_name, invoice_date, total_amount, payment_status, status, version, created_at, updated_at`
	paymentModule  = "payments.webhook"
)

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	inv, err := loadInvoice(ctx, r.pool, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Items, err = loadItems(ctx, r.pool, id); err != nil {
		return Invoice{}, err
	}
	if inv.SubInvoices, err = loadSubInvoices(ctx, r.pool, id); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv Invoice) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO invoices (`+invoiceColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		inv.ID, inv.IssuerID, inv.CollectiveID, inv.ClientName, inv.InvoiceDate, inv.TotalAmount,
		inv.PaymentStatus, inv.Status, inv.Version, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return err
	}
	for idx, it := range inv.Items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO invoice_items (invoice_id, position, description, quantity, unit_price, vat_rate)
VALUES ($1,$2,$3,$4,$5,$6)`, inv.ID, idx, it.Description, it.Quantity, it.UnitPrice, it.VATRate); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) LockInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return loadInvoice(ctx, r.tx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1 FOR UPDATE`, id)
}

func (r *txRepository) ReplaceShares(ctx context.Context, invoiceID uuid.UUID, shares []sharing.Share) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM invoice_shares WHERE invoice_id=$1`, invoiceID); err != nil {
		return err
	}
	rows := make([][]any, 0, len(shares))
	for idx, sh := range shares {
		rows = append(rows, []any{invoiceID, idx, sh.UserID, string(sh.Type), sh.Value})
	}
	_, err := r.tx.CopyFrom(ctx, pgx.Identifier{"invoice_shares"},
		[]string{"invoice_id", "position", "user_id", "share_type", "share_value"}, pgx.CopyFromRows(rows))
	return err
}

func (r *txRepository) UpsertSubInvoices(ctx context.Context, parentID uuid.UUID, subs []SubInvoice) error {
	receivers := make([]uuid.UUID, 0, len(subs))
	for _, sub := range subs {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sub_invoices (id, parent_invoice_id, issuer_id, receiver_id, amount, status)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (parent_invoice_id, receiver_id)
DO UPDATE SET amount=EXCLUDED.amount, issuer_id=EXCLUDED.issuer_id, status=EXCLUDED.status, updated_at=NOW()`,
			sub.ID, parentID, sub.IssuerID, sub.ReceiverID, sub.Amount, sub.Status); err != nil {
			return err
		}
		receivers = append(receivers, sub.ReceiverID)
	}
	_, err := r.tx.Exec(ctx, `DELETE FROM sub_invoices WHERE parent_invoice_id=$1 AND NOT (receiver_id = ANY($2))`, parentID, receivers)
	return err
}

func (r *txRepository) BumpVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	var version int64
	err := r.tx.QueryRow(ctx, `UPDATE invoices SET version=version+1, updated_at=NOW() WHERE id=$1 RETURNING version`, id).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInvoiceNotFound
	}
	return version, err
}

func (r *txRepository) SetStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE invoices SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	_, err = r.tx.Exec(ctx, `UPDATE sub_invoices SET status=$2, updated_at=NOW() WHERE parent_invoice_id=$1`, id, status)
	return err
}

func (r *txRepository) SetPaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE invoices SET payment_status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *txRepository) ClaimEvent(ctx context.Context, eventID string) error {
	return shared.ClaimKey(ctx, r.tx, eventID, paymentModule)
}

func loadInvoice(ctx context.Context, q querier, sql string, id uuid.UUID) (Invoice, error) {
	var inv Invoice
	err := q.QueryRow(ctx, sql, id).Scan(&inv.ID, &inv.IssuerID, &inv.CollectiveID, &inv.ClientName, &inv.InvoiceDate,
		&inv.TotalAmount, &inv.PaymentStatus, &inv.Status, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	rows, err := q.Query(ctx, `SELECT user_id, share_type, share_value FROM invoice_shares WHERE invoice_id=$1 ORDER BY position`, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Shares, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (sharing.Share, error) {
		var sh sharing.Share
		err := row.Scan(&sh.UserID, &sh.Type, &sh.Value)
		return sh, err
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func loadItems(ctx context.Context, q querier, invoiceID uuid.UUID) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT description, quantity, unit_price, vat_rate FROM invoice_items WHERE invoice_id=$1 ORDER BY position`, invoiceID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.Description, &it.Quantity, &it.UnitPrice, &it.VATRate)
		return it, err
	})
}

func loadSubInvoices(ctx context.Context, q querier, parentID uuid.UUID) ([]SubInvoice, error) {
	rows, err := q.Query(ctx, `
SELECT si.id, si.parent_invoice_id, si.issuer_id, si.receiver_id, si.amount, si.status, si.created_at, p.payment_status
FROM sub_invoices si
JOIN invoices p ON p.id = si.parent_invoice_id
WHERE si.parent_invoice_id=$1
ORDER BY si.receiver_id`, parentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SubInvoice, error) {
		var (
			sub    SubInvoice
			parent PaymentStatus
		)
		err := row.Scan(&sub.ID, &sub.ParentInvoiceID, &sub.IssuerID, &sub.ReceiverID, &sub.Amount, &sub.Status, &sub.CreatedAt, &parent)
		return sub.withParent(parent), err
	})
}
