package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	seen map[string]bool
	err  error
}

func (r *recordingExecer) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	key := args[1].(string) + "/" + args[0].(string)
	if r.seen[key] {
		return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
	}
	r.seen[key] = true
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestClaimKey(t *testing.T) {
	ctx := context.Background()
	q := &recordingExecer{seen: map[string]bool{}}

	require.NoError(t, ClaimKey(ctx, q, "evt-1", "payments.webhook"))
	require.ErrorIs(t, ClaimKey(ctx, q, "evt-1", "payments.webhook"), ErrIdempotencyConflict)
	require.NoError(t, ClaimKey(ctx, q, "evt-1", "other.module"))

	require.Error(t, ClaimKey(ctx, q, "", "payments.webhook"))
	require.Error(t, ClaimKey(ctx, q, "evt-2", ""))

	boom := errors.New("connection reset")
	q.err = boom
	require.ErrorIs(t, ClaimKey(ctx, q, "evt-3", "payments.webhook"), boom)
}

func TestInvoiceSharesLockKey(t *testing.T) {
	id := uuid.MustParse("6f1c1f7e-0a59-4d0e-9a0f-6b1b0e3c2a11")
	require.Equal(t, "invoice:6f1c1f7e-0a59-4d0e-9a0f-6b1b0e3c2a11:shares:lock", InvoiceSharesLockKey(id))
}
