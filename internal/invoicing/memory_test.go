package invoicing

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/facturly/facturly/internal/collectives"
	"github.com/facturly/facturly/internal/shared"
	"github.com/facturly/facturly/internal/sharing"
	"github.com/facturly/facturly/internal/users"
)

type memoryState struct {
	invoices map[uuid.UUID]Invoice
	subs     map[uuid.UUID]map[uuid.UUID]SubInvoice
	events   map[string]struct{}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		invoices: make(map[uuid.UUID]Invoice, len(s.invoices)),
		subs:     make(map[uuid.UUID]map[uuid.UUID]SubInvoice, len(s.subs)),
		events:   make(map[string]struct{}, len(s.events)),
	}
	for k, v := range s.invoices {
		v.Shares = append([]sharing.Share(nil), v.Shares...)
		out.invoices[k] = v
	}
	for k, v := range s.subs {
		m := make(map[uuid.UUID]SubInvoice, len(v))
		for rk, rv := range v {
			m[rk] = rv
		}
		out.subs[k] = m
	}
	for k := range s.events {
		out.events[k] = struct{}{}
	}
	return out
}

// memoryRepo commits a transaction's writes only when fn succeeds.
type memoryRepo struct {
	mu    sync.Mutex
	state memoryState
	txErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		invoices: map[uuid.UUID]Invoice{},
		subs:     map[uuid.UUID]map[uuid.UUID]SubInvoice{},
		events:   map[string]struct{}{},
	}}
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.state.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	inv.SubInvoices = m.subInvoices(m.state, id)
	return inv, nil
}

func (m *memoryRepo) subInvoices(state memoryState, id uuid.UUID) []SubInvoice {
	parent := state.invoices[id]
	var out []SubInvoice
	for _, sub := range state.subs[id] {
		out = append(out, sub.withParent(parent.PaymentStatus))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceiverID.String() < out[j].ReceiverID.String() })
	return out
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txErr != nil {
		return m.txErr
	}
	work := m.state.clone()
	if err := fn(ctx, &memoryTx{state: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memoryRepo) subCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.state.subs {
		n += len(v)
	}
	return n
}

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) InsertInvoice(_ context.Context, inv Invoice) error {
	inv.SubInvoices = nil
	t.state.invoices[inv.ID] = inv
	return nil
}

func (t *memoryTx) LockInvoice(_ context.Context, id uuid.UUID) (Invoice, error) {
	inv, ok := t.state.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (t *memoryTx) ReplaceShares(_ context.Context, id uuid.UUID, shares []sharing.Share) error {
	inv := t.state.invoices[id]
	inv.Shares = append([]sharing.Share(nil), shares...)
	t.state.invoices[id] = inv
	return nil
}

func (t *memoryTx) UpsertSubInvoices(_ context.Context, parentID uuid.UUID, subs []SubInvoice) error {
	existing := t.state.subs[parentID]
	next := make(map[uuid.UUID]SubInvoice, len(subs))
	for _, sub := range subs {
		if prev, ok := existing[sub.ReceiverID]; ok {
			sub.ID = prev.ID
			sub.CreatedAt = prev.CreatedAt
		}
		next[sub.ReceiverID] = sub
	}
	t.state.subs[parentID] = next
	return nil
}

func (t *memoryTx) BumpVersion(_ context.Context, id uuid.UUID) (int64, error) {
	inv, ok := t.state.invoices[id]
	if !ok {
		return 0, ErrInvoiceNotFound
	}
	inv.Version++
	t.state.invoices[id] = inv
	return inv.Version, nil
}

func (t *memoryTx) SetStatus(_ context.Context, id uuid.UUID, status DocumentStatus) error {
	inv, ok := t.state.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Status = status
	t.state.invoices[id] = inv
	for rk, sub := range t.state.subs[id] {
		sub.Status = status
		t.state.subs[id][rk] = sub
	}
	return nil
}

func (t *memoryTx) SetPaymentStatus(_ context.Context, id uuid.UUID, status PaymentStatus) error {
	inv, ok := t.state.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.PaymentStatus = status
	t.state.invoices[id] = inv
	return nil
}

func (t *memoryTx) ClaimEvent(_ context.Context, eventID string) error {
	if _, dup := t.state.events[eventID]; dup {
		return shared.ErrIdempotencyConflict
	}
	t.state.events[eventID] = struct{}{}
	return nil
}

type memoryMembers map[uuid.UUID]collectives.Roster

func (m memoryMembers) Roster(_ context.Context, id uuid.UUID) (collectives.Roster, error) {
	roster, ok := m[id]
	if !ok {
		return nil, collectives.ErrCollectiveNotFound
	}
	return roster, nil
}

type memoryIssuers map[uuid.UUID]users.User

func (m memoryIssuers) FiscalIdentity(_ context.Context, id uuid.UUID) (users.User, error) {
	u, ok := m[id]
	if !ok {
		return users.User{}, users.ErrUserNotFound
	}
	return u, u.Validate()
}

type countingInvalidator struct {
	mu    sync.Mutex
	bumps int
}

func (c *countingInvalidator) Bump(context.Context) error {
	c.mu.Lock()
	c.bumps++
	c.mu.Unlock()
	return nil
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bumps
}

type recordingMetrics struct {
	mu          sync.Mutex
	resolutions []string
	payments    []string
}

func (r *recordingMetrics) ObserveShareResolution(outcome string) {
	r.mu.Lock()
	r.resolutions = append(r.resolutions, outcome)
	r.mu.Unlock()
}

func (r *recordingMetrics) ObservePaymentEvent(outcome string) {
	r.mu.Lock()
	r.payments = append(r.payments, outcome)
	r.mu.Unlock()
}
