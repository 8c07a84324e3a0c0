package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturly/facturly/internal/collectives"
	"github.com/facturly/facturly/internal/platform/cache"
	"github.com/facturly/facturly/internal/shared"
	"github.com/facturly/facturly/internal/sharing"
	"github.com/facturly/facturly/internal/users"
)

// Repository encapsulates invoice persistence.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Invoice, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the writes available within a transaction.
type TxRepository interface {
	InsertInvoice(ctx context.Context, inv Invoice) error
	// LockInvoice loads the invoice header and shares with a row lock.
	LockInvoice(ctx context.Context, id uuid.UUID) (Invoice, error)
	ReplaceShares(ctx context.Context, invoiceID uuid.UUID, shares []sharing.Share) error
	// UpsertSubInvoices writes sub-invoices keyed by (parent, receiver) and
	// deletes those of receivers absent from subs.
	UpsertSubInvoices(ctx context.Context, parentID uuid.UUID, subs []SubInvoice) error
	BumpVersion(ctx context.Context, id uuid.UUID) (int64, error)
	SetStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error
	// ClaimEvent records a payment event id; a second claim fails with
	// shared.ErrIdempotencyConflict.
	ClaimEvent(ctx context.Context, eventID string) error
}

// MembershipReader resolves collective rosters.
type MembershipReader interface {
	Roster(ctx context.Context, collectiveID uuid.UUID) (collectives.Roster, error)
}

// IssuerReader loads validated fiscal identities.
type IssuerReader interface {
	FiscalIdentity(ctx context.Context, id uuid.UUID) (users.User, error)
}

// EditLocker hands out non-blocking share edit locks.
type EditLocker interface {
	Obtain(ctx context.Context, key string) (func(context.Context) error, error)
}

// SummaryInvalidator drops cached fiscal summaries.
type SummaryInvalidator interface {
	Bump(ctx context.Context) error
}

// MetricsRecorder receives invoicing outcomes.
type MetricsRecorder interface {
	ObserveShareResolution(outcome string)
	ObservePaymentEvent(outcome string)
}

// ServiceConfig carries the optional collaborators of Service.
type ServiceConfig struct {
	Locker      EditLocker
	Invalidator SummaryInvalidator
	Metrics     MetricsRecorder
	Logger      *slog.Logger
}

// Service orchestrates invoice issuing, share materialization and payment
// propagation.
type Service struct {
	repo        Repository
	members     MembershipReader
	issuers     IssuerReader
	locker      EditLocker
	invalidator SummaryInvalidator
	metrics     MetricsRecorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds a Service.
func NewService(repo Repository, members MembershipReader, issuers IssuerReader, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		members:     members,
		issuers:     issuers,
		locker:      cfg.Locker,
		invalidator: cfg.Invalidator,
		metrics:     cfg.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GetInvoice returns an invoice with its items, shares and sub-invoices.
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// CreateInvoice validates and issues an invoice. Collective invoices have
// their shares resolved and sub-invoices materialized in the same
// transaction; a resolution failure persists nothing.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (Invoice, error) {
	if err := in.Validate(); err != nil {
		return Invoice{}, err
	}
	issuer, err := s.issuers.FiscalIdentity(ctx, in.IssuerID)
	if err != nil {
		return Invoice{}, err
	}
	if issuer.IsMicroEntrepreneur() {
		for idx, it := range in.Items {
			if !it.VATRate.IsZero() {
				return Invoice{}, fmt.Errorf("%w: item %d", ErrVATNotAllowed, idx)
			}
		}
	}

	now := s.now().UTC()
	inv := Invoice{
		ID:            uuid.New(),
		IssuerID:      in.IssuerID,
		CollectiveID:  in.CollectiveID,
		ClientName:    in.ClientName,
		InvoiceDate:   in.InvoiceDate,
		TotalAmount:   in.TotalAmount,
		PaymentStatus: PaymentPending,
		Status:        StatusDraft,
		Version:       1,
		Items:         in.Items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var subs []SubInvoice
	if inv.IsCollective() {
		if err := s.checkMembers(ctx, *inv.CollectiveID, inv.IssuerID, in.Shares); err != nil {
			return Invoice{}, err
		}
		allocs, err := s.resolve(inv.TotalAmount, in.Shares)
		if err != nil {
			return Invoice{}, err
		}
		inv.Shares = in.Shares
		subs = Materialize(inv, allocs)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertInvoice(ctx, inv); err != nil {
			return err
		}
		if !inv.IsCollective() {
			return nil
		}
		if err := tx.ReplaceShares(ctx, inv.ID, inv.Shares); err != nil {
			return err
		}
		return tx.UpsertSubInvoices(ctx, inv.ID, subs)
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("invoicing: create invoice: %w", err)
	}
	inv.SubInvoices = subs
	s.logger.Info("invoice created",
		slog.String("invoice_id", inv.ID.String()),
		slog.String("issuer_id", inv.IssuerID.String()),
		slog.Int("sub_invoices", len(subs)))
	return inv, nil
}

// UpdateShares replaces the shares of a draft collective invoice and
// re-materializes its sub-invoices. A stale version or a concurrent editor
// yields ErrConcurrentEdit; the caller re-fetches and retries.
func (s *Service) UpdateShares(ctx context.Context, in UpdateSharesInput) (Invoice, error) {
	if in.InvoiceID == uuid.Nil {
		return Invoice{}, ErrInvoiceNotFound
	}
	release, err := s.obtainLock(ctx, in.InvoiceID)
	if err != nil {
		return Invoice{}, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release share lock", slog.String("invoice_id", in.InvoiceID.String()), slog.Any("error", err))
		}
	}()

	var paid bool
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockInvoice(ctx, in.InvoiceID)
		if err != nil {
			return err
		}
		if current.Status == StatusFinalized {
			return ErrInvoiceFinalized
		}
		paid = current.PaymentStatus == PaymentPaid
		if current.Version != in.ExpectedVersion {
			return fmt.Errorf("%w: version %d, expected %d", ErrConcurrentEdit, current.Version, in.ExpectedVersion)
		}
		if !current.IsCollective() {
			return ErrSharesWithoutCollective
		}
		if err := s.checkMembers(ctx, *current.CollectiveID, current.IssuerID, in.Shares); err != nil {
			return err
		}
		allocs, err := s.resolve(current.TotalAmount, in.Shares)
		if err != nil {
			return err
		}
		if err := tx.ReplaceShares(ctx, current.ID, in.Shares); err != nil {
			return err
		}
		if err := tx.UpsertSubInvoices(ctx, current.ID, Materialize(current, allocs)); err != nil {
			return err
		}
		_, err = tx.BumpVersion(ctx, current.ID)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}
	// Paid invoices feed fiscal summaries of the issuer and every receiver.
	if paid {
		s.invalidateSummaries(ctx)
	}
	return s.repo.Get(ctx, in.InvoiceID)
}

// FinalizeInvoice freezes a draft invoice and its sub-invoices.
func (s *Service) FinalizeInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	release, err := s.obtainLock(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockInvoice(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusFinalized {
			return ErrInvoiceFinalized
		}
		if err := tx.SetStatus(ctx, id, StatusFinalized); err != nil {
			return err
		}
		_, err = tx.BumpVersion(ctx, id)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}
	return s.repo.Get(ctx, id)
}

// ResolveShares recomputes the allocations of the stored shares.
func (s *Service) ResolveShares(ctx context.Context, id uuid.UUID) ([]sharing.Allocation, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inv.IsCollective() {
		return nil, ErrSharesWithoutCollective
	}
	return sharing.Resolve(inv.TotalAmount, inv.Shares)
}

// PreviewShares resolves shares without touching storage.
func (s *Service) PreviewShares(total decimal.Decimal, shares []sharing.Share) ([]sharing.Allocation, error) {
	return s.resolve(total, shares)
}

// ApplyPaymentStatus records a payment callback. The event id is claimed in
// the transaction that updates the parent invoice, so sub-invoices, which
// derive their status from the parent, change atomically with it. Unknown
// invoices and regressions of a paid invoice are logged, claimed and
// reported to the caller without changing state.
func (s *Service) ApplyPaymentStatus(ctx context.Context, ev PaymentEvent) error {
	if ev.EventID == "" || ev.InvoiceID == uuid.Nil {
		return fmt.Errorf("%w: event id and invoice id required", ErrInvalidPaymentStatus)
	}
	if !ev.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, ev.Status)
	}

	var (
		outcome string
		dropped error
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClaimEvent(ctx, ev.EventID); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return ErrDuplicateEvent
			}
			return err
		}
		current, err := tx.LockInvoice(ctx, ev.InvoiceID)
		if errors.Is(err, ErrInvoiceNotFound) {
			outcome, dropped = "unknown_invoice", err
			return nil
		}
		if err != nil {
			return err
		}
		switch {
		case current.PaymentStatus == ev.Status:
			outcome = "unchanged"
			return nil
		case current.PaymentStatus == PaymentPaid:
			outcome = "regression"
			dropped = fmt.Errorf("%w: %s to %s", ErrPaymentRegression, current.PaymentStatus, ev.Status)
			return nil
		}
		outcome = "applied"
		return tx.SetPaymentStatus(ctx, ev.InvoiceID, ev.Status)
	})
	if errors.Is(err, ErrDuplicateEvent) {
		s.observePayment("duplicate")
		s.logger.Info("payment event already processed", slog.String("event_id", ev.EventID))
		return err
	}
	if err != nil {
		s.observePayment("error")
		return fmt.Errorf("invoicing: apply payment status: %w", err)
	}
	s.observePayment(outcome)
	if dropped != nil {
		s.logger.Warn("payment event dropped",
			slog.String("event_id", ev.EventID),
			slog.String("invoice_id", ev.InvoiceID.String()),
			slog.String("status", string(ev.Status)),
			slog.Any("error", dropped))
		return dropped
	}
	if outcome == "applied" {
		s.invalidateSummaries(ctx)
	}
	return nil
}

func (s *Service) invalidateSummaries(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("invalidate fiscal summaries", slog.Any("error", err))
	}
}

func (s *Service) obtainLock(ctx context.Context, id uuid.UUID) (func(context.Context) error, error) {
	if s.locker == nil {
		return func(context.Context) error { return nil }, nil
	}
	release, err := s.locker.Obtain(ctx, shared.InvoiceSharesLockKey(id))
	if errors.Is(err, cache.ErrLockHeld) {
		return nil, fmt.Errorf("%w: %v", ErrConcurrentEdit, err)
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

func (s *Service) checkMembers(ctx context.Context, collectiveID, issuerID uuid.UUID, shares []sharing.Share) error {
	roster, err := s.members.Roster(ctx, collectiveID)
	if err != nil {
		return err
	}
	if !roster.CanInvoice(issuerID) {
		return fmt.Errorf("%w: issuer %s cannot invoice for the collective", ErrNotCollectiveMember, issuerID)
	}
	ids := make([]uuid.UUID, 0, len(shares))
	for _, sh := range shares {
		ids = append(ids, sh.UserID)
	}
	if missing := roster.Missing(ids...); len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrNotCollectiveMember, missing)
	}
	return nil
}

func (s *Service) resolve(total decimal.Decimal, shares []sharing.Share) ([]sharing.Allocation, error) {
	allocs, err := sharing.Resolve(total, shares)
	if s.metrics != nil {
		s.metrics.ObserveShareResolution(resolutionOutcome(err))
	}
	return allocs, err
}

func (s *Service) observePayment(outcome string) {
	if s.metrics != nil {
		s.metrics.ObservePaymentEvent(outcome)
	}
}

func resolutionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sharing.ErrOverAllocatedShares):
		return "over_allocated"
	case errors.Is(err, sharing.ErrIncompleteAllocation):
		return "incomplete"
	default:
		return "invalid"
	}
}
