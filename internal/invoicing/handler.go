package invoicing

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/facturly/facturly/internal/collectives"
	"github.com/facturly/facturly/internal/platform/httpx"
	"github.com/facturly/facturly/internal/sharing"
	"github.com/facturly/facturly/internal/users"
)

var errorMappings = []httpx.Mapping{
	{Err: ErrInvoiceNotFound, Status: http.StatusNotFound, Title: "Invoice Not Found"},
	{Err: ErrInvoiceFinalized, Status: http.StatusConflict, Title: "Invoice Finalized"},
	{Err: ErrConcurrentEdit, Status: http.StatusConflict, Title: "Concurrent Edit"},
	{Err: ErrNotCollectiveMember, Status: http.StatusUnprocessableEntity, Title: "Not A Collective Member"},
	{Err: ErrSharesWithoutCollective, Status: http.StatusUnprocessableEntity, Title: "Shares Require A Collective"},
	{Err: ErrTotalMismatch, Status: http.StatusUnprocessableEntity, Title: "Total Mismatch"},
	{Err: ErrVATNotAllowed, Status: http.StatusUnprocessableEntity, Title: "VAT Not Allowed"},
	{Err: ErrInvalidInvoice, Status: http.StatusUnprocessableEntity, Title: "Invalid Invoice"},
	{Err: ErrInvalidPaymentStatus, Status: http.StatusUnprocessableEntity, Title: "Invalid Payment Status"},
	{Err: sharing.ErrNoShares, Status: http.StatusUnprocessableEntity, Title: "Invalid Shares"},
	{Err: sharing.ErrInvalidShareValue, Status: http.StatusUnprocessableEntity, Title: "Invalid Shares"},
	{Err: sharing.ErrDuplicateShareUser, Status: http.StatusUnprocessableEntity, Title: "Invalid Shares"},
	{Err: sharing.ErrInvalidTotal, Status: http.StatusUnprocessableEntity, Title: "Invalid Shares"},
	{Err: sharing.ErrOverAllocatedShares, Status: http.StatusUnprocessableEntity, Title: "Over-Allocated Shares"},
	{Err: sharing.ErrIncompleteAllocation, Status: http.StatusUnprocessableEntity, Title: "Incomplete Allocation"},
	{Err: users.ErrUserNotFound, Status: http.StatusUnprocessableEntity, Title: "Unknown Issuer"},
	{Err: users.ErrInvalidFiscalIdentity, Status: http.StatusUnprocessableEntity, Title: "Invalid Fiscal Identity"},
	{Err: collectives.ErrCollectiveNotFound, Status: http.StatusUnprocessableEntity, Title: "Unknown Collective"},
}

// Handler exposes invoicing endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers the invoice API under the caller's prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}/shares", h.updateShares)
		r.Post("/{id}/finalize", h.finalize)
		r.Get("/{id}/allocations", h.allocations)
	})
	r.Post("/shares/preview", h.preview)
}

// MountWebhooks registers payment provider callbacks.
func (h *Handler) MountWebhooks(r chi.Router) {
	r.Post("/payments", h.paymentWebhook)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, err)
		return
	}
	inv, err := h.service.CreateInvoice(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) updateShares(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	var req updateSharesRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.service.UpdateShares(r.Context(), UpdateSharesInput{
		InvoiceID:       id,
		ExpectedVersion: req.Version,
		Shares:          toShares(req.Shares),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.FinalizeInvoice(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) allocations(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	allocs, err := h.service.ResolveShares(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice_id": id, "allocations": allocs})
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewSharesRequest
	if !h.decode(w, r, &req) {
		return
	}
	allocs, err := h.service.PreviewShares(req.Total, toShares(req.Shares))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"total": req.Total, "allocations": allocs})
}

func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req paymentWebhookRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.service.ApplyPaymentStatus(r.Context(), req.toEvent())
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "applied"})
	case errors.Is(err, ErrDuplicateEvent), errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrPaymentRegression):
		httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "ignored", "reason": err.Error()})
	default:
		h.fail(w, err)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return false
	}
	return true
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Invoice Not Found", "malformed invoice id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var mapped bool
	for _, m := range errorMappings {
		if errors.Is(err, m.Err) {
			mapped = true
			break
		}
	}
	if !mapped {
		h.logger.Error("invoicing request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err, errorMappings...)
}
