package invoicing

import "errors"

var (
	// ErrInvoiceNotFound indicates an unknown invoice id.
	ErrInvoiceNotFound = errors.New("invoicing: invoice not found")
	// ErrInvoiceFinalized indicates an edit attempt on a finalized invoice.
	ErrInvoiceFinalized = errors.New("invoicing: invoice finalized")
	// ErrConcurrentEdit indicates a stale version or a share edit in progress.
	ErrConcurrentEdit = errors.New("invoicing: concurrent edit")
	// ErrNotCollectiveMember indicates an issuer or share owner outside the collective.
	ErrNotCollectiveMember = errors.New("invoicing: user is not a collective member")
	// ErrSharesWithoutCollective indicates shares on an invoice without collective.
	ErrSharesWithoutCollective = errors.New("invoicing: shares require a collective invoice")
	// ErrTotalMismatch indicates a total that differs from the item sum.
	ErrTotalMismatch = errors.New("invoicing: total does not match items")
	// ErrVATNotAllowed indicates VAT on an invoice issued under the franchise.
	ErrVATNotAllowed = errors.New("invoicing: VAT not allowed for micro-entrepreneur")
	// ErrInvalidInvoice indicates malformed invoice input.
	ErrInvalidInvoice = errors.New("invoicing: invalid invoice")
	// ErrPaymentRegression indicates a paid invoice moving back to unpaid.
	ErrPaymentRegression = errors.New("invoicing: paid invoice cannot regress")
	// ErrDuplicateEvent indicates an already processed payment event.
	ErrDuplicateEvent = errors.New("invoicing: duplicate payment event")
	// ErrInvalidPaymentStatus indicates an unknown payment status.
	ErrInvalidPaymentStatus = errors.New("invoicing: invalid payment status")
)
