package shared

import "fmt"

// InvoiceSharesLockKey builds the redis key serialising share edits of one invoice.
func InvoiceSharesLockKey(invoiceID fmt.Stringer) string {
	return fmt.Sprintf("invoice:%s:shares:lock", invoiceID)
}
