// Package users holds the fiscal identity of invoicing users.
package users

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/facturly/facturly/internal/fiscal"
)

var (
	// ErrUserNotFound indicates an unknown user id.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrInvalidFiscalIdentity indicates an inconsistent regime/activity/VAT combination.
	ErrInvalidFiscalIdentity = errors.New("users: invalid fiscal identity")
)

// User is an invoicing user with the fiscal attributes the engine relies on.
type User struct {
	ID          uuid.UUID           `json:"id"`
	DisplayName string              `json:"display_name"`
	SIRET       string              `json:"siret"`
	VATNumber   string              `json:"vat_number,omitempty"`
	Regime      fiscal.Regime       `json:"fiscal_regime"`
	Activity    fiscal.ActivityType `json:"activity_type,omitempty"`
	Frequency   fiscal.Frequency    `json:"declaration_frequency,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// IsMicroEntrepreneur reports whether the user declares under a micro regime.
func (u User) IsMicroEntrepreneur() bool {
	return u.Regime.IsMicro()
}

// Validate enforces the fiscal identity invariants. Micro-entrepreneurs are
// under the VAT franchise so they carry no VAT number but need an activity
// type and a declaration frequency; other regimes need a VAT number.
func (u User) Validate() error {
	if !validSIRET(u.SIRET) {
		return fmt.Errorf("%w: siret must be 14 digits", ErrInvalidFiscalIdentity)
	}
	switch u.Regime {
	case fiscal.RegimeMicroBIC, fiscal.RegimeBNC:
		if !u.Activity.Valid() {
			return fmt.Errorf("%w: activity type required for %s", ErrInvalidFiscalIdentity, u.Regime)
		}
		if !u.Frequency.Valid() {
			return fmt.Errorf("%w: declaration frequency required for %s", ErrInvalidFiscalIdentity, u.Regime)
		}
		if strings.TrimSpace(u.VATNumber) != "" {
			return fmt.Errorf("%w: VAT number not allowed under franchise", ErrInvalidFiscalIdentity)
		}
	case fiscal.RegimeReel:
		if strings.TrimSpace(u.VATNumber) == "" {
			return fmt.Errorf("%w: VAT number required for %s", ErrInvalidFiscalIdentity, u.Regime)
		}
	default:
		return fmt.Errorf("%w: unknown regime %q", ErrInvalidFiscalIdentity, u.Regime)
	}
	return nil
}

func validSIRET(s string) bool {
	if len(s) != 14 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
