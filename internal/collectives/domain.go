// Package collectives resolves collective membership for shared invoices.
package collectives

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrCollectiveNotFound indicates an unknown collective id.
var ErrCollectiveNotFound = errors.New("collectives: collective not found")

// Role enumerates member roles.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Collective is a named group of users invoicing together.
type Collective struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Member links a user to a collective.
type Member struct {
	CollectiveID uuid.UUID `json:"collective_id"`
	UserID       uuid.UUID `json:"user_id"`
	Role         Role      `json:"role"`
}

// CanInvoice reports whether the role may issue invoices for the collective.
func (r Role) CanInvoice() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

// Roster indexes the members of one collective.
type Roster map[uuid.UUID]Role

// NewRoster builds a roster from a member list.
func NewRoster(members []Member) Roster {
	out := make(Roster, len(members))
	for _, m := range members {
		out[m.UserID] = m.Role
	}
	return out
}

// Has reports membership.
func (r Roster) Has(userID uuid.UUID) bool {
	_, ok := r[userID]
	return ok
}

// CanInvoice reports whether userID is a member whose role may issue invoices.
func (r Roster) CanInvoice(userID uuid.UUID) bool {
	role, ok := r[userID]
	return ok && role.CanInvoice()
}

// Missing returns the ids that are not members, in input order.
func (r Roster) Missing(ids ...uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for _, id := range ids {
		if !r.Has(id) {
			out = append(out, id)
		}
	}
	return out
}
