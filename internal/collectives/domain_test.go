package collectives

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRosterMissing(t *testing.T) {
	collective := uuid.New()
	owner, member, outsider := uuid.New(), uuid.New(), uuid.New()
	roster := NewRoster([]Member{
		{CollectiveID: collective, UserID: owner, Role: RoleOwner},
		{CollectiveID: collective, UserID: member, Role: RoleMember},
	})

	require.True(t, roster.Has(owner))
	require.False(t, roster.Has(outsider))
	require.Empty(t, roster.Missing(owner, member))
	require.Equal(t, []uuid.UUID{outsider}, roster.Missing(owner, outsider, member))
	require.True(t, roster[member].CanInvoice())
	require.False(t, Role("guest").CanInvoice())

	guest := uuid.New()
	roster[guest] = Role("guest")
	require.True(t, roster.Has(guest))
	require.False(t, roster.CanInvoice(guest))
	require.False(t, roster.CanInvoice(outsider))
	require.True(t, roster.CanInvoice(owner))
}
