package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/facturly/facturly/internal/fiscal"
)

func TestUserValidate(t *testing.T) {
	micro := User{
		ID:        uuid.New(),
		SIRET:     "12345678901234",
		Regime:    fiscal.RegimeMicroBIC,
		Activity:  fiscal.ActivityCommercant,
		Frequency: fiscal.FrequencyMonthly,
	}
	require.NoError(t, micro.Validate())

	cases := []struct {
		name   string
		mutate func(*User)
		ok     bool
	}{
		{"bnc quarterly", func(u *User) { u.Regime = fiscal.RegimeBNC; u.Frequency = fiscal.FrequencyQuarterly }, true},
		{"short siret", func(u *User) { u.SIRET = "123" }, false},
		{"non digit siret", func(u *User) { u.SIRET = "1234567890123A" }, false},
		{"micro without activity", func(u *User) { u.Activity = "" }, false},
		{"micro without frequency", func(u *User) { u.Frequency = "" }, false},
		{"micro with vat number", func(u *User) { u.VATNumber = "FR12345678901" }, false},
		{"reel without vat number", func(u *User) { u.Regime = fiscal.RegimeReel }, false},
		{"reel with vat number", func(u *User) { u.Regime = fiscal.RegimeReel; u.VATNumber = "FR12345678901" }, true},
		{"unknown regime", func(u *User) { u.Regime = "SARL" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := micro
			tc.mutate(&u)
			err := u.Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidFiscalIdentity)
		})
	}
}

type memoryRepo struct {
	users map[uuid.UUID]User
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memoryRepo) ListMicroEntrepreneurIDs(context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, u := range m.users {
		if u.IsMicroEntrepreneur() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func TestServiceFiscalIdentity(t *testing.T) {
	good := User{ID: uuid.New(), SIRET: "12345678901234", Regime: fiscal.RegimeBNC, Activity: fiscal.ActivityLiberal, Frequency: fiscal.FrequencyMonthly}
	bad := User{ID: uuid.New(), SIRET: "12345678901234", Regime: fiscal.RegimeMicroBIC}
	reel := User{ID: uuid.New(), SIRET: "12345678901234", Regime: fiscal.RegimeReel, VATNumber: "FR00123456789"}
	svc := NewService(&memoryRepo{users: map[uuid.UUID]User{good.ID: good, bad.ID: bad, reel.ID: reel}})

	got, err := svc.FiscalIdentity(context.Background(), good.ID)
	require.NoError(t, err)
	require.Equal(t, good, got)

	_, err = svc.FiscalIdentity(context.Background(), bad.ID)
	require.ErrorIs(t, err, ErrInvalidFiscalIdentity)

	_, err = svc.FiscalIdentity(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrUserNotFound)

	ids, err := svc.MicroEntrepreneurs(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{good.ID, bad.ID}, ids)
}
