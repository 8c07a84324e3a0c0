package sharing

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolveFixedThenPercentRemainder(t *testing.T) {
	alex, sarah, marc := uuid.New(), uuid.New(), uuid.New()
	allocs, err := Resolve(dec("9000.00"), []Share{
		{UserID: alex, Type: ShareTypeFixed, Value: dec("4000")},
		{UserID: sarah, Type: ShareTypeFixed, Value: dec("3000")},
		{UserID: marc, Type: ShareTypePercent, Value: dec("100")},
	})
	require.NoError(t, err)
	require.Len(t, allocs, 3)
	require.Equal(t, alex, allocs[0].UserID)
	require.True(t, allocs[0].Amount.Equal(dec("4000")))
	require.True(t, allocs[1].Amount.Equal(dec("3000")))
	require.True(t, allocs[2].Amount.Equal(dec("2000.00")), allocs[2].Amount.String())
	require.True(t, Sum(allocs).Equal(dec("9000.00")))
}

func TestResolvePercentBelowHundredIsIncomplete(t *testing.T) {
	_, err := Resolve(dec("1000.00"), []Share{
		{UserID: uuid.New(), Type: ShareTypePercent, Value: dec("30")},
		{UserID: uuid.New(), Type: ShareTypePercent, Value: dec("30")},
	})
	require.ErrorIs(t, err, ErrIncompleteAllocation)

	var shareErr *ShareError
	require.True(t, errors.As(err, &shareErr))
	require.Equal(t, 1, shareErr.Index)
}

func TestResolveThirdsAbsorbResidualOnLastShare(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	allocs, err := Resolve(dec("100.00"), []Share{
		{UserID: a, Type: ShareTypePercent, Value: dec("33.33")},
		{UserID: b, Type: ShareTypePercent, Value: dec("33.33")},
		{UserID: c, Type: ShareTypePercent, Value: dec("33.34")},
	})
	require.NoError(t, err)
	require.True(t, allocs[0].Amount.Equal(dec("33.33")))
	require.True(t, allocs[1].Amount.Equal(dec("33.33")))
	require.True(t, allocs[2].Amount.Equal(dec("33.34")))

	allocs, err = Resolve(dec("0.10"), []Share{
		{UserID: a, Type: ShareTypePercent, Value: dec("33.33")},
		{UserID: b, Type: ShareTypePercent, Value: dec("33.33")},
		{UserID: c, Type: ShareTypePercent, Value: dec("33.33")},
	})
	require.NoError(t, err)
	require.True(t, Sum(allocs).Equal(dec("0.10")))
	require.True(t, allocs[2].Amount.Equal(dec("0.04")), allocs[2].Amount.String())
}

func TestResolveRoundsHalfEven(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	// 0.25 * 50% = 0.125 -> 0.12 under banker's rounding; last share takes 0.13.
	allocs, err := Resolve(dec("0.25"), []Share{
		{UserID: a, Type: ShareTypePercent, Value: dec("50")},
		{UserID: b, Type: ShareTypePercent, Value: dec("50")},
	})
	require.NoError(t, err)
	require.True(t, allocs[0].Amount.Equal(dec("0.12")), allocs[0].Amount.String())
	require.True(t, allocs[1].Amount.Equal(dec("0.13")), allocs[1].Amount.String())
}

func TestResolveValidation(t *testing.T) {
	u1, u2 := uuid.New(), uuid.New()
	cases := []struct {
		name   string
		total  string
		shares []Share
		want   error
	}{
		{"no shares", "10", nil, ErrNoShares},
		{"negative total", "-1", []Share{{UserID: u1, Type: ShareTypeFixed, Value: dec("0")}}, ErrInvalidTotal},
		{"sub-cent total", "10.001", []Share{{UserID: u1, Type: ShareTypePercent, Value: dec("100")}}, ErrInvalidTotal},
		{"negative value", "10", []Share{{UserID: u1, Type: ShareTypeFixed, Value: dec("-1")}}, ErrInvalidShareValue},
		{"percent above 100", "10", []Share{{UserID: u1, Type: ShareTypePercent, Value: dec("100.5")}}, ErrInvalidShareValue},
		{"unknown type", "10", []Share{{UserID: u1, Type: "ratio", Value: dec("1")}}, ErrInvalidShareValue},
		{"percent beyond stored precision", "1000000", []Share{{UserID: u1, Type: ShareTypePercent, Value: dec("33.33335")}, {UserID: u2, Type: ShareTypePercent, Value: dec("66.66665")}}, ErrInvalidShareValue},
		{"sub-cent fixed", "10", []Share{{UserID: u1, Type: ShareTypeFixed, Value: dec("9.999")}, {UserID: u2, Type: ShareTypePercent, Value: dec("100")}}, ErrInvalidShareValue},
		{"nil user", "10", []Share{{Type: ShareTypePercent, Value: dec("100")}}, ErrInvalidShareValue},
		{"duplicate user", "10", []Share{{UserID: u1, Type: ShareTypePercent, Value: dec("50")}, {UserID: u1, Type: ShareTypePercent, Value: dec("50")}}, ErrDuplicateShareUser},
		{"fixed over total", "10", []Share{{UserID: u1, Type: ShareTypeFixed, Value: dec("8")}, {UserID: u2, Type: ShareTypeFixed, Value: dec("3")}}, ErrOverAllocatedShares},
		{"percent over 100", "10", []Share{{UserID: u1, Type: ShareTypePercent, Value: dec("60")}, {UserID: u2, Type: ShareTypePercent, Value: dec("41")}}, ErrOverAllocatedShares},
		{"fixed only leaving remainder", "10", []Share{{UserID: u1, Type: ShareTypeFixed, Value: dec("4")}}, ErrIncompleteAllocation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allocs, err := Resolve(dec(tc.total), tc.shares)
			require.ErrorIs(t, err, tc.want)
			require.Nil(t, allocs)
		})
	}
}

func TestResolveAcceptsFourDecimalPercents(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	allocs, err := Resolve(dec("1000000.00"), []Share{
		{UserID: a, Type: ShareTypePercent, Value: dec("33.3334")},
		{UserID: b, Type: ShareTypePercent, Value: dec("66.6666")},
	})
	require.NoError(t, err)
	require.True(t, allocs[0].Amount.Equal(dec("333334")), allocs[0].Amount.String())
	require.True(t, Sum(allocs).Equal(dec("1000000")))
}

func TestResolveFullPercentLeavesIssuerNothing(t *testing.T) {
	issuer, member := uuid.New(), uuid.New()
	allocs, err := Resolve(dec("500.00"), []Share{
		{UserID: issuer, Type: ShareTypePercent, Value: dec("0")},
		{UserID: member, Type: ShareTypePercent, Value: dec("100")},
	})
	require.NoError(t, err)
	require.True(t, AmountFor(allocs, issuer).IsZero())
	require.True(t, AmountFor(allocs, member).Equal(dec("500")))
}

func TestResolveIsDeterministic(t *testing.T) {
	shares := []Share{
		{UserID: uuid.New(), Type: ShareTypeFixed, Value: dec("12.34")},
		{UserID: uuid.New(), Type: ShareTypePercent, Value: dec("12.5")},
		{UserID: uuid.New(), Type: ShareTypePercent, Value: dec("87.5")},
	}
	first, err := Resolve(dec("987.65"), shares)
	require.NoError(t, err)
	second, err := Resolve(dec("987.65"), shares)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestResolveSumInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(20240101))
	for i := 0; i < 2000; i++ {
		totalCents := rng.Int63n(10_000_000)
		total := decimal.New(totalCents, -minorUnits)

		var shares []Share
		budget := totalCents
		for n := rng.Intn(3); n > 0; n-- {
			cents := rng.Int63n(budget/2 + 1)
			budget -= cents
			shares = append(shares, Share{UserID: uuid.New(), Type: ShareTypeFixed, Value: decimal.New(cents, -minorUnits)})
		}
		for _, bp := range splitBasisPoints(rng, 1+rng.Intn(4)) {
			shares = append(shares, Share{UserID: uuid.New(), Type: ShareTypePercent, Value: decimal.New(int64(bp), -2)})
		}
		rng.Shuffle(len(shares), func(a, b int) { shares[a], shares[b] = shares[b], shares[a] })

		allocs, err := Resolve(total, shares)
		require.NoError(t, err, "total=%s shares=%v", total, shares)
		require.Len(t, allocs, len(shares))
		require.True(t, Sum(allocs).Equal(total), "sum %s != total %s", Sum(allocs), total)
		for idx, a := range allocs {
			require.Equal(t, shares[idx].UserID, a.UserID)
			require.False(t, a.Amount.IsNegative())
			require.True(t, isCents(a.Amount))
		}
	}
}

// splitBasisPoints returns n non-negative integers summing to 10000.
func splitBasisPoints(rng *rand.Rand, n int) []int {
	cuts := make([]int, 0, n+1)
	cuts = append(cuts, 0)
	for i := 1; i < n; i++ {
		cuts = append(cuts, rng.Intn(10001))
	}
	cuts = append(cuts, 10000)
	for i := 1; i < len(cuts); i++ {
		for j := i; j > 0 && cuts[j] < cuts[j-1]; j-- {
			cuts[j], cuts[j-1] = cuts[j-1], cuts[j]
		}
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = cuts[i+1] - cuts[i]
	}
	return out
}
