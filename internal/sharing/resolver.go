package sharing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	minorUnits = 2
	// PercentPlaces is the precision at which percent values are stored.
	PercentPlaces = 4
)

var (
	hundred        = decimal.NewFromInt(100)
	percentEpsilon = decimal.RequireFromString("0.01")
)

// Resolve computes the monetary allocation of every share. Fixed amounts are
// taken first; percent shares split the remainder and must add up to 100
// (within 0.01). Amounts are rounded half-even to cents and the last share in
// declaration order absorbs the rounding residual, so the allocations always
// sum to total exactly. The output preserves declaration order.
func Resolve(total decimal.Decimal, shares []Share) ([]Allocation, error) {
	if total.IsNegative() || !isCents(total) {
		return nil, ErrInvalidTotal
	}
	if len(shares) == 0 {
		return nil, ErrNoShares
	}

	seen := make(map[uuid.UUID]struct{}, len(shares))
	fixedSum := decimal.Zero
	percentSum := decimal.Zero
	hasPercent := false
	for idx, s := range shares {
		if s.UserID == uuid.Nil {
			return nil, shareErr(idx, ErrInvalidShareValue, "user id required")
		}
		if _, dup := seen[s.UserID]; dup {
			return nil, shareErr(idx, ErrDuplicateShareUser, "user %s", s.UserID)
		}
		seen[s.UserID] = struct{}{}
		if s.Value.IsNegative() {
			return nil, shareErr(idx, ErrInvalidShareValue, "negative value %s", s.Value)
		}
		switch s.Type {
		case ShareTypeFixed:
			if !isCents(s.Value) {
				return nil, shareErr(idx, ErrInvalidShareValue, "fixed amount %s has sub-cent precision", s.Value)
			}
			fixedSum = fixedSum.Add(s.Value)
		case ShareTypePercent:
			if s.Value.GreaterThan(hundred) {
				return nil, shareErr(idx, ErrInvalidShareValue, "percent %s above 100", s.Value)
			}
			if !s.Value.Equal(s.Value.Round(PercentPlaces)) {
				return nil, shareErr(idx, ErrInvalidShareValue, "percent %s has more than %d decimals", s.Value, PercentPlaces)
			}
			percentSum = percentSum.Add(s.Value)
			hasPercent = true
		default:
			return nil, shareErr(idx, ErrInvalidShareValue, "unknown share type %q", s.Type)
		}
	}

	if fixedSum.GreaterThan(total) {
		return nil, shareErr(len(shares)-1, ErrOverAllocatedShares, "fixed shares %s exceed total %s", fixedSum, total)
	}
	remaining := total.Sub(fixedSum)
	if hasPercent {
		if percentSum.Sub(hundred).GreaterThan(percentEpsilon) {
			return nil, shareErr(len(shares)-1, ErrOverAllocatedShares, "percent shares sum to %s", percentSum)
		}
		if hundred.Sub(percentSum).GreaterThan(percentEpsilon) {
			return nil, shareErr(len(shares)-1, ErrIncompleteAllocation, "percent shares sum to %s", percentSum)
		}
	} else if !fixedSum.Equal(total) {
		return nil, shareErr(len(shares)-1, ErrIncompleteAllocation, "fixed shares %s leave %s unallocated", fixedSum, remaining)
	}

	allocs := make([]Allocation, len(shares))
	allocated := decimal.Zero
	for idx, s := range shares {
		amount := s.Value
		if s.Type == ShareTypePercent {
			amount = remaining.Mul(s.Value).Div(hundred).RoundBank(minorUnits)
		}
		allocs[idx] = Allocation{UserID: s.UserID, Type: s.Type, Amount: amount}
		allocated = allocated.Add(amount)
	}

	// A negative residual that would push the last share below zero carries
	// on to the preceding shares.
	residual := total.Sub(allocated)
	for idx := len(allocs) - 1; idx >= 0 && !residual.IsZero(); idx-- {
		next := allocs[idx].Amount.Add(residual)
		if next.IsNegative() {
			allocs[idx].Amount = decimal.Zero
			residual = next
			continue
		}
		allocs[idx].Amount = next
		residual = decimal.Zero
	}
	if !residual.IsZero() {
		return nil, shareErr(len(allocs)-1, ErrIncompleteAllocation, "rounding residual %s left over", residual)
	}
	return allocs, nil
}

func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(minorUnits))
}
