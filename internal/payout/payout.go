// Package payout holds the pure arithmetic of the milestone engine: mapping
// metric counts to a completion fraction and the fraction to a cumulative
// payout target. Everything here is deterministic and side-effect free; all
// math is exact rational arithmetic so repeated fractional rounding can never
// pay out more than the funded amount.
package payout

import "math/big"

// MetricSet carries the four tracked social counts.
type MetricSet struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Views    int64 `json:"views"`
	Shares   int64 `json:"shares"`
}

var one = big.NewRat(1, 1)

// Progress returns the completion fraction in [0, 1]: the arithmetic mean,
// over every metric with a non-zero target, of min(current/target, 1).
// Zero-target metrics carry no goal and are excluded from the average. If all
// four targets are zero the fraction is 1 (trivially satisfied); callers
// that consider that a misconfiguration must reject it before funding.
func Progress(current, target MetricSet) *big.Rat {
	sum := new(big.Rat)
	var counted int64

	for _, pair := range []struct{ cur, tgt int64 }{
		{current.Likes, target.Likes},
		{current.Comments, target.Comments},
		{current.Views, target.Views},
		{current.Shares, target.Shares},
	} {
		if pair.tgt <= 0 {
			continue
		}
		ratio := big.NewRat(pair.cur, pair.tgt)
		if ratio.Cmp(one) > 0 {
			ratio.Set(one)
		}
		sum.Add(sum, ratio)
		counted++
	}

	if counted == 0 {
		return new(big.Rat).Set(one)
	}
	return sum.Quo(sum, big.NewRat(counted, 1))
}

// TargetPaid returns floor(funded * progress): the cumulative amount that
// should have been released at the given fraction. Flooring guarantees the
// sum of all deltas ever applied stays within the funded amount.
func TargetPaid(funded int64, progress *big.Rat) int64 {
	total := new(big.Rat).Mul(big.NewRat(funded, 1), progress)
	// floor of a non-negative rational
	q := new(big.Int).Quo(total.Num(), total.Denom())
	return q.Int64()
}

// NextDelta returns the incremental amount to release given what was already
// paid. A zero or negative result means the snapshot carried no new progress
// and the caller must treat the update as a funds no-op, not an error.
func NextDelta(funded, paid int64, progress *big.Rat) int64 {
	return TargetPaid(funded, progress) - paid
}
