package payout

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		name    string
		current MetricSet
		target  MetricSet
		want    *big.Rat
	}{
		{
			name:    "halfway on all four",
			current: MetricSet{Likes: 2500, Comments: 250, Views: 25000, Shares: 500},
			target:  MetricSet{Likes: 5000, Comments: 500, Views: 50000, Shares: 1000},
			want:    big.NewRat(1, 2),
		},
		{
			name:    "all targets met",
			current: MetricSet{Likes: 5000, Comments: 500, Views: 50000, Shares: 1000},
			target:  MetricSet{Likes: 5000, Comments: 500, Views: 50000, Shares: 1000},
			want:    big.NewRat(1, 1),
		},
		{
			name:    "overshoot is capped per metric",
			current: MetricSet{Likes: 999999, Comments: 0, Views: 0, Shares: 0},
			target:  MetricSet{Likes: 100, Comments: 100, Views: 0, Shares: 0},
			want:    big.NewRat(1, 2),
		},
		{
			name:    "zero targets excluded from the average",
			current: MetricSet{Likes: 50, Comments: 12345, Views: 99, Shares: 7},
			target:  MetricSet{Likes: 100, Comments: 0, Views: 0, Shares: 0},
			want:    big.NewRat(1, 2),
		},
		{
			name:    "no goals at all is trivially complete",
			current: MetricSet{},
			target:  MetricSet{},
			want:    big.NewRat(1, 1),
		},
		{
			name:    "no progress yet",
			current: MetricSet{},
			target:  MetricSet{Likes: 10, Comments: 10, Views: 10, Shares: 10},
			want:    new(big.Rat),
		},
		{
			name:    "uneven thirds stay exact",
			current: MetricSet{Likes: 1, Comments: 1, Views: 1, Shares: 0},
			target:  MetricSet{Likes: 3, Comments: 3, Views: 3, Shares: 0},
			want:    big.NewRat(1, 3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Progress(tt.current, tt.target)
			require.Zero(t, got.Cmp(tt.want), "Progress() = %s, want %s", got, tt.want)
		})
	}
}

func TestProgressBounds(t *testing.T) {
	// fraction never leaves [0, 1] even with wild inputs
	got := Progress(
		MetricSet{Likes: 1 << 40, Comments: 1 << 40, Views: 1 << 40, Shares: 1 << 40},
		MetricSet{Likes: 1, Comments: 1, Views: 1, Shares: 1},
	)
	require.Zero(t, got.Cmp(big.NewRat(1, 1)))

	got = Progress(MetricSet{}, MetricSet{Likes: 1})
	require.True(t, got.Sign() >= 0)
}

func TestTargetPaid(t *testing.T) {
	tests := []struct {
		name     string
		funded   int64
		progress *big.Rat
		want     int64
	}{
		{"half of 1000", 1000, big.NewRat(1, 2), 500},
		{"full", 1000, big.NewRat(1, 1), 1000},
		{"zero", 1000, new(big.Rat), 0},
		{"floor of a third", 1000, big.NewRat(1, 3), 333},
		{"floor of two thirds", 1000, big.NewRat(2, 3), 666},
		{"tiny fraction floors to zero", 10, big.NewRat(1, 100), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, TargetPaid(tt.funded, tt.progress))
		})
	}
}

func TestNextDelta(t *testing.T) {
	// scenario from the funded=1000 campaign: first snapshot at 50%
	require.Equal(t, int64(500), NextDelta(1000, 0, big.NewRat(1, 2)))
	// same snapshot replayed: no second transfer
	require.Equal(t, int64(0), NextDelta(1000, 500, big.NewRat(1, 2)))
	// completion releases exactly the remainder
	require.Equal(t, int64(500), NextDelta(1000, 500, big.NewRat(1, 1)))
	// a stale lower fraction yields a negative delta the caller must no-op
	require.Negative(t, NextDelta(1000, 500, big.NewRat(1, 4)))
}

// The cumulative sum of floored deltas must never exceed the funded amount,
// and replaying any prefix of snapshots must not change the totals.
func TestDeltaSumNeverExceedsFunded(t *testing.T) {
	const funded = int64(997) // prime, maximizes rounding churn
	target := MetricSet{Likes: 7, Comments: 13, Views: 29, Shares: 3}

	var paid int64
	cur := MetricSet{}
	steps := []MetricSet{
		{Likes: 1, Comments: 2, Views: 5, Shares: 0},
		{Likes: 1, Comments: 2, Views: 5, Shares: 0}, // duplicate submission
		{Likes: 3, Comments: 6, Views: 11, Shares: 1},
		{Likes: 5, Comments: 9, Views: 20, Shares: 2},
		{Likes: 7, Comments: 13, Views: 29, Shares: 3},
	}

	for _, next := range steps {
		cur = next
		delta := NextDelta(funded, paid, Progress(cur, target))
		if delta > 0 {
			paid += delta
		}
		require.LessOrEqual(t, paid, funded)
		require.GreaterOrEqual(t, paid, int64(0))
	}

	// all targets hit: everything funded must have been paid out
	require.Equal(t, funded, paid)
}
