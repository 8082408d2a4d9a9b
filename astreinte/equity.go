package astreinte

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// =============================================================================
// WORKLOAD STATISTICS - Equity scoring and surcharge thresholds
// =============================================================================

// WorkloadStats summarizes the per-user assignment distribution of a roster.
// Mean and deviation are kept as decimals so thresholds compare exactly;
// only the square root goes through float64.
type WorkloadStats struct {
	Counts map[org.UserID]int
	Total  int
	Mean   decimal.Decimal
	StdDev decimal.Decimal
}

// ComputeWorkloadStats computes distribution statistics over the counts.
// An empty distribution has zero mean and deviation.
func ComputeWorkloadStats(counts map[org.UserID]int) WorkloadStats {
	stats := WorkloadStats{Counts: counts}
	n := len(counts)
	if n == 0 {
		return stats
	}

	sum := decimal.Zero
	for _, c := range counts {
		stats.Total += c
		sum = sum.Add(decimal.NewFromInt(int64(c)))
	}
	nn := decimal.NewFromInt(int64(n))
	stats.Mean = sum.Div(nn)

	variance := decimal.Zero
	for _, c := range counts {
		d := decimal.NewFromInt(int64(c)).Sub(stats.Mean)
		variance = variance.Add(d.Mul(d))
	}
	variance = variance.Div(nn)

	v, _ := variance.Float64()
	stats.StdDev = decimal.NewFromFloat(math.Sqrt(v))
	return stats
}

// EquityScore is 100 × (1 − stddev/mean), clamped to [0, 100].
// 100 means a perfectly equal distribution. A roster with no assignments
// (or a zero mean) is trivially equitable.
func (s WorkloadStats) EquityScore() float64 {
	if s.Mean.IsZero() {
		return 100
	}
	ratio := s.StdDev.Div(s.Mean)
	score := decimal.NewFromInt(100).Mul(decimal.NewFromInt(1).Sub(ratio))
	f, _ := score.Float64()
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return f
}

// SurchargeThreshold returns mean + stddev + margin: the per-user count
// above which a surcharge conflict is raised.
func (s WorkloadStats) SurchargeThreshold(margin decimal.Decimal) decimal.Decimal {
	return s.Mean.Add(s.StdDev).Add(margin)
}

// OverloadedUsers returns users whose count exceeds the threshold,
// ordered by user id for determinism.
func (s WorkloadStats) OverloadedUsers(margin decimal.Decimal) []org.UserID {
	threshold := s.SurchargeThreshold(margin)
	var users []org.UserID
	for id, c := range s.Counts {
		if decimal.NewFromInt(int64(c)).GreaterThan(threshold) {
			users = append(users, id)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}
