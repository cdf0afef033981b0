package domain

import (
	"github.com/shopspring/decimal"
)

// WeightedMetric computes the weight-averaged value of key across the platform's
// holdings. Holdings without the metric or with zero weight are skipped. Returns
// nil when no holding contributes.
func WeightedMetric(p Platform, key MetricKey) *float64 {
	weightedSum := decimal.Zero
	appliedWeight := decimal.Zero

	for _, h := range p.Holdings {
		value := h.Metrics.Get(key)
		if value == nil || h.Weight == 0 {
			continue
		}
		weight := decimal.NewFromFloat(h.Weight)
		weightedSum = weightedSum.Add(decimal.NewFromFloat(*value).Mul(weight))
		appliedWeight = appliedWeight.Add(weight)
	}

	if appliedWeight.IsZero() {
		return nil
	}
	result, _ := weightedSum.Div(appliedWeight).Float64()
	return &result
}

// TotalWeight sums holding weights. Useful to detect platforms whose weights do
// not add up to one.
func TotalWeight(p Platform) decimal.Decimal {
	total := decimal.Zero
	for _, h := range p.Holdings {
		total = total.Add(decimal.NewFromFloat(h.Weight))
	}
	return total
}

// Float returns a pointer to v. Handy for literals in tests and builders.
func Float(v float64) *float64 {
	return &v
}
