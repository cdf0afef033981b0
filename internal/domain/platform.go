package domain

import (
	"github.com/samber/lo"
)

// IndexPlatforms keys every platform by its id. On duplicate ids the later
// platform wins. The returned pointers alias the input slice elements.
func IndexPlatforms(platforms []Platform) map[string]*Platform {
	index := make(map[string]*Platform, len(platforms))
	for i := range platforms {
		index[platforms[i].ID] = &platforms[i]
	}
	return index
}

// PlatformIDs returns the ids of platforms in document order.
func PlatformIDs(platforms []Platform) []string {
	return lo.Map(platforms, func(p Platform, _ int) string {
		return p.ID
	})
}

// HasPlatform reports whether any platform carries the given id.
func HasPlatform(platforms []Platform, id string) bool {
	return lo.ContainsBy(platforms, func(p Platform) bool {
		return p.ID == id
	})
}

// SummaryValue returns the precomputed average for key, or nil when the summary
// does not carry it. Daily change is never precomputed.
func (p Platform) SummaryValue(key MetricKey) *float64 {
	if p.Summary == nil {
		return nil
	}
	switch key {
	case MetricMonthlyChange:
		return p.Summary.AvgMonthlyChange
	case MetricReturn1Y:
		return p.Summary.AvgReturn1Y
	case MetricReturn5Y:
		return p.Summary.AvgReturn5Y
	default:
		return nil
	}
}

// MetricOrSummary prefers the precomputed summary average and falls back to the
// weight-averaged holding metric.
func (p Platform) MetricOrSummary(key MetricKey) *float64 {
	if v := p.SummaryValue(key); v != nil {
		return v
	}
	return WeightedMetric(p, key)
}
