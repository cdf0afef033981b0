package snapshot

import (
	"fmt"
	"strings"
)

var (
	requiredKeys       = []string{"generated_at", "currency", "source", "platforms", "charts"}
	holdingMetricKeys  = []string{"return_1y", "return_5y", "monthly_change_pct", "daily_change_pct"}
	summaryNumericKeys = []string{"total_weight", "avg_return_1y", "avg_return_5y", "avg_monthly_change"}
	histogramKeys      = []string{"monthly_change", "return_1y", "return_5y"}
	datasetStringKeys  = []string{"id", "label", "platform_id", "borderColor", "backgroundColor"}
)

type validator struct {
	strict   bool
	problems []string
}

func (v *validator) check(cond bool, format string, args ...any) {
	if !cond {
		v.problems = append(v.problems, fmt.Sprintf(format, args...))
	}
}

// Validate checks the structure of a decoded JSON document. In strict mode the
// top-level keys, holding display fields and source provider are required; otherwise
// only the shape of the fields that are present is checked. Platform ids and
// holding tickers are required in both modes.
func Validate(doc map[string]any, strict bool) error {
	v := &validator{strict: strict}
	v.payload(doc)
	if len(v.problems) > 0 {
		return &ValidationError{Problems: v.problems}
	}
	return nil
}

func (v *validator) payload(doc map[string]any) {
	if v.strict {
		for _, key := range requiredKeys {
			_, ok := doc[key]
			v.check(ok, "missing required key: %s", key)
		}
	}

	if val, ok := present(doc, "generated_at"); ok || v.strict {
		v.check(isString(val), "generated_at must be a string")
	}
	if val, ok := present(doc, "currency"); ok || v.strict {
		v.check(isString(val), "currency must be a string")
	}

	if val, ok := present(doc, "source"); ok || v.strict {
		source, isObj := val.(map[string]any)
		v.check(isObj, "source must be an object")
		if isObj {
			v.source(source)
		}
	}

	if val, ok := present(doc, "platforms"); ok || v.strict {
		platforms, isList := val.([]any)
		v.check(isList, "platforms must be a list")
		for _, item := range platforms {
			platform, isObj := item.(map[string]any)
			if !isObj {
				v.check(false, "platforms must contain objects")
				continue
			}
			v.platform(platform)
		}
	}

	if val, ok := present(doc, "charts"); ok || v.strict {
		charts, isObj := val.(map[string]any)
		v.check(isObj, "charts must be an object")
		if isObj {
			v.charts(charts)
		}
	}
}

func (v *validator) source(source map[string]any) {
	if val, ok := present(source, "provider"); ok || v.strict {
		v.check(isString(val), "source.provider must be a string")
	}
	if val, ok := present(source, "retrieved_at"); ok {
		v.check(isString(val), "source.retrieved_at must be a string")
	}
	if val, ok := present(source, "notes"); ok {
		_, isObj := val.(map[string]any)
		v.check(isObj, "source.notes must be an object")
	}
}

func (v *validator) platform(platform map[string]any) {
	id, _ := platform["id"].(string)
	prefix := "platform " + orPlaceholder(id, "<no id>")

	v.check(nonBlank(platform["id"]), "%s: invalid id", prefix)
	if val, ok := present(platform, "name"); ok || v.strict {
		v.check(isString(val), "%s: name must be a string", prefix)
	}
	if val, ok := present(platform, "color"); ok || v.strict {
		v.check(isString(val), "%s: color must be a string", prefix)
	}

	if val, ok := present(platform, "holdings"); ok {
		holdings, isList := val.([]any)
		v.check(isList, "%s: holdings must be a list", prefix)
		for _, item := range holdings {
			holding, isObj := item.(map[string]any)
			if !isObj {
				v.check(false, "%s: holdings must contain objects", prefix)
				continue
			}
			v.holding(holding, id)
		}
	}

	if val, ok := present(platform, "summary"); ok {
		summary, isObj := val.(map[string]any)
		v.check(isObj, "%s: summary must be an object", prefix)
		if isObj {
			v.summary(summary, prefix)
		}
	}
}

func (v *validator) summary(summary map[string]any, prefix string) {
	for _, key := range summaryNumericKeys {
		if val, ok := present(summary, key); ok {
			v.check(isNumber(val), "%s: summary.%s must be numeric", prefix, key)
		}
	}
	val, ok := present(summary, "timestamp_range")
	if !ok {
		return
	}
	rng, isObj := val.(map[string]any)
	v.check(isObj, "%s: summary.timestamp_range must be an object", prefix)
	if isObj {
		v.check(isString(rng["start"]), "%s: summary.timestamp_range.start must be a string", prefix)
		v.check(isString(rng["end"]), "%s: summary.timestamp_range.end must be a string", prefix)
	}
}

func (v *validator) holding(holding map[string]any, platformID string) {
	ticker, _ := holding["ticker"].(string)
	prefix := fmt.Sprintf("holding %s (%s)", orPlaceholder(ticker, "<no ticker>"), platformID)

	v.check(nonBlank(holding["ticker"]), "%s: invalid ticker", prefix)
	if val, ok := present(holding, "display_name"); ok || v.strict {
		v.check(nonBlank(val), "%s: invalid display_name", prefix)
	}
	if val, ok := present(holding, "weight"); ok || v.strict {
		v.check(isNumber(val), "%s: weight must be numeric", prefix)
	}
	if val, ok := present(holding, "currency"); ok || v.strict {
		v.check(isString(val), "%s: currency must be a string", prefix)
	}

	if val, ok := present(holding, "metrics"); ok {
		metrics, isObj := val.(map[string]any)
		v.check(isObj, "%s: metrics must be an object", prefix)
		for _, key := range holdingMetricKeys {
			if metrics == nil {
				break
			}
			m := metrics[key]
			v.check(m == nil || isNumber(m), "%s: metrics.%s must be a number or null", prefix, key)
		}
	}

	val, ok := present(holding, "series")
	if !ok {
		return
	}
	series, isObj := val.(map[string]any)
	v.check(isObj, "%s: series must be an object", prefix)
	if !isObj {
		return
	}
	v.points(series, "price_history", "close", prefix)
	v.points(series, "normalized_5y", "value", prefix)
}

func (v *validator) points(series map[string]any, key, valueKey, prefix string) {
	val, ok := present(series, key)
	if !ok {
		return
	}
	points, isList := val.([]any)
	v.check(isList, "%s: series.%s must be a list", prefix, key)
	for _, item := range points {
		point, isObj := item.(map[string]any)
		if !isObj {
			v.check(false, "%s: %s must contain objects", prefix, key)
			continue
		}
		v.check(isString(point["date"]), "%s: %s.date must be a string", prefix, key)
		v.check(isNumber(point[valueKey]), "%s: %s.%s must be numeric", prefix, key, valueKey)
	}
}

func (v *validator) charts(charts map[string]any) {
	if val, ok := present(charts, "timeseries_5y"); ok {
		ts, isObj := val.(map[string]any)
		v.check(isObj, "charts.timeseries_5y must be an object")
		if isObj {
			v.timeseries(ts)
		}
	}

	val, ok := present(charts, "histograms")
	if !ok {
		return
	}
	histograms, isObj := val.(map[string]any)
	v.check(isObj, "charts.histograms must be an object")
	for _, key := range histogramKeys {
		entries, ok := present(histograms, key)
		if !ok {
			continue
		}
		list, isList := entries.([]any)
		v.check(isList, "charts.histograms.%s must be a list", key)
		for _, item := range list {
			entry, isObj := item.(map[string]any)
			if !isObj {
				v.check(false, "charts.histograms.%s must contain objects", key)
				continue
			}
			ticker, _ := entry["ticker"].(string)
			prefix := fmt.Sprintf("histogram %s · %s", key, orPlaceholder(ticker, "<no ticker>"))
			v.check(isString(entry["ticker"]), "%s: ticker must be a string", prefix)
			v.check(isString(entry["platform_id"]), "%s: platform_id must be a string", prefix)
			v.check(isString(entry["label"]), "%s: label must be a string", prefix)
			v.check(isNumber(entry["weight"]), "%s: weight must be numeric", prefix)
			v.check(isNumber(entry["value"]), "%s: value must be numeric", prefix)
		}
	}
}

func (v *validator) timeseries(ts map[string]any) {
	if val, ok := present(ts, "labels"); ok {
		labels, isList := val.([]any)
		v.check(isList, "charts.timeseries_5y.labels must be a list")
		for _, label := range labels {
			v.check(isString(label), "charts.timeseries_5y.labels must contain strings")
		}
	}

	val, ok := present(ts, "datasets")
	if !ok {
		return
	}
	datasets, isList := val.([]any)
	v.check(isList, "charts.timeseries_5y.datasets must be a list")
	for _, item := range datasets {
		dataset, isObj := item.(map[string]any)
		if !isObj {
			v.check(false, "charts.timeseries_5y.datasets must contain objects")
			continue
		}
		id, _ := dataset["id"].(string)
		prefix := "dataset " + orPlaceholder(id, "<no id>")
		for _, key := range datasetStringKeys {
			v.check(isString(dataset[key]), "%s: %s must be a string", prefix, key)
		}
		data, isList := dataset["data"].([]any)
		v.check(dataset["data"] == nil || isList, "%s: data must be a list", prefix)
		for _, value := range data {
			v.check(value == nil || isNumber(value), "%s: data must contain numbers or null", prefix)
		}
	}
}

func present(obj map[string]any, key string) (any, bool) {
	val, ok := obj[key]
	return val, ok && val != nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func nonBlank(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

func isNumber(v any) bool {
	_, ok := v.(float64)
	return ok
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
