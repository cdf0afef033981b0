package view

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Trend classes of a signed figure.
const (
	TrendPositive = "value-positive"
	TrendNegative = "value-negative"
	TrendNeutral  = "value-neutral"
)

// Missing is shown in place of an absent figure.
const Missing = "--"

// FormatPercent formats a fraction as a percentage with two decimals and
// es-CL separators: 0.012345 → "+1,23%". Signed output prefixes "+" or "-"
// to non-zero values. nil and NaN yield Missing.
func FormatPercent(v *float64, signed bool) string {
	if v == nil || math.IsNaN(*v) {
		return Missing
	}
	pct := decimal.NewFromFloat(*v).Mul(decimal.NewFromInt(100))
	formatted := FormatNumber(pct.Abs(), 2) + "%"
	if !signed {
		return formatted
	}
	switch pct.Sign() {
	case 1:
		return "+" + formatted
	case -1:
		return "-" + formatted
	default:
		return formatted
	}
}

// FormatNumber formats d with the given decimals, "." grouping thousands and
// "," as decimal separator.
func FormatNumber(d decimal.Decimal, decimals int32) string {
	s := d.StringFixed(decimals)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

// TrendClass classifies a figure for coloring. nil and zero are neutral.
func TrendClass(v *float64) string {
	switch {
	case v == nil || *v == 0 || math.IsNaN(*v):
		return TrendNeutral
	case *v > 0:
		return TrendPositive
	default:
		return TrendNegative
	}
}

// FormatDateTime renders an RFC 3339 timestamp in the es-CL medium date and
// short time style, in loc. Empty input yields Missing; unparseable input is
// returned as is.
func FormatDateTime(iso string, loc *time.Location) string {
	if iso == "" {
		return Missing
	}
	t, err := parseTimestamp(iso)
	if err != nil {
		return iso
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("02-01-2006, 15:04")
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
