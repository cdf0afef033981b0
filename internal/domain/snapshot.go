package domain

// MetricKey names one of the percentage figures carried by a holding.
type MetricKey string

const (
	MetricDailyChange   MetricKey = "daily_change_pct"
	MetricMonthlyChange MetricKey = "monthly_change_pct"
	MetricReturn1Y      MetricKey = "return_1y"
	MetricReturn5Y      MetricKey = "return_5y"
)

// MetricKeys lists the known metric keys in display order.
var MetricKeys = []MetricKey{MetricDailyChange, MetricMonthlyChange, MetricReturn1Y, MetricReturn5Y}

// Snapshot is one fetched portfolio document. It is never mutated after decoding;
// a refresh produces a new Snapshot.
type Snapshot struct {
	GeneratedAt string     `json:"generated_at"`
	Currency    string     `json:"currency"`
	Source      Source     `json:"source"`
	Platforms   []Platform `json:"platforms"`
	Charts      Charts     `json:"charts"`
}

// Source describes where the snapshot figures were obtained.
type Source struct {
	Provider    string            `json:"provider"`
	RetrievedAt string            `json:"retrieved_at,omitempty"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// Platform is one brokerage account whose holdings are tracked.
type Platform struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color,omitempty"`
	Summary  *Summary  `json:"summary,omitempty"`
	Holdings []Holding `json:"holdings"`
}

// Summary holds precomputed aggregates for a platform. Any field may be absent.
type Summary struct {
	TotalWeight      *float64        `json:"total_weight,omitempty"`
	AvgMonthlyChange *float64        `json:"avg_monthly_change,omitempty"`
	AvgReturn1Y      *float64        `json:"avg_return_1y,omitempty"`
	AvgReturn5Y      *float64        `json:"avg_return_5y,omitempty"`
	TimestampRange   *TimestampRange `json:"timestamp_range,omitempty"`
}

// TimestampRange is the date span covered by a platform's price history.
type TimestampRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Holding is one ticker position within a platform.
type Holding struct {
	Ticker      string         `json:"ticker"`
	DisplayName string         `json:"display_name"`
	PlatformID  string         `json:"platform_id,omitempty"`
	Weight      float64        `json:"weight"`
	Currency    string         `json:"currency,omitempty"`
	LatestPrice *float64       `json:"latest_price,omitempty"`
	Metrics     Metrics        `json:"metrics"`
	Series      *Series        `json:"series,omitempty"`
	Status      *HoldingStatus `json:"status,omitempty"`
}

// Metrics carries the percentage figures of a holding as fractions (0.1 = 10%).
// A nil field means the figure could not be computed upstream.
type Metrics struct {
	DailyChangePct   *float64 `json:"daily_change_pct,omitempty"`
	MonthlyChangePct *float64 `json:"monthly_change_pct,omitempty"`
	Return1Y         *float64 `json:"return_1y,omitempty"`
	Return5Y         *float64 `json:"return_5y,omitempty"`
}

// Get returns the figure stored under key, or nil.
func (m Metrics) Get(key MetricKey) *float64 {
	switch key {
	case MetricDailyChange:
		return m.DailyChangePct
	case MetricMonthlyChange:
		return m.MonthlyChangePct
	case MetricReturn1Y:
		return m.Return1Y
	case MetricReturn5Y:
		return m.Return5Y
	default:
		return nil
	}
}

// Series holds the raw and normalized price history of a holding.
type Series struct {
	PriceHistory []PricePoint `json:"price_history"`
	Normalized5Y []ValuePoint `json:"normalized_5y"`
}

// PricePoint is a closing price on a date (YYYY-MM-DD).
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// ValuePoint is a normalized value on a date.
type ValuePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// HoldingStatus flags holdings whose data could not be retrieved upstream.
type HoldingStatus struct {
	MissingData bool     `json:"missing_data"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Charts holds the precomputed chart payloads of a snapshot.
type Charts struct {
	Timeseries5Y *Timeseries                 `json:"timeseries_5y,omitempty"`
	Histograms   map[string][]HistogramEntry `json:"histograms,omitempty"`
}

// Timeseries is a set of datasets sharing one label axis.
type Timeseries struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is one line of the normalized 5-year timeseries. Data is aligned with
// Timeseries.Labels; nil entries are gaps.
type Dataset struct {
	ID              string     `json:"id"`
	Label           string     `json:"label"`
	PlatformID      string     `json:"platform_id"`
	BorderColor     string     `json:"borderColor"`
	BackgroundColor string     `json:"backgroundColor"`
	Data            []*float64 `json:"data"`
	Weight          float64    `json:"weight"`
}

// HistogramEntry is one bar of a per-holding histogram.
type HistogramEntry struct {
	Ticker     string  `json:"ticker"`
	PlatformID string  `json:"platform_id"`
	Label      string  `json:"label"`
	Weight     float64 `json:"weight"`
	Value      float64 `json:"value"`
}
