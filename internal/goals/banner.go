package goals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tracker/internal/view"
)

const cacheBusterParam = "cb"

// Attributes are the banner figures of the first goal.
type Attributes struct {
	NAV       *float64 `json:"nav"`
	Deposited *float64 `json:"deposited"`
	Profit    *float64 `json:"profit"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

// Banner is the scrolling banner content. It is hidden when the goals file
// cannot be loaded or carries no recognizable goal.
type Banner struct {
	Visible    bool        `json:"visible"`
	Message    string      `json:"message,omitempty"`
	Attributes *Attributes `json:"attributes,omitempty"`
}

// BannerLoader reads the published goals file from the first working source.
// Sources are http(s) URLs or local file paths.
type BannerLoader struct {
	httpClient *http.Client
	sources    []string
	loc        *time.Location
}

// NewBannerLoader creates a loader trying sources in order. Timestamps are shown in loc.
func NewBannerLoader(sources []string, loc *time.Location) *BannerLoader {
	return &BannerLoader{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		sources:    sources,
		loc:        loc,
	}
}

// Banner loads the goals and builds the banner. Load failures hide the banner
// and are returned for logging.
func (l *BannerLoader) Banner(ctx context.Context) (Banner, error) {
	payload, err := l.Load(ctx)
	if err != nil {
		return Banner{}, err
	}
	attrs, ok := ReadAttributes(payload)
	if !ok {
		return Banner{}, errors.New("goals file has no recognizable goal attributes")
	}
	return Banner{Visible: true, Message: Message(attrs, l.loc), Attributes: &attrs}, nil
}

// Load returns the first goals document any source serves. When all fail the
// error lists each source with its reason.
func (l *BannerLoader) Load(ctx context.Context) (map[string]any, error) {
	var failures []string
	for _, src := range l.sources {
		payload, err := l.loadOne(ctx, src)
		if err == nil {
			return payload, nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", src, err))
	}
	if len(failures) == 0 {
		return nil, errors.New("could not load goals.json")
	}
	return nil, errors.New(strings.Join(failures, " · "))
}

func (l *BannerLoader) loadOne(ctx context.Context, src string) (map[string]any, error) {
	var body []byte
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		u, err := url.Parse(src)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set(cacheBusterParam, cacheBuster(time.Now()))
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Cache-Control", "no-store")
		resp, err := l.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		if body, err = io.ReadAll(resp.Body); err != nil {
			return nil, err
		}
	} else {
		var err error
		if body, err = os.ReadFile(src); err != nil {
			return nil, err
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ReadAttributes extracts the figures of the first goal in payload["data"].
// The update time is the fetch time, falling back to the goal's own timestamp.
func ReadAttributes(payload map[string]any) (Attributes, bool) {
	data, _ := payload["data"].([]any)
	if len(data) == 0 {
		return Attributes{}, false
	}
	goal, _ := data[0].(map[string]any)
	attrs, ok := goal["attributes"].(map[string]any)
	if !ok {
		return Attributes{}, false
	}

	updatedAt, _ := payload["fetched_at"].(string)
	if updatedAt == "" {
		updatedAt, _ = attrs["updated_at"].(string)
	}
	return Attributes{
		NAV:       number(attrs["nav"]),
		Deposited: number(attrs["deposited"]),
		Profit:    number(attrs["profit"]),
		UpdatedAt: updatedAt,
	}, true
}

func number(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(n), 64); err != nil {
			return nil
		}
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func cacheBuster(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + string(suffix)
}

// Message is the banner text.
func Message(a Attributes, loc *time.Location) string {
	return strings.Join([]string{
		fmt.Sprintf("Fintual LimnoTec: Balance (%s)", FormatCLP(a.NAV)),
		fmt.Sprintf("Deposited (%s)", FormatCLP(a.Deposited)),
		fmt.Sprintf("Profit (%s)", FormatCLP(a.Profit)),
		"Updated " + view.FormatDateTime(a.UpdatedAt, loc),
	}, " · ")
}

// FormatCLP formats a peso amount without decimals, e.g. "$1.234.567".
func FormatCLP(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return view.Missing
	}
	amount := decimal.NewFromFloat(*v).Round(0).IntPart()
	return money.New(amount, money.CLP).Display()
}
