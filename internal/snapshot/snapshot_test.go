package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validDocument = `{
  "generated_at": "2024-01-01T00:00:00Z",
  "currency": "USD",
  "source": {"provider": "offline_sample", "retrieved_at": "2024-01-01T00:00:00Z"},
  "platforms": [
    {
      "id": "racional",
      "name": "Racional",
      "color": "#0B57D0",
      "summary": {"avg_return_1y": 0.1, "timestamp_range": {"start": "2019-01-02", "end": "2024-01-01"}},
      "holdings": [
        {
          "ticker": "ABC",
          "display_name": "ABC Fund",
          "platform_id": "racional",
          "weight": 0.5,
          "currency": "CLP",
          "latest_price": 100.5,
          "metrics": {"return_1y": 0.10, "return_5y": null, "monthly_change_pct": 0.01, "daily_change_pct": -0.002},
          "series": {"price_history": [{"date": "2024-01-01", "close": 100.5}], "normalized_5y": [{"date": "2024-01-01", "value": 100}]}
        }
      ]
    }
  ],
  "charts": {
    "timeseries_5y": {
      "labels": ["2024-01-01"],
      "datasets": [{"id": "ABC", "label": "ABC · Racional", "platform_id": "racional", "borderColor": "#0B57D0", "backgroundColor": "rgba(11, 87, 208, 0.15)", "data": [100, null], "weight": 0.5}]
    },
    "histograms": {
      "return_1y": [{"ticker": "ABC", "platform_id": "racional", "label": "ABC", "weight": 0.5, "value": 0.1}]
    }
  }
}`

func TestDecodeValidDocument(t *testing.T) {
	snap, err := DecodeStrict(strings.NewReader(validDocument))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.GeneratedAt != "2024-01-01T00:00:00Z" {
		t.Errorf("GeneratedAt = %q", snap.GeneratedAt)
	}
	if len(snap.Platforms) != 1 || snap.Platforms[0].ID != "racional" {
		t.Fatalf("Platforms = %+v, want one racional platform", snap.Platforms)
	}
	h := snap.Platforms[0].Holdings[0]
	if h.Metrics.Return1Y == nil || *h.Metrics.Return1Y != 0.10 {
		t.Errorf("Return1Y = %v, want 0.10", h.Metrics.Return1Y)
	}
	if h.Metrics.Return5Y != nil {
		t.Errorf("Return5Y = %v, want nil", *h.Metrics.Return5Y)
	}
	ds := snap.Charts.Timeseries5Y.Datasets[0]
	if len(ds.Data) != 2 || ds.Data[1] != nil {
		t.Errorf("dataset data = %v, want [100 nil]", ds.Data)
	}
	if got := snap.Charts.Histograms["return_1y"]; len(got) != 1 || got[0].Value != 0.1 {
		t.Errorf("histogram return_1y = %+v", got)
	}
}

func TestDecodeLenientAllowsMinimalDocument(t *testing.T) {
	doc := `{"generated_at":"2024-01-01T00:00:00Z","platforms":[{"id":"racional","holdings":[{"ticker":"ABC","weight":0.5,"metrics":{"return_1y":0.10}}]}]}`

	snap, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Platforms[0].Holdings[0].Ticker != "ABC" {
		t.Errorf("ticker = %q, want ABC", snap.Platforms[0].Holdings[0].Ticker)
	}

	if _, err := DecodeStrict(strings.NewReader(doc)); err == nil {
		t.Error("DecodeStrict accepted a document without currency/source/charts")
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		problem string
	}{
		{"not json", `<html>404</html>`, "parsing JSON"},
		{"array", `[1,2,3]`, "not a JSON object"},
		{"platforms not list", `{"platforms": {"id": "x"}}`, "platforms must be a list"},
		{"blank platform id", `{"platforms": [{"id": "  "}]}`, "invalid id"},
		{"numeric generated_at", `{"generated_at": 5}`, "generated_at must be a string"},
		{"string weight", `{"platforms": [{"id": "p", "holdings": [{"ticker": "A", "weight": "half"}]}]}`, "weight must be numeric"},
		{"string metric", `{"platforms": [{"id": "p", "holdings": [{"ticker": "A", "metrics": {"return_1y": "10%"}}]}]}`, "metrics.return_1y"},
		{"bad histogram", `{"charts": {"histograms": {"return_1y": [{"ticker": "A"}]}}}`, "value must be numeric"},
		{"bad dataset data", `{"charts": {"timeseries_5y": {"datasets": [{"id": "A", "label": "A", "platform_id": "p", "borderColor": "#fff", "backgroundColor": "#fff", "data": ["x"]}]}}}`, "numbers or null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error %v does not wrap ErrMalformed", err)
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("error %q does not mention %q", err, tt.problem)
			}
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	doc := map[string]any{
		"generated_at": 1.0,
		"currency":     2.0,
	}
	err := Validate(doc, true)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	// missing source/platforms/charts + bad generated_at/currency + missing shapes
	if len(verr.Problems) < 5 {
		t.Errorf("problems = %v, want at least 5", verr.Problems)
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.json")
	if err := os.WriteFile(path, []byte(validDocument), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ValidateFile(path); err != nil {
		t.Errorf("ValidateFile: %v", err)
	}
	if _, err := ValidateFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("ValidateFile on missing file should fail")
	}
}
