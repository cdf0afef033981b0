package domain

import "testing"

func TestIndexPlatformsLastWriteWins(t *testing.T) {
	platforms := []Platform{
		{ID: "racional", Name: "first"},
		{ID: "fintual", Name: "Fintual"},
		{ID: "racional", Name: "second"},
	}

	index := IndexPlatforms(platforms)

	if len(index) != 2 {
		t.Fatalf("len(index) = %d, want 2", len(index))
	}
	if index["racional"].Name != "second" {
		t.Errorf("index[racional].Name = %q, want second", index["racional"].Name)
	}
	if index["fintual"].Name != "Fintual" {
		t.Errorf("index[fintual].Name = %q, want Fintual", index["fintual"].Name)
	}
}

func TestPlatformIDs(t *testing.T) {
	ids := PlatformIDs([]Platform{{ID: "a"}, {ID: "b"}})
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("PlatformIDs = %v, want [a b]", ids)
	}
	if !HasPlatform([]Platform{{ID: "a"}}, "a") {
		t.Error("HasPlatform(a) = false, want true")
	}
	if HasPlatform(nil, "a") {
		t.Error("HasPlatform on empty = true, want false")
	}
}

func TestMetricsGet(t *testing.T) {
	m := Metrics{
		DailyChangePct:   Float(0.01),
		MonthlyChangePct: Float(0.02),
		Return1Y:         Float(0.03),
		Return5Y:         Float(0.04),
	}
	want := map[MetricKey]float64{
		MetricDailyChange:   0.01,
		MetricMonthlyChange: 0.02,
		MetricReturn1Y:      0.03,
		MetricReturn5Y:      0.04,
	}
	for key, v := range want {
		if got := m.Get(key); got == nil || *got != v {
			t.Errorf("Get(%s) = %v, want %v", key, got, v)
		}
	}
	if m.Get("unknown") != nil {
		t.Error("Get(unknown) should be nil")
	}
}
