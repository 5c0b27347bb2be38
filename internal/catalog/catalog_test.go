package catalog

import "testing"

func TestRangeContains(t *testing.T) {
	tests := []struct {
		name   string
		r      Range
		v      float64
		wantIn bool
	}{
		{"inside", Range{Lo: 0, Hi: 100}, 50, true},
		{"at lower bound", Range{Lo: 0, Hi: 100}, 0, true},
		{"at upper bound", Range{Lo: 0, Hi: 100}, 100, true},
		{"below", Range{Lo: 0, Hi: 100}, -0.1, false},
		{"above", Range{Lo: 0, Hi: 100}, 100.1, false},
		{"negative band", Range{Lo: -25, Hi: -10}, -15, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.v); got != tt.wantIn {
				t.Errorf("Contains(%v) = %v, want %v", tt.v, got, tt.wantIn)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	cat := New([]SensorMetadata{
		{ID: "rpm", DisplayName: "Engine RPM", Unit: "rpm"},
	})

	m, ok := cat.Lookup("rpm")
	if !ok {
		t.Fatal("expected rpm to be present")
	}
	if m.DisplayName != "Engine RPM" {
		t.Errorf("unexpected display name %q", m.DisplayName)
	}

	if _, ok := cat.Lookup("nonexistent"); ok {
		t.Error("expected lookup miss for unknown sensor")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	cat := New([]SensorMetadata{
		{ID: "rpm"},
		{ID: "speed"},
	})

	all := cat.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 sensors, got %d", len(all))
	}

	all[0].ID = "mutated"
	if _, ok := cat.Lookup("mutated"); ok {
		t.Error("mutating the returned slice must not affect the catalog")
	}
}

func TestDefaultCatalog(t *testing.T) {
	cat := Default()
	if cat.Len() == 0 {
		t.Fatal("default catalog is empty")
	}

	coolant, ok := cat.Lookup("coolant_temp")
	if !ok {
		t.Fatal("default catalog missing coolant_temp")
	}
	if coolant.CriticalRange == nil {
		t.Fatal("coolant_temp has no critical range")
	}
	if !coolant.CriticalRange.Contains(120) {
		t.Error("120°C should be inside the coolant critical band")
	}
	if coolant.NormalRange.Contains(120) {
		t.Error("120°C should be outside the coolant normal band")
	}

	// Every sensor with a smoothed reading needs a unit and display name.
	for _, s := range cat.All() {
		if s.ID == "" || s.DisplayName == "" || s.Unit == "" {
			t.Errorf("sensor %+v missing required metadata", s)
		}
	}
}
