// Package catalog holds the static sensor metadata table: units,
// display names, alerting ranges, smoothing flags and precision for
// every sensor RevSense understands.
package catalog

// Range is an inclusive [Lo, Hi] value band.
type Range struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Contains reports whether v falls inside the range (inclusive).
func (r Range) Contains(v float64) bool {
	return v >= r.Lo && v <= r.Hi
}

// SensorMetadata describes one sensor. Instances are immutable after
// load. NormalRange is the band where no alert is raised; Warning and
// Critical ranges are trigger bands evaluated critical-before-warning.
type SensorMetadata struct {
	ID               string `json:"id"`
	DisplayName      string `json:"display_name"`
	Unit             string `json:"unit"`
	NormalRange      *Range `json:"normal_range,omitempty"`
	WarningRange     *Range `json:"warning_range,omitempty"`
	CriticalRange    *Range `json:"critical_range,omitempty"`
	Precision        int    `json:"precision"`
	SmoothingEnabled bool   `json:"smoothing_enabled"`
	Category         string `json:"category"`
}

// Catalog is a lookup table of sensor metadata keyed by sensor ID.
type Catalog struct {
	sensors map[string]SensorMetadata
}

// New builds a catalog from the given metadata entries.
func New(sensors []SensorMetadata) *Catalog {
	m := make(map[string]SensorMetadata, len(sensors))
	for _, s := range sensors {
		m[s.ID] = s
	}
	return &Catalog{sensors: m}
}

// Lookup returns the metadata for a sensor ID.
func (c *Catalog) Lookup(id string) (SensorMetadata, bool) {
	s, ok := c.sensors[id]
	return s, ok
}

// All returns every sensor in the catalog. The returned slice is a copy.
func (c *Catalog) All() []SensorMetadata {
	out := make([]SensorMetadata, 0, len(c.sensors))
	for _, s := range c.sensors {
		out = append(out, s)
	}
	return out
}

// Len returns the number of sensors in the catalog.
func (c *Catalog) Len() int {
	return len(c.sensors)
}

// Default returns the built-in OBD-II parameter catalog.
func Default() *Catalog {
	return New(defaultSensors)
}

// defaultSensors is the standard OBD-II mode-01 parameter set with
// manufacturer-neutral operating ranges.
var defaultSensors = []SensorMetadata{
	{
		ID:               "rpm",
		DisplayName:      "Engine RPM",
		Unit:             "rpm",
		NormalRange:      &Range{Lo: 600, Hi: 6500},
		WarningRange:     &Range{Lo: 6500, Hi: 7000},
		CriticalRange:    &Range{Lo: 7000, Hi: 9000},
		Precision:        0,
		SmoothingEnabled: true,
		Category:         "engine",
	},
	{
		ID:               "speed",
		DisplayName:      "Vehicle Speed",
		Unit:             "km/h",
		NormalRange:      &Range{Lo: 0, Hi: 200},
		WarningRange:     &Range{Lo: 200, Hi: 250},
		CriticalRange:    &Range{Lo: 250, Hi: 400},
		Precision:        0,
		SmoothingEnabled: true,
		Category:         "drivetrain",
	},
	{
		ID:               "coolant_temp",
		DisplayName:      "Engine Coolant Temperature",
		Unit:             "°C",
		NormalRange:      &Range{Lo: 80, Hi: 105},
		WarningRange:     &Range{Lo: 105, Hi: 115},
		CriticalRange:    &Range{Lo: 115, Hi: 150},
		Precision:        1,
		SmoothingEnabled: true,
		Category:         "engine",
	},
	{
		ID:               "intake_temp",
		DisplayName:      "Intake Air Temperature",
		Unit:             "°C",
		NormalRange:      &Range{Lo: -10, Hi: 60},
		WarningRange:     &Range{Lo: 60, Hi: 80},
		CriticalRange:    &Range{Lo: 80, Hi: 120},
		Precision:        1,
		SmoothingEnabled: true,
		Category:         "intake",
	},
	{
		ID:               "throttle_pos",
		DisplayName:      "Throttle Position",
		Unit:             "%",
		NormalRange:      &Range{Lo: 0, Hi: 100},
		Precision:        1,
		SmoothingEnabled: true,
		Category:         "intake",
	},
	{
		ID:               "engine_load",
		DisplayName:      "Engine Load",
		Unit:             "%",
		NormalRange:      &Range{Lo: 0, Hi: 85},
		WarningRange:     &Range{Lo: 85, Hi: 95},
		CriticalRange:    &Range{Lo: 95, Hi: 100},
		Precision:        1,
		SmoothingEnabled: true,
		Category:         "engine",
	},
	{
		ID:               "short_fuel_trim",
		DisplayName:      "Short Term Fuel Trim",
		Unit:             "%",
		NormalRange:      &Range{Lo: -10, Hi: 10},
		WarningRange:     &Range{Lo: -25, Hi: 25},
		Precision:        2,
		SmoothingEnabled: false,
		Category:         "fuel",
	},
	{
		ID:               "long_fuel_trim",
		DisplayName:      "Long Term Fuel Trim",
		Unit:             "%",
		NormalRange:      &Range{Lo: -10, Hi: 10},
		WarningRange:     &Range{Lo: -25, Hi: 25},
		Precision:        2,
		SmoothingEnabled: false,
		Category:         "fuel",
	},
	{
		ID:               "intake_pressure",
		DisplayName:      "Intake Manifold Pressure",
		Unit:             "kPa",
		NormalRange:      &Range{Lo: 20, Hi: 100},
		WarningRange:     &Range{Lo: 100, Hi: 120},
		CriticalRange:    &Range{Lo: 120, Hi: 255},
		Precision:        0,
		SmoothingEnabled: true,
		Category:         "intake",
	},
	{
		ID:               "module_voltage",
		DisplayName:      "Control Module Voltage",
		Unit:             "V",
		NormalRange:      &Range{Lo: 12.0, Hi: 14.8},
		WarningRange:     &Range{Lo: 11.0, Hi: 12.0},
		CriticalRange:    &Range{Lo: 0, Hi: 11.0},
		Precision:        2,
		SmoothingEnabled: false,
		Category:         "electrical",
	},
	{
		ID:               "fuel_level",
		DisplayName:      "Fuel Level",
		Unit:             "%",
		NormalRange:      &Range{Lo: 10, Hi: 100},
		WarningRange:     &Range{Lo: 5, Hi: 10},
		CriticalRange:    &Range{Lo: 0, Hi: 5},
		Precision:        1,
		SmoothingEnabled: false,
		Category:         "fuel",
	},
}
