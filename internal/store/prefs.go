package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HerbHall/revsense/internal/alert"
	"github.com/HerbHall/revsense/internal/catalog"
)

// migrations holds the preference schema. Versions are append-only.
var migrations = []Migration{
	{
		Version:     1,
		Description: "custom alert thresholds",
		SQL: `
			CREATE TABLE IF NOT EXISTS thresholds (
				sensor_id TEXT PRIMARY KEY,
				warn_lo   REAL,
				warn_hi   REAL,
				crit_lo   REAL,
				crit_hi   REAL
			)
		`,
	},
	{
		Version:     2,
		Description: "per-sensor display preferences",
		SQL: `
			CREATE TABLE IF NOT EXISTS sensor_prefs (
				sensor_id  TEXT    PRIMARY KEY,
				visible    INTEGER NOT NULL DEFAULT 1,
				filter_min REAL,
				filter_max REAL
			)
		`,
	},
}

// SensorPref is a persisted per-sensor display preference.
type SensorPref struct {
	SensorID  string
	Visible   bool
	FilterMin *float64
	FilterMax *float64
}

// Prefs persists user preferences for a monitoring session.
type Prefs struct {
	store *Store
}

// NewPrefs applies the preference schema and returns the preference
// store.
func NewPrefs(ctx context.Context, s *Store) (*Prefs, error) {
	if err := s.Migrate(ctx, migrations); err != nil {
		return nil, fmt.Errorf("migrate prefs schema: %w", err)
	}
	return &Prefs{store: s}, nil
}

// SaveThreshold upserts a custom alert threshold for a sensor. Nil
// ranges clear the corresponding band back to the catalog default.
func (p *Prefs) SaveThreshold(ctx context.Context, sensorID string, th alert.Threshold) error {
	warnLo, warnHi := rangeCols(th.Warning)
	critLo, critHi := rangeCols(th.Critical)
	_, err := p.store.db.ExecContext(ctx, `
		INSERT INTO thresholds (sensor_id, warn_lo, warn_hi, crit_lo, crit_hi)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sensor_id) DO UPDATE SET
			warn_lo = excluded.warn_lo,
			warn_hi = excluded.warn_hi,
			crit_lo = excluded.crit_lo,
			crit_hi = excluded.crit_hi
	`, sensorID, warnLo, warnHi, critLo, critHi)
	if err != nil {
		return fmt.Errorf("save threshold %q: %w", sensorID, err)
	}
	return nil
}

// DeleteThreshold removes the custom threshold for a sensor, restoring
// catalog defaults.
func (p *Prefs) DeleteThreshold(ctx context.Context, sensorID string) error {
	_, err := p.store.db.ExecContext(ctx,
		"DELETE FROM thresholds WHERE sensor_id = ?", sensorID)
	if err != nil {
		return fmt.Errorf("delete threshold %q: %w", sensorID, err)
	}
	return nil
}

// Thresholds loads all persisted custom thresholds keyed by sensor ID.
func (p *Prefs) Thresholds(ctx context.Context) (map[string]alert.Threshold, error) {
	rows, err := p.store.db.QueryContext(ctx,
		"SELECT sensor_id, warn_lo, warn_hi, crit_lo, crit_hi FROM thresholds")
	if err != nil {
		return nil, fmt.Errorf("query thresholds: %w", err)
	}
	defer rows.Close()

	out := make(map[string]alert.Threshold)
	for rows.Next() {
		var (
			id                             string
			warnLo, warnHi, critLo, critHi sql.NullFloat64
		)
		if err := rows.Scan(&id, &warnLo, &warnHi, &critLo, &critHi); err != nil {
			return nil, fmt.Errorf("scan threshold: %w", err)
		}
		out[id] = alert.Threshold{
			Warning:  colsRange(warnLo, warnHi),
			Critical: colsRange(critLo, critHi),
		}
	}
	return out, rows.Err()
}

// SavePref upserts a sensor display preference.
func (p *Prefs) SavePref(ctx context.Context, pref SensorPref) error {
	_, err := p.store.db.ExecContext(ctx, `
		INSERT INTO sensor_prefs (sensor_id, visible, filter_min, filter_max)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sensor_id) DO UPDATE SET
			visible    = excluded.visible,
			filter_min = excluded.filter_min,
			filter_max = excluded.filter_max
	`, pref.SensorID, pref.Visible, nullFloat(pref.FilterMin), nullFloat(pref.FilterMax))
	if err != nil {
		return fmt.Errorf("save pref %q: %w", pref.SensorID, err)
	}
	return nil
}

// Pref loads the display preference for one sensor. Sensors with no
// stored row default to visible with no filter.
func (p *Prefs) Pref(ctx context.Context, sensorID string) (SensorPref, error) {
	pref := SensorPref{SensorID: sensorID, Visible: true}
	var (
		visible  int
		min, max sql.NullFloat64
	)
	err := p.store.db.QueryRowContext(ctx,
		"SELECT visible, filter_min, filter_max FROM sensor_prefs WHERE sensor_id = ?",
		sensorID,
	).Scan(&visible, &min, &max)
	if err == sql.ErrNoRows {
		return pref, nil
	}
	if err != nil {
		return pref, fmt.Errorf("load pref %q: %w", sensorID, err)
	}
	pref.Visible = visible != 0
	if min.Valid {
		v := min.Float64
		pref.FilterMin = &v
	}
	if max.Valid {
		v := max.Float64
		pref.FilterMax = &v
	}
	return pref, nil
}

// Prefs loads all stored sensor display preferences keyed by sensor ID.
func (p *Prefs) Prefs(ctx context.Context) (map[string]SensorPref, error) {
	rows, err := p.store.db.QueryContext(ctx,
		"SELECT sensor_id, visible, filter_min, filter_max FROM sensor_prefs")
	if err != nil {
		return nil, fmt.Errorf("query prefs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]SensorPref)
	for rows.Next() {
		var (
			pref     SensorPref
			visible  int
			min, max sql.NullFloat64
		)
		if err := rows.Scan(&pref.SensorID, &visible, &min, &max); err != nil {
			return nil, fmt.Errorf("scan pref: %w", err)
		}
		pref.Visible = visible != 0
		if min.Valid {
			v := min.Float64
			pref.FilterMin = &v
		}
		if max.Valid {
			v := max.Float64
			pref.FilterMax = &v
		}
		out[pref.SensorID] = pref
	}
	return out, rows.Err()
}

func rangeCols(r *catalog.Range) (lo, hi sql.NullFloat64) {
	if r == nil {
		return
	}
	return sql.NullFloat64{Float64: r.Lo, Valid: true},
		sql.NullFloat64{Float64: r.Hi, Valid: true}
}

func colsRange(lo, hi sql.NullFloat64) *catalog.Range {
	if !lo.Valid || !hi.Valid {
		return nil
	}
	return &catalog.Range{Lo: lo.Float64, Hi: hi.Float64}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
