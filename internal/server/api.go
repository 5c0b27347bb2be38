package server

import (
	"encoding/json"
	"net/http"

	"github.com/HerbHall/revsense/internal/alert"
	"github.com/HerbHall/revsense/internal/catalog"
	"github.com/HerbHall/revsense/internal/session"
)

// registerSessionRoutes mounts the session API under /api/v1.
func (s *Server) registerSessionRoutes() {
	s.mux.HandleFunc("GET /api/v1/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("GET /api/v1/statistics", s.handleStatistics)
	s.mux.HandleFunc("GET /api/v1/alerts", s.handleAlerts)
	s.mux.HandleFunc("GET /api/v1/export", s.handleExport)
	s.mux.HandleFunc("GET /api/v1/sensors", s.handleSensors)

	s.mux.HandleFunc("POST /api/v1/sensors/{id}/visibility", s.handleToggleVisibility)
	s.mux.HandleFunc("POST /api/v1/sensors/{id}/filter", s.handleSetFilter)
	s.mux.HandleFunc("POST /api/v1/sensors/{id}/threshold", s.handleSetThreshold)
	s.mux.HandleFunc("POST /api/v1/reconnect", s.handleReconnect)
	s.mux.HandleFunc("DELETE /api/v1/alerts", s.handleClearAlerts)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.sess.Snapshot())
}

func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.sess.Statistics())
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.sess.Alerts())
}

// handleExport serves the snapshot in the requested format. The format
// query parameter accepts json (default) and csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = session.FormatJSON
	}

	out, err := s.sess.ExportSnapshot(format)
	if err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	switch format {
	case session.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="snapshot.csv"`)
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	_, _ = w.Write(out)
}

// SensorResponse describes one catalog sensor.
type SensorResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Unit          string         `json:"unit"`
	Category      string         `json:"category"`
	NormalRange   *catalog.Range `json:"normal_range,omitempty"`
	WarningRange  *catalog.Range `json:"warning_range,omitempty"`
	CriticalRange *catalog.Range `json:"critical_range,omitempty"`
}

func (s *Server) handleSensors(w http.ResponseWriter, _ *http.Request) {
	sensors := s.cat.All()
	out := make([]SensorResponse, 0, len(sensors))
	for _, m := range sensors {
		out = append(out, SensorResponse{
			ID:            m.ID,
			Name:          m.DisplayName,
			Unit:          m.Unit,
			Category:      m.Category,
			NormalRange:   m.NormalRange,
			WarningRange:  m.WarningRange,
			CriticalRange: m.CriticalRange,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleToggleVisibility(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.cat.Lookup(id); !ok {
		NotFound(w, "unknown sensor "+id, r.URL.Path)
		return
	}

	visible, err := s.sess.ToggleSensorVisibility(r.Context(), id)
	if err != nil {
		InternalError(w, err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, map[string]any{"sensor_id": id, "visible": visible})
}

// FilterRequest is the body for POST /sensors/{id}/filter.
type FilterRequest struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.cat.Lookup(id); !ok {
		NotFound(w, "unknown sensor "+id, r.URL.Path)
		return
	}

	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	if err := s.sess.SetSensorFilter(r.Context(), id, req.Min, req.Max); err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, map[string]any{"sensor_id": id, "min": req.Min, "max": req.Max})
}

// ThresholdRequest is the body for POST /sensors/{id}/threshold. Omitted
// bands fall back to the catalog defaults.
type ThresholdRequest struct {
	Warning  *catalog.Range `json:"warning,omitempty"`
	Critical *catalog.Range `json:"critical,omitempty"`
}

func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.cat.Lookup(id); !ok {
		NotFound(w, "unknown sensor "+id, r.URL.Path)
		return
	}

	var req ThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	th := alert.Threshold{Warning: req.Warning, Critical: req.Critical}
	if err := s.sess.SetThreshold(r.Context(), id, th); err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, map[string]any{"sensor_id": id})
}

func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.Reconnect(); err != nil {
		InternalError(w, err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, map[string]any{
		"status":    s.sess.ConnectionStatus(),
		"transport": s.sess.ActiveTransport(),
	})
}

func (s *Server) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	s.sess.ClearAlerts(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
