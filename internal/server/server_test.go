package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/revsense/internal/catalog"
	"github.com/HerbHall/revsense/internal/event"
	"github.com/HerbHall/revsense/internal/session"
	"github.com/HerbHall/revsense/pkg/telemetry"
)

func newTestServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()

	cfg := session.DefaultConfig()
	cfg.SessionID = "s1"
	cfg.Transport.Method = telemetry.MethodPoll
	cfg.Transport.BaseURL = "http://unused.invalid"

	cat := catalog.Default()
	sess, err := session.New(cfg, cat, event.NewBus(zap.NewNop()), nil, zap.NewNop())
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}

	srvCfg := DefaultConfig()
	srvCfg.RateLimitRPS = 1000
	srvCfg.RateLimitBurst = 1000
	return New(srvCfg, sess, cat, zap.NewNop(), ready)
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(t, s, "GET", "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "alive") {
		t.Errorf("body = %q, want alive", w.Body.String())
	}
}

func TestReadyz_NotReady(t *testing.T) {
	s := newTestServer(t, func(context.Context) error {
		return errors.New("transport down")
	})

	w := doRequest(t, s, "GET", "/readyz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestHealth_ReportsService(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(t, s, "GET", "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Service != "revsense" {
		t.Errorf("Service = %q, want revsense", resp.Service)
	}
	if resp.Sensors == 0 {
		t.Error("Sensors = 0, want catalog size")
	}
}

func TestSnapshot_ReturnsValidJSON(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(t, s, "GET", "/api/v1/snapshot", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", snap.SessionID)
	}
}

func TestSensors_ListsCatalog(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(t, s, "GET", "/api/v1/sensors", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var sensors []SensorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sensors); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(sensors) == 0 {
		t.Fatal("no sensors returned")
	}
	found := false
	for _, sr := range sensors {
		if sr.ID == "rpm" {
			found = true
		}
	}
	if !found {
		t.Error("rpm missing from sensor list")
	}
}

func TestExport_CSVWithNoData(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(t, s, "GET", "/api/v1/export?format=csv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if strings.TrimSpace(w.Body.String()) != "sensor_id,value,timestamp" {
		t.Errorf("body = %q, want header row", w.Body.String())
	}
}

func TestExport_RejectsUnknownFormat(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(t, s, "GET", "/api/v1/export?format=xml", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestToggleVisibility(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(t, s, "POST", "/api/v1/sensors/rpm/visibility", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["visible"] != false {
		t.Errorf("visible = %v, want false after first toggle", resp["visible"])
	}
}

func TestToggleVisibility_UnknownSensor(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(t, s, "POST", "/api/v1/sensors/flux_capacitor/visibility", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSetFilter(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid range", `{"min":500,"max":7000}`, http.StatusOK},
		{"inverted range", `{"min":7000,"max":500}`, http.StatusBadRequest},
		{"malformed body", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, "POST", "/api/v1/sensors/rpm/filter", []byte(tt.body))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestSetThreshold(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid bands", `{"warning":{"lo":100,"hi":110},"critical":{"lo":110,"hi":150}}`, http.StatusOK},
		{"inverted band", `{"warning":{"lo":110,"hi":100}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, "POST", "/api/v1/sensors/coolant_temp/threshold", []byte(tt.body))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestClearAlerts(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(t, s, "DELETE", "/api/v1/alerts", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	w = doRequest(t, s, "GET", "/api/v1/alerts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRequestIDHeaderOnAPIResponses(t *testing.T) {
	s := newTestServer(t, nil)

	w := doRequest(t, s, "GET", "/api/v1/snapshot", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if w.Header().Get("X-RevSense-Version") == "" {
		t.Error("expected X-RevSense-Version header")
	}
}

func TestGracefulShutdown(t *testing.T) {
	s := newTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
