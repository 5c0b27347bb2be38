package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/HerbHall/revsense/pkg/telemetry"
)

// Wire event types shared by the push-stream and long-poll endpoints.
const (
	eventData      = "data"
	eventConnected = "connected"
	eventTimeout   = "timeout"
)

// wireReading is the on-the-wire reading shape. Timestamps travel as
// Unix milliseconds.
type wireReading struct {
	SensorID  string  `json:"sensorId"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
}

func (w wireReading) toReading() telemetry.Reading {
	return telemetry.Reading{
		SensorID:  w.SensorID,
		Value:     w.Value,
		Timestamp: time.UnixMilli(w.Timestamp),
	}
}

// pushEvent is one event on the push-stream connection.
type pushEvent struct {
	Type string        `json:"type"`
	Data []wireReading `json:"data,omitempty"`
}

// pollResponse is the polling endpoint's body.
type pollResponse struct {
	Data []wireReading `json:"data"`
}

// longPollResponse is the long-poll endpoint's body.
type longPollResponse struct {
	Type string        `json:"type"`
	Data []wireReading `json:"data,omitempty"`
}

// getJSON issues a GET and decodes the JSON body into out. Non-2xx
// responses are errors.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request %q: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// deliver converts wire readings, advances the cursor and invokes the
// reading callback for each. Returns the updated cursor.
func deliver(events Events, transportName string, readings []wireReading, cursor int64) int64 {
	for _, w := range readings {
		if w.Timestamp > cursor {
			cursor = w.Timestamp
		}
		events.reading(w.toReading())
		readingsDelivered.WithLabelValues(transportName).Inc()
	}
	return cursor
}
