package ws

import (
	"time"

	"github.com/HerbHall/revsense/pkg/telemetry"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageSnapshot      MessageType = "snapshot"
	MessageAlert         MessageType = "alert.triggered"
	MessageAlertsCleared MessageType = "alert.cleared"
	MessageStatus        MessageType = "transport.status"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// AlertData is the payload for alert.triggered messages.
type AlertData struct {
	Alert *telemetry.Alert `json:"alert"`
}

// StatusData is the payload for transport.status messages.
type StatusData struct {
	Status telemetry.TransportStatus `json:"status"`
}
