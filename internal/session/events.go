package session

// Event bus topics published by a running session.
const (
	// TopicTick fires after every completed analytics tick. Payload is
	// a TickSummary.
	TopicTick = "session.tick"

	// TopicTransportStatus fires whenever the connection status
	// changes. Payload is a telemetry.TransportStatus.
	TopicTransportStatus = "transport.status"
)

// TickSummary describes one completed analytics tick.
type TickSummary struct {
	SessionID  string  `json:"session_id"`
	Drained    int     `json:"drained"`
	Sensors    int     `json:"sensors"`
	Alerts     int     `json:"alerts"`
	UpdateRate float64 `json:"update_rate"`
}
