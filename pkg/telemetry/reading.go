// Package telemetry provides the shared data types for the RevSense
// real-time vehicle telemetry pipeline.
package telemetry

import "time"

// Reading is one timestamped scalar value for one sensor. Readings are
// immutable once created; ownership passes from the transport to the
// ingest buffer and then to the analytics engine.
type Reading struct {
	SensorID  string    `json:"sensor_id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// TransportStatus represents the connection state of a transport.
type TransportStatus string

const (
	StatusDisconnected TransportStatus = "disconnected"
	StatusConnecting   TransportStatus = "connecting"
	StatusConnected    TransportStatus = "connected"
	StatusError        TransportStatus = "error"
)

// TransportMethod selects a delivery mechanism for a session's stream.
type TransportMethod string

const (
	MethodPush     TransportMethod = "push"
	MethodPoll     TransportMethod = "poll"
	MethodLongPoll TransportMethod = "longpoll"
)
