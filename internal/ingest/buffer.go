// Package ingest provides the buffer that decouples transport delivery
// from the analytics tick. Transports append readings as they arrive;
// the analytics loop drains the buffer exactly once per tick.
package ingest

import (
	"sync"

	"github.com/HerbHall/revsense/pkg/telemetry"
)

// Buffer accumulates readings between analytics ticks. Append and
// Drain may be called concurrently; the swap in Drain guarantees each
// reading is consumed exactly once.
type Buffer struct {
	mu       sync.Mutex
	readings []telemetry.Reading
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds readings to the buffer. It never blocks on the consumer.
func (b *Buffer) Append(readings ...telemetry.Reading) {
	if len(readings) == 0 {
		return
	}
	b.mu.Lock()
	b.readings = append(b.readings, readings...)
	b.mu.Unlock()
}

// Drain atomically takes ownership of all buffered readings and clears
// the buffer. The returned slice is owned by the caller.
func (b *Buffer) Drain() []telemetry.Reading {
	b.mu.Lock()
	drained := b.readings
	b.readings = nil
	b.mu.Unlock()
	return drained
}

// Len returns the number of currently buffered readings.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.readings)
}
