package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/HerbHall/revsense/internal/alert"
	"github.com/HerbHall/revsense/internal/event"
	"github.com/HerbHall/revsense/internal/session"
	"github.com/HerbHall/revsense/pkg/telemetry"
)

// Handler exposes the live stream endpoint and forwards bus events to
// connected clients.
type Handler struct {
	hub    *Hub
	sess   *session.Session
	bus    *event.Bus
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to session
// events.
func NewHandler(sess *session.Session, bus *event.Bus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		sess:   sess,
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/stream", h.handleStream)
}

// handleStream upgrades the connection to WebSocket and streams session
// events until the client disconnects.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		remote: r.RemoteAddr,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Register(client)

	// Run read and write pumps. When either exits, clean up.
	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until client disconnects.
	client.readPump(ctx)

	// Client disconnected -- stop write pump and unregister.
	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents forwards session bus events to all connected
// WebSocket clients. Each completed tick yields a full snapshot so a
// consumer can render current state without polling.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.bus.Subscribe(session.TopicTick, func(_ context.Context, e event.Event) {
		if h.sess == nil || h.hub.ClientCount() == 0 {
			return
		}
		snap := h.sess.Snapshot()
		h.hub.Broadcast(Message{
			Type:      MessageSnapshot,
			SessionID: snap.SessionID,
			Timestamp: e.Timestamp,
			Data:      snap,
		})
	})

	h.bus.Subscribe(alert.TopicAlertTriggered, func(_ context.Context, e event.Event) {
		a, ok := e.Payload.(telemetry.Alert)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageAlert,
			Timestamp: e.Timestamp,
			Data:      AlertData{Alert: &a},
		})
	})

	h.bus.Subscribe(alert.TopicAlertsCleared, func(_ context.Context, e event.Event) {
		h.hub.Broadcast(Message{
			Type:      MessageAlertsCleared,
			Timestamp: e.Timestamp,
		})
	})

	h.bus.Subscribe(session.TopicTransportStatus, func(_ context.Context, e event.Event) {
		st, ok := e.Payload.(telemetry.TransportStatus)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageStatus,
			Timestamp: e.Timestamp,
			Data:      StatusData{Status: st},
		})
	})

	h.logger.Info("subscribed to session events for WebSocket broadcasting")
}
