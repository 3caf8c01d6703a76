package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/bus"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = eventsPongWait * 9 / 10
	eventsBuffer     = 16
)

// Event is one invalidation pushed to a browser.
type Event struct {
	Type   string    `json:"type"`
	Source string    `json:"source"`
	Origin string    `json:"origin,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

// EventsHandler streams invalidation signals over a WebSocket so pages can
// refetch. It sends no catalog data.
type EventsHandler struct {
	bus      *bus.Bus
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewEventsHandler creates a new WebSocket events handler.
func NewEventsHandler(b *bus.Bus, log *zap.Logger) *EventsHandler {
	return &EventsHandler{
		bus: b,
		log: log.Named("events"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /api/v1/events requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Signals that arrive while the client is slow are coalesced: one
	// pending event already tells it to refetch.
	events := make(chan bus.Signal, eventsBuffer)
	unsubscribe := h.bus.Subscribe(func(sig bus.Signal) {
		select {
		case events <- sig:
		default:
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ticker := time.NewTicker(eventsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case sig := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteJSON(Event{Type: "catalog_changed", Source: sig.Source, Origin: sig.Origin, SentAt: time.Now().UTC()}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func (h *EventsHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
