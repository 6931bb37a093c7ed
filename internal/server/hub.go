package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"evacsim/internal/logging"
	"evacsim/internal/metrics"
	"evacsim/internal/sim"
	"evacsim/internal/wire"
)

const writeWait = 2 * time.Second

type streamClient struct {
	id   string
	conn *websocket.Conn
}

// hub fans snapshot frames out to websocket clients and applies their
// control updates to the simulation.
type hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]*streamClient
	closed   bool
	upgrader websocket.Upgrader

	simulation *sim.Simulation
	metrics    *metrics.Collector
	log        logging.Logger
}

func newHub(simulation *sim.Simulation, m *metrics.Collector, log logging.Logger) *hub {
	return &hub{
		clients: make(map[*websocket.Conn]*streamClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		simulation: simulation,
		metrics:    m,
		log:        log,
	}
}

// add registers conn. It returns false once the hub has been closed.
func (h *hub) add(conn *websocket.Conn) (*streamClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &streamClient{id: uuid.NewString(), conn: conn}
	h.clients[conn] = c
	h.metrics.ClientConnected()
	return c, true
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(conn)
}

func (h *hub) dropLocked(conn *websocket.Conn) {
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	conn.Close()
	h.metrics.ClientDisconnected()
}

// closeAll sends a going-away close frame to every client and drops it.
// Connections that arrive afterwards are refused.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for conn, c := range h.clients {
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
			h.log.Debug(context.Background(), "close frame not delivered",
				logging.String("client_id", c.id), logging.Err(err))
		}
		h.dropLocked(conn)
	}
}

// count returns the number of connected clients.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast sends snap to every client. Clients that fail a write are
// dropped.
func (h *hub) broadcast(snap sim.Snapshot) {
	payload, err := wire.MarshalSnapshot(snap)
	if err != nil {
		h.log.Error(context.Background(), "failed to encode snapshot", logging.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, c := range h.clients {
		if err := h.writeLocked(conn, payload); err != nil {
			h.log.Warn(context.Background(), "failed to write to client",
				logging.String("client_id", c.id), logging.Err(err))
			h.metrics.FrameDropped()
			h.dropLocked(conn)
		}
	}
}

func (h *hub) send(conn *websocket.Conn, snap sim.Snapshot) error {
	payload, err := wire.MarshalSnapshot(snap)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writeLocked(conn, payload)
}

func (h *hub) writeLocked(conn *websocket.Conn, payload []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, payload)
}

func (h *hub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn(ctx, "websocket upgrade failed", logging.Err(err))
			return
		}
		client, ok := h.add(conn)
		if !ok {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}
		defer h.remove(conn)

		log := h.log.With(logging.String("client_id", client.id))
		log.Info(ctx, "stream client connected", logging.String("remote", r.RemoteAddr))

		// Send the current state immediately.
		if err := h.send(conn, h.simulation.Snapshot()); err != nil {
			log.Warn(ctx, "initial snapshot write failed", logging.Err(err))
			return
		}

		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				log.Info(ctx, "stream client disconnected", logging.Err(err))
				return
			}
			if messageType != websocket.BinaryMessage {
				log.Debug(ctx, "ignoring non-binary frame")
				continue
			}

			update, err := wire.UnmarshalControl(data)
			if err != nil {
				log.Warn(ctx, "unable to decode control update", logging.Err(err))
				continue
			}

			snap, err := h.simulation.ApplyControlSettings(update)
			if err != nil {
				log.Error(ctx, "control update failed", logging.Err(err))
			}
			if update.Reset {
				log.Info(ctx, "simulation reset by client", logging.String("run_id", snap.RunID))
			}
			h.metrics.SetCounts(snap.Counts)
			h.broadcast(snap)
		}
	}
}
