package shell

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/app/notification"
	"github.com/osa030/19screen/internal/app/session"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	sendBufferSize = 256
)

var errConnectionClosed = errors.New("connection closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Pages may be opened through any address of the player
	CheckOrigin: func(r *http.Request) bool { return true },
}

// connection is a middleman between the websocket connection and the session.
type connection struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	hub  *hub

	mu     sync.Mutex
	closed bool
}

// Send implements notification.Stream.
// A page that cannot keep up is disconnected; it reconnects and receives
// the current state again.
func (c *connection) Send(msg *notification.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.closeLocked()
		return errors.New("send buffer full")
	}
}

func (c *connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *connection) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// cleanup handles connection closure and unsubscription.
func (c *connection) cleanup() {
	c.hub.ctrl.Unsubscribe(c.id)
	c.hub.remove(c)
	c.close()

	if err := c.ws.Close(); err != nil {
		zlog.Debug().Err(err).Msg("shell: error closing websocket connection")
	}
}

func (c *connection) readPump() {
	defer c.cleanup()

	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		zlog.Debug().Err(err).Msg("shell: failed to set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zlog.Warn().Err(err).Msgf("shell: websocket read error: subscription=%s", c.id)
			}
			return
		}

		var msg session.PageMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			zlog.Warn().Err(err).Msg("shell: invalid page message")
			continue
		}
		c.hub.ctrl.HandlePageMessage(msg)
	}
}

func (c *connection) write(mt int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(mt, payload)
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				zlog.Debug().Err(err).Msgf("shell: failed to write message: subscription=%s", c.id)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte{}); err != nil {
				zlog.Debug().Err(err).Msgf("shell: failed to write ping: subscription=%s", c.id)
				return
			}
		}
	}
}

// hub keeps track of the connected pages.
type hub struct {
	ctrl Controller

	mu    sync.Mutex
	conns map[*connection]struct{}
}

func newHub(ctrl Controller) *hub {
	return &hub{
		ctrl:  ctrl,
		conns: make(map[*connection]struct{}),
	}
}

func (h *hub) add(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *hub) remove(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// closeAll disconnects every page. Hijacked connections are not closed by
// http.Server.Shutdown.
func (h *hub) closeAll() {
	h.mu.Lock()
	conns := make([]*connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// ServeWs handles websocket requests from kiosk pages.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Err(err).Msg("shell: websocket upgrade failed")
		return
	}

	c := &connection{
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		hub:  h.hub,
	}
	h.hub.add(c)

	go c.writePump()
	c.id = h.ctrl.Subscribe(c)
	zlog.Info().Msgf("shell: page connected: subscription=%s, remote=%s", c.id, r.RemoteAddr)

	c.readPump()
	zlog.Info().Msgf("shell: page disconnected: subscription=%s", c.id)
}
