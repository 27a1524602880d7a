package devserver

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// hub tracks connected reload clients behind one mutex. Each connection gets
// a small send buffer; a client that cannot keep up misses payloads rather
// than stalling the watch loop.
type hub struct {
	mu     sync.Mutex
	closed bool
	conns  map[*websocket.Conn]chan payload
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]chan payload)}
}

// add registers a connection and returns its send channel, or nil when the
// hub has already shut down.
func (h *hub) add(conn *websocket.Conn) chan payload {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	ch := make(chan payload, 4)
	h.conns[conn] = ch
	return ch
}

// remove drops a connection, closing both its channel and the socket. Safe
// to call from the reader and writer sides at once; only the first wins.
func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		close(ch)
		conn.Close()
	}
}

// broadcast fans a payload out to every connected client without blocking.
func (h *hub) broadcast(p payload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.conns {
		select {
		case ch <- p:
		default:
		}
	}
}

// closeAll shuts every connection down and refuses future adds.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, ch := range h.conns {
		delete(h.conns, conn)
		close(ch)
		conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEvents upgrades the request and pumps broadcast payloads to the
// client until either side goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ch := s.hub.add(conn)
	if ch == nil {
		conn.Close()
		return
	}

	// Clients send nothing meaningful; the read loop only notices
	// disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.remove(conn)
				return
			}
		}
	}()

	for p := range ch {
		if err := conn.WriteJSON(p); err != nil {
			s.hub.remove(conn)
			return
		}
	}
}
