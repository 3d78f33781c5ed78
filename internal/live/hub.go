package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	model "auction-engine/internal/models"
	"auction-engine/utils"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	sendBufferSize = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The engine trusts the session layer in front of it for origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one websocket subscriber on a single auction.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans auction snapshots out to websocket subscribers. A client that
// cannot keep up is dropped rather than ever blocking the engine.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*client]struct{} // auctionID -> subscribers
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*client]struct{}),
	}
}

// AuctionUpdated pushes a snapshot to every subscriber of the auction.
// Implements the engine's StateBroadcaster.
func (h *Hub) AuctionUpdated(a model.Auction) {
	h.mu.RLock()
	clients := h.subs[a.AuctionID]
	if len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	payload, err := json.Marshal(a)
	if err != nil {
		h.mu.RUnlock()
		utils.Error("live: failed to marshal snapshot", map[string]any{
			"auction_id": a.AuctionID,
			"error":      err.Error(),
		})
		return
	}

	var slow []*client
	for c := range clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(a.AuctionID, c)
	}
}

// Subscribe upgrades the request to a websocket and streams snapshots of the
// auction until the client disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, auctionID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	if h.subs[auctionID] == nil {
		h.subs[auctionID] = make(map[*client]struct{})
	}
	h.subs[auctionID][c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(auctionID, c)
	go h.readLoop(auctionID, c)
	return nil
}

// writeLoop drains the client's send channel onto the connection.
func (h *Hub) writeLoop(auctionID string, c *client) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(auctionID, c)
			return
		}
	}
	c.conn.Close()
}

// readLoop discards client frames and tears the client down on disconnect.
func (h *Hub) readLoop(auctionID string, c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(auctionID, c)
			return
		}
	}
}

// drop removes a client and closes its send channel exactly once.
func (h *Hub) drop(auctionID string, c *client) {
	h.mu.Lock()
	clients, ok := h.subs[auctionID]
	if ok {
		if _, member := clients[c]; member {
			delete(clients, c)
			close(c.send)
			c.conn.Close()
		}
		if len(clients) == 0 {
			delete(h.subs, auctionID)
		}
	}
	h.mu.Unlock()
}
