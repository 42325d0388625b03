package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"insightmarket/payments-service/internal/order"

	gw "github.com/gorilla/websocket"
)

type Conn = gw.Conn

var upgrader = gw.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// OrderFetcher loads an order for the ownership check on connect.
type OrderFetcher interface {
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
}

type Handler struct {
	hub    *Hub
	orders OrderFetcher
}

func NewHandler(hub *Hub, orders OrderFetcher) *Handler {
	return &Handler{hub: hub, orders: orders}
}

// ServeWS subscribes the caller to one order's status transitions. Only the
// order's buyer may subscribe; the current status is pushed immediately so
// the client never misses a transition that happened before connecting.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	orderIDStr := r.PathValue("orderID")
	orderID, err := strconv.ParseInt(orderIDStr, 10, 64)
	if err != nil {
		_ = conn.Close()
		return
	}

	buyerID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil {
		_ = conn.Close()
		return
	}

	o, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil || o.BuyerID != buyerID {
		_ = conn.Close()
		return
	}

	client := &Client{
		hub:     h.hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		orderID: orderIDStr,
	}

	client.hub.register <- client
	go client.writePump()
	go client.readPump()

	upd := StatusUpdate{OrderID: orderIDStr, Status: string(o.Status)}
	if b, err := json.Marshal(upd); err == nil {
		select {
		case client.send <- b:
		case <-time.After(1 * time.Second):
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(gw.TextMessage, msg); err != nil {
			return
		}
	}
}
