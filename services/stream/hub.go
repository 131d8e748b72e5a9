package stream

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stockwatch_backend/services/alerting"
)

// Hub configuration constants
const (
	MaxClients    = 100
	WriteTimeout  = 10 * time.Second
	PongTimeout   = 60 * time.Second
	PingInterval  = 30 * time.Second
	SendQueueSize = 16
)

// Event is one message broadcast to connected clients
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time string      `json:"time"`
}

// TriggerEvent describes a single committed alert transition
type TriggerEvent struct {
	AlertID   uint   `json:"alert_id"`
	UserID    uint   `json:"user_id"`
	Symbol    string `json:"symbol"`
	AlertType string `json:"alert_type"`
	Threshold string `json:"threshold"`
	Price     string `json:"price"`
}

// Client is one connected websocket consumer
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans alert trigger events and cycle summaries out to websocket
// clients. Delivery is best-effort: slow consumers are dropped, and the
// durable record of a trigger is the alert history table, not this stream.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	shutdown   chan struct{}
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewHub creates a hub; call Run in a goroutine before serving connections
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// Run owns the client set; it must be the only goroutine touching it
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if len(h.clients) >= MaxClients {
				client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server at capacity"))
				client.conn.Close()
				continue
			}
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case event := <-h.broadcast:
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal stream event", zap.Error(err))
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// slow consumer, drop it
					delete(h.clients, client)
					close(client.send)
				}
			}

		case <-h.shutdown:
			for client := range h.clients {
				close(client.send)
				client.conn.Close()
			}
			return
		}
	}
}

// Stop shuts the hub down and disconnects all clients
func (h *Hub) Stop() {
	close(h.shutdown)
}

// PublishCycle broadcasts the outcome of one evaluation cycle: one event per
// committed trigger followed by the cycle summary
func (h *Hub) PublishCycle(outcome alerting.CycleOutcome) {
	now := time.Now().Format(time.RFC3339)
	for _, t := range outcome.Triggered {
		h.broadcast <- Event{
			Type: "alert_triggered",
			Data: TriggerEvent{
				AlertID:   t.Alert.ID,
				UserID:    t.Alert.UserID,
				Symbol:    t.Alert.Symbol,
				AlertType: string(t.Alert.AlertType),
				Threshold: t.Alert.Threshold.String(),
				Price:     t.Price.String(),
			},
			Time: now,
		}
	}
	h.broadcast <- Event{
		Type: "cycle_summary",
		Data: outcome.Summary,
		Time: now,
	}
}

// ServeWS upgrades an HTTP request to a websocket subscription
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, SendQueueSize),
	}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}
