package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tahcohcat/starpath-web/internal/logger"
	"github.com/tahcohcat/starpath-web/internal/models"
)

const sendBuffer = 256

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// origins are enforced by the cors layer in front of the router
		return true
	},
}

// Event is pushed to every open socket of a student.
type Event struct {
	Type   string                `json:"type"`
	Record models.ActivityRecord `json:"record"`
}

type message struct {
	studentID string
	payload   []byte
}

type countRequest struct {
	studentID string
	reply     chan int
}

// Hub fans achievement events out to the sockets of each student.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	counts     chan countRequest
	logger     *logger.Log
}

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	studentID string
	send      chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan message, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countRequest),
		logger:     logger.New().With("component", "hub"),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.studentID] == nil {
				h.clients[client.studentID] = make(map[*Client]bool)
			}
			h.clients[client.studentID][client] = true
			h.logger.With("student_id", client.studentID).Debug("client connected")

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			for client := range h.clients[msg.studentID] {
				select {
				case client.send <- msg.payload:
				default:
					h.remove(client)
				}
			}

		case req := <-h.counts:
			req.reply <- len(h.clients[req.studentID])
		}
	}
}

func (h *Hub) remove(client *Client) {
	set := h.clients[client.studentID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.studentID)
	}
	h.logger.With("student_id", client.studentID).Debug("client disconnected")
}

// Connected reports how many sockets the student has open. Run must be running.
func (h *Hub) Connected(studentID string) int {
	reply := make(chan int, 1)
	h.counts <- countRequest{studentID: studentID, reply: reply}
	return <-reply
}

// AchievementEarned queues an event for the student's sockets. It never
// blocks the caller; a full queue drops the event.
func (h *Hub) AchievementEarned(studentID string, record models.ActivityRecord) {
	payload, err := json.Marshal(Event{Type: "achievement_earned", Record: record})
	if err != nil {
		h.logger.WithError(err).Error("failed to encode achievement event")
		return
	}
	select {
	case h.broadcast <- message{studentID: studentID, payload: payload}:
	default:
		h.logger.With("student_id", studentID).Warn("hub queue full, dropping achievement event")
	}
}

// Handler upgrades the request for the student resolved from it. Requests
// without a signed-in student get a 401.
func (h *Hub) Handler(resolve func(r *http.Request) (string, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID, ok := resolve(r)
		if !ok {
			http.Error(w, "sign in required", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.WithError(err).Warn("websocket upgrade failed")
			return
		}

		client := &Client{hub: h, conn: conn, studentID: studentID, send: make(chan []byte, sendBuffer)}
		h.register <- client

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Warn("websocket read error")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.logger.WithError(err).Warn("websocket write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
