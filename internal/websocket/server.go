package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yegors/preflight/pkg/logger"
)

// Message types pushed to the browser
const (
	MessageTypeHello         = "hello"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeBriefingReady = "briefing_ready"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Message represents a WebSocket message
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Authenticator resolves the user of an upgrade request
type Authenticator interface {
	Authenticate(r *http.Request) (userID string, err error)
}

// AuthenticatorFunc adapts a function to Authenticator
type AuthenticatorFunc func(r *http.Request) (string, error)

func (f AuthenticatorFunc) Authenticate(r *http.Request) (string, error) { return f(r) }

// Client represents a WebSocket client
type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan *Message
	server *Server
	mu     sync.Mutex
	closed bool
}

type userMessage struct {
	userID  string
	message *Message
}

// Server is the hub that fans messages out to each user's connections
type Server struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	direct     chan userMessage
	upgrader   websocket.Upgrader
	auth       Authenticator
	logger     *logger.Logger
	mu         sync.RWMutex
	done       chan struct{}
}

// NewServer creates a new WebSocket server. Origins are checked against allowedOrigins, "*" allows all.
func NewServer(auth Authenticator, allowedOrigins []string, log *logger.Logger) *Server {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Server{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan userMessage, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin] || sameHost(r, origin)
			},
		},
		auth:   auth,
		logger: log.Named("web-socket"),
		done:   make(chan struct{}),
	}
}

func sameHost(r *http.Request, origin string) bool {
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// Run starts the hub loop and returns when the context is cancelled
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("Starting WebSocket server")
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for _, set := range s.clients {
				for client := range set {
					client.shutdown()
				}
			}
			s.clients = make(map[string]map[*Client]bool)
			s.mu.Unlock()
			s.logger.Info("WebSocket server stopped")
			return

		case client := <-s.register:
			s.mu.Lock()
			if s.clients[client.userID] == nil {
				s.clients[client.userID] = make(map[*Client]bool)
			}
			s.clients[client.userID][client] = true
			s.mu.Unlock()
			s.logger.Debug("Client registered",
				logger.String("user_id", client.userID),
				logger.Int("client_count", s.ClientCount()))

		case client := <-s.unregister:
			s.remove(client)
			s.logger.Debug("Client unregistered",
				logger.String("user_id", client.userID),
				logger.Int("client_count", s.ClientCount()))

		case um := <-s.direct:
			s.mu.RLock()
			var slow []*Client
			for client := range s.clients[um.userID] {
				if !client.SendMessage(um.message) {
					slow = append(slow, client)
				}
			}
			s.mu.RUnlock()
			for _, client := range slow {
				s.logger.Warn("Dropping slow WebSocket client", logger.String("user_id", client.userID))
				s.remove(client)
			}
		}
	}
}

func (s *Server) remove(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.clients[client.userID]
	if !set[client] {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(s.clients, client.userID)
	}
	client.shutdown()
}

// ClientCount returns the number of open connections
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, set := range s.clients {
		n += len(set)
	}
	return n
}

// HandleConnection upgrades an authenticated request to a WebSocket
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID, err := s.auth.Authenticate(r)
	if err != nil {
		s.logger.Debug("Rejected WebSocket connection",
			logger.String("remote_addr", r.RemoteAddr),
			logger.Error(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan *Message, sendBuffer),
		server: s,
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	client.SendMessage(&Message{Type: MessageTypeHello, Data: map[string]string{"user_id": userID}})

	go client.readPump()
	go client.writePump()
}

// SendToUser queues a message for every connection of the user
func (s *Server) SendToUser(userID, messageType string, data any) {
	select {
	case s.direct <- userMessage{userID: userID, message: &Message{Type: messageType, Data: data}}:
	case <-s.done:
	default:
		s.logger.Warn("WebSocket queue full, dropping message",
			logger.String("user_id", userID),
			logger.String("message_type", messageType))
	}
}

// readPump reads client messages until the connection fails; only pings are answered
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", logger.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.server.logger.Debug("Failed to parse WebSocket message", logger.Error(err))
			continue
		}
		if message.Type == MessageTypePing {
			c.SendMessage(&Message{Type: MessageTypePong})
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.server.logger.Debug("WebSocket write failed", logger.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues a message without blocking; false means the client is gone or too slow
func (c *Client) SendMessage(message *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
