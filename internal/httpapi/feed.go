package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"insider-pipeline/internal/notify"
)

// FeedConfig configures the live feed.
type FeedConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// ReadTimeout is how long a client may stay silent, pongs included.
	ReadTimeout time.Duration
	// BufferSize is the per-client queue; slow clients beyond it are dropped.
	BufferSize int
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  60 * time.Second,
		BufferSize:   32,
	}
}

// FeedEvent is the JSON frame pushed to clients.
type FeedEvent struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Record  any    `json:"record"`
}

// Feed broadcasts new records to websocket clients. It is also a notify.Channel.
type Feed struct {
	config   FeedConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
	closed  atomic.Bool
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewFeed creates a feed. A nil config uses DefaultFeedConfig.
func NewFeed(config *FeedConfig, logger *zap.Logger) *Feed {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger.Named("feed"),
		clients: make(map[*feedClient]struct{}),
	}
}

func (f *Feed) Name() string { return "feed" }

// Send queues msg for every connected client. Clients whose queue is full
// are disconnected rather than blocking the sender.
func (f *Feed) Send(_ context.Context, msg notify.Message) error {
	data, err := json.Marshal(FeedEvent{Type: "insider", Subject: msg.Subject, Record: msg.Record})
	if err != nil {
		return err
	}

	f.mu.RLock()
	var slow []*feedClient
	for c := range f.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	f.mu.RUnlock()

	for _, c := range slow {
		f.logger.Warn("dropping slow feed client", zap.String("remote", c.conn.RemoteAddr().String()))
		f.remove(c)
	}
	return nil
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Handle upgrades the request and streams events until the client leaves.
func (f *Feed) Handle(c *gin.Context) {
	if f.closed.Load() {
		Error(c, http.StatusServiceUnavailable, "feed closed", nil)
		return
	}
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{conn: conn, send: make(chan []byte, f.config.BufferSize)}
	f.mu.Lock()
	f.clients[client] = struct{}{}
	f.mu.Unlock()

	go f.writeLoop(client)
	f.readLoop(client)
}

// readLoop discards client frames and detects disconnects.
func (f *Feed) readLoop(c *feedClient) {
	defer f.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writeLoop(c *feedClient) {
	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *Feed) remove(c *feedClient) {
	f.mu.Lock()
	_, ok := f.clients[c]
	delete(f.clients, c)
	f.mu.Unlock()
	if ok {
		c.once.Do(func() { close(c.send) })
	}
}

// Close disconnects every client and rejects new ones.
func (f *Feed) Close() {
	f.closed.Store(true)
	f.mu.RLock()
	clients := make([]*feedClient, 0, len(f.clients))
	for c := range f.clients {
		clients = append(clients, c)
	}
	f.mu.RUnlock()
	for _, c := range clients {
		f.remove(c)
	}
}

var _ notify.Channel = (*Feed)(nil)
