package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/logging"
)

// Message is the frame sent to the gateway when an SMS was retrieved.
type Message struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	From    string `json:"from,omitempty"`
	Text    string `json:"text"`
	Code    string `json:"code,omitempty"`
}

// Client manages an outbound WebSocket connection to the gateway.
type Client struct {
	url    string
	token  string
	logger *zap.Logger
	conn   *websocket.Conn
	mu     sync.Mutex
}

// NewClient creates a new gateway WebSocket client.
func NewClient(url, token string, logger *zap.Logger) *Client {
	return &Client{
		url:    url,
		token:  token,
		logger: logging.OrNop(logger),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := dial(ctx, c.url, c.token)
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}

	c.conn = conn
	c.logger.Info("connected to gateway", zap.String("url", c.url))
	return nil
}

// Send sends a message to the gateway.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected to gateway")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func dial(ctx context.Context, url, token string) (*websocket.Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, url, header)
	return conn, err
}
