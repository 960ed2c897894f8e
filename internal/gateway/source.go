package gateway

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbound"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/logging"
)

// Frame is an inbound SMS pushed by the gateway.
type Frame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	From string `json:"from"`
	Body string `json:"body"`
}

// Source implements inbound.Source by reading SMS frames from the gateway
// websocket. It reconnects after RetryDelay until ctx is cancelled.
type Source struct {
	URL        string
	Token      string
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Run blocks until ctx is cancelled.
func (s *Source) Run(ctx context.Context, out chan<- inbound.Event) error {
	logger := logging.OrNop(s.Logger)
	delay := s.RetryDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	for {
		if err := s.session(ctx, out, logger); err != nil && ctx.Err() == nil {
			logger.Warn("gateway source disconnected", zap.Error(err), zap.Duration("retry_in", delay))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// session reads frames from one connection until it fails or ctx ends.
func (s *Source) session(ctx context.Context, out chan<- inbound.Event, logger *zap.Logger) error {
	conn, err := dial(ctx, s.URL, s.Token)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info("gateway source connected", zap.String("url", s.URL))

	// Unblock ReadMessage when ctx ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			logger.Warn("gateway: invalid frame", zap.Error(err))
			continue
		}
		if f.Type != "sms" || f.Body == "" {
			continue
		}

		evt := inbound.Event{
			ID:         f.ID,
			From:       f.From,
			Text:       f.Body,
			Source:     "gateway",
			ReceivedAt: time.Now().UTC(),
		}
		select {
		case out <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
