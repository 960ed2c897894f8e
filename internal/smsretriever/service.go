package smsretriever

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/broadcast"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbound"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/logging"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/metrics"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/retriever"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/security"
)

// DefaultWindow is how long a session waits for a matching SMS.
const DefaultWindow = 5 * time.Minute

var ErrNoSender = errors.New("smsretriever: no intent sender configured")

// Sender publishes intents; *broadcast.Bus satisfies it.
type Sender interface {
	Send(ctx context.Context, in broadcast.Intent) int
}

// Service waits for one matching SMS per session and announces the result as
// an SMS retrieved intent.
type Service struct {
	Sender  Sender
	AppHash string
	Window  time.Duration
	Guard   *security.Guard
	Logger  *zap.Logger
	Metrics *metrics.Collector

	mu      sync.Mutex
	session *session
	nextID  uint64
}

type session struct {
	id       uint64
	deadline time.Time
	timer    *time.Timer
}

// StartListening opens a retrieval session. A session that is already open is
// replaced without a timeout intent. It never blocks.
func (s *Service) StartListening(ctx context.Context) error {
	if s.Sender == nil {
		return ErrNoSender
	}
	window := s.Window
	if window <= 0 {
		window = DefaultWindow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		s.session.timer.Stop()
		s.Metrics.SessionClosed("replaced")
	}

	s.nextID++
	id := s.nextID
	s.session = &session{
		id:       id,
		deadline: time.Now().Add(window),
		timer:    time.AfterFunc(window, func() { s.expire(ctx, id) }),
	}
	s.logger().Info("sms retriever listening", zap.Duration("window", window), zap.Uint64("session", id))
	return nil
}

// Active reports whether a session is open, and its deadline.
func (s *Service) Active() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return time.Time{}, false
	}
	return s.session.deadline, true
}

// Deliver offers an inbound SMS to the open session. The body must match the
// app hash and a session must be open before the sender guard is consulted.
// It returns true when the SMS was accepted and a SUCCESS intent was sent.
func (s *Service) Deliver(ctx context.Context, evt inbound.Event) bool {
	logger := s.logger()

	if !Matches(evt.Text, s.AppHash) {
		logger.Debug("sms does not match app hash", zap.String("id", evt.ID))
		return false
	}
	if _, open := s.Active(); !open {
		logger.Debug("no retrieval session open", zap.String("id", evt.ID))
		return false
	}
	// Only retrievable SMS count against a sender's rate limit.
	if s.Guard != nil {
		if v := s.Guard.Check(evt.From); v != security.Allow {
			logger.Info("sms rejected by guard", zap.String("from", evt.From), zap.Stringer("verdict", v))
			return false
		}
	}

	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		logger.Debug("retrieval session closed", zap.String("id", evt.ID))
		return false
	}
	s.session.timer.Stop()
	id := s.session.id
	s.session = nil
	s.mu.Unlock()

	s.Metrics.SessionClosed("matched")
	logger.Info("sms matched", zap.String("id", evt.ID), zap.String("source", evt.Source), zap.Uint64("session", id))
	s.Sender.Send(ctx, retriever.SuccessIntent(evt.Text))
	return true
}

// Run feeds Deliver from in until ctx ends or in is closed.
func (s *Service) Run(ctx context.Context, in <-chan inbound.Event) error {
	for {
		select {
		case <-ctx.Done():
			s.close()
			return ctx.Err()
		case evt, ok := <-in:
			if !ok {
				s.close()
				return nil
			}
			s.Deliver(ctx, evt)
		}
	}
}

func (s *Service) expire(ctx context.Context, id uint64) {
	s.mu.Lock()
	if s.session == nil || s.session.id != id {
		s.mu.Unlock()
		return
	}
	s.session = nil
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	s.Metrics.SessionClosed("timeout")
	s.logger().Info("sms retriever timed out", zap.Uint64("session", id))
	s.Sender.Send(ctx, retriever.TimeoutIntent())
}

// close drops the open session without announcing anything.
func (s *Service) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.timer.Stop()
		s.session = nil
	}
}

func (s *Service) logger() *zap.Logger {
	return logging.OrNop(s.Logger)
}
