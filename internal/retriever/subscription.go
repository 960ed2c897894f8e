package retriever

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/broadcast"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/metrics"
)

// Subscription is a live interest in one retrieved SMS. Callers hold this
// interface, never a concrete variant.
type Subscription interface {
	Unsubscribe()
}

// Listener starts the platform's time-boxed wait for a one-time code SMS.
type Listener interface {
	StartListening(ctx context.Context) error
}

// Dispatcher registers receivers for broadcast intents.
type Dispatcher interface {
	Register(r broadcast.Receiver, f broadcast.Filter) error
	Unregister(r broadcast.Receiver) error
}

// Option configures an SMSSubscription.
type Option func(*SMSSubscription)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *SMSSubscription) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records each handled event's outcome.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *SMSSubscription) { s.metrics = m }
}

// WithTimeoutHandler is called when the service reports a timeout. The
// subscription stays registered either way.
func WithTimeoutHandler(fn func()) Option {
	return func(s *SMSSubscription) { s.onTimeout = fn }
}

// WithMalformedHandler is called with the decode error of every dropped
// SUCCESS intent.
func WithMalformedHandler(fn func(error)) Option {
	return func(s *SMSSubscription) { s.onMalformed = fn }
}

// SMSSubscription forwards the text of retrieved SMS to a callback.
type SMSSubscription struct {
	dispatcher  Dispatcher
	onMessage   func(string)
	onTimeout   func()
	onMalformed func(error)
	logger      *zap.Logger
	metrics     *metrics.Collector

	receiver *smsReceiver
	active   atomic.Bool
}

// smsReceiver is the registration handle. It is a distinct pointer so that
// OnReceive is not part of SMSSubscription's API.
type smsReceiver struct {
	s *SMSSubscription
}

func (r *smsReceiver) OnReceive(ctx context.Context, in broadcast.Intent) {
	r.s.handle(ctx, in)
}

// New registers for SMS retrieved intents on d and asks svc to start
// listening. Neither step waits for an SMS. Failures are logged; a
// subscription whose registration failed is simply inactive.
func New(ctx context.Context, svc Listener, d Dispatcher, onMessage func(string), opts ...Option) *SMSSubscription {
	s := &SMSSubscription{
		dispatcher: d,
		onMessage:  onMessage,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.receiver = &smsReceiver{s: s}

	// Register before listening so a match sent as soon as the session opens
	// has a receiver.
	if err := d.Register(s.receiver, broadcast.NewFilter(ActionSMSRetrieved)); err != nil {
		s.logger.Warn("register sms receiver", zap.Error(err))
	} else {
		s.active.Store(true)
	}

	if err := svc.StartListening(ctx); err != nil {
		s.logger.Warn("start sms retriever", zap.Error(err))
	}
	return s
}

// Active reports whether the receiver is still registered.
func (s *SMSSubscription) Active() bool {
	return s.active.Load()
}

// Unsubscribe unregisters the receiver. It is safe to call any number of
// times; only the first call reaches the dispatcher and its failure is
// discarded.
func (s *SMSSubscription) Unsubscribe() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	if err := s.dispatcher.Unregister(s.receiver); err != nil {
		s.logger.Debug("unregister sms receiver", zap.Error(err))
	}
}

func (s *SMSSubscription) handle(_ context.Context, in broadcast.Intent) {
	if !s.active.Load() {
		return
	}
	if in.Action != ActionSMSRetrieved {
		return
	}

	d, err := Decode(in)
	if err != nil {
		s.metrics.Outcome("malformed")
		s.logger.Warn("dropping sms retrieved intent", zap.String("id", in.ID), zap.Error(err))
		if s.onMalformed != nil {
			s.onMalformed(err)
		}
		return
	}
	s.metrics.Outcome(d.Outcome.String())

	switch d.Outcome {
	case OutcomeMessage:
		s.logger.Info("sms retrieved", zap.String("id", in.ID))
		s.onMessage(d.Text)
	case OutcomeTimeout:
		s.logger.Info("sms retriever timed out", zap.String("id", in.ID))
		if s.onTimeout != nil {
			s.onTimeout()
		}
	default:
		s.logger.Debug("ignoring sms retriever status", zap.Stringer("code", d.Code))
	}
}

// Noop is the Subscription used when retrieval is disabled.
type Noop struct{}

func (Noop) Unsubscribe() {}

var _ Subscription = (*SMSSubscription)(nil)
var _ Subscription = Noop{}

// IsMalformed reports whether err came from a malformed payload.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedPayload)
}
