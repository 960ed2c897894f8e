package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/logging"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/metrics"
)

var (
	ErrAlreadyRegistered = errors.New("broadcast: receiver already registered")
	ErrNotRegistered     = errors.New("broadcast: receiver not registered")
	ErrNilReceiver       = errors.New("broadcast: nil receiver")
)

// Bus is an in-process broadcast dispatcher. Receivers register with a filter
// and are called synchronously for each matching intent.
type Bus struct {
	Logger  *zap.Logger
	Metrics *metrics.Collector

	mu        sync.RWMutex
	receivers map[Receiver]Filter
	now       func() time.Time
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger, m *metrics.Collector) *Bus {
	return &Bus{
		Logger:    logging.OrNop(logger),
		Metrics:   m,
		receivers: make(map[Receiver]Filter),
		now:       time.Now,
	}
}

// Register adds r with filter f. A receiver can be registered only once.
func (b *Bus) Register(r Receiver, f Filter) error {
	if r == nil {
		return ErrNilReceiver
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.receivers[r]; ok {
		return ErrAlreadyRegistered
	}
	b.receivers[r] = f
	b.Logger.Debug("receiver registered", zap.Strings("actions", f.Actions()))
	return nil
}

// Unregister removes r. It returns ErrNotRegistered if r is unknown.
func (b *Bus) Unregister(r Receiver) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.receivers[r]; !ok {
		return ErrNotRegistered
	}
	delete(b.receivers, r)
	b.Logger.Debug("receiver unregistered")
	return nil
}

// Len returns the number of registered receivers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.receivers)
}

// Send delivers in to every receiver whose filter matches its action and
// returns how many were called. Receivers run outside the lock, so they may
// register or unregister (themselves included) while handling the intent.
func (b *Bus) Send(ctx context.Context, in Intent) int {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.SentAt.IsZero() {
		in.SentAt = b.now().UTC()
	}

	b.mu.RLock()
	var targets []Receiver
	for r, f := range b.receivers {
		if f.Matches(in.Action) {
			targets = append(targets, r)
		}
	}
	b.mu.RUnlock()

	b.Metrics.IntentSent(in.Action)
	b.Logger.Debug("sending intent",
		zap.String("id", in.ID),
		zap.String("action", in.Action),
		zap.Int("receivers", len(targets)))

	for _, r := range targets {
		r.OnReceive(ctx, in)
	}
	return len(targets)
}
