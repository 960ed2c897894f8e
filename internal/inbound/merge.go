package inbound

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/logging"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/metrics"
)

// Merge fans in multiple Sources with message-ID deduplication.
type Merge struct {
	Sources []Source
	Logger  *zap.Logger
	Metrics *metrics.Collector

	seen sync.Map
}

// Run starts all sources concurrently, deduplicates by Event.ID, and forwards
// unique events to out. It closes out and returns when all sources have finished.
func (m *Merge) Run(ctx context.Context, out chan<- Event) error {
	logger := logging.OrNop(m.Logger)
	ch := make(chan Event, 64)

	var wg sync.WaitGroup
	for _, src := range m.Sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			if err := s.Run(ctx, ch); err != nil && ctx.Err() == nil {
				logger.Error("source stopped", zap.Error(err))
			}
		}(src)
	}

	// Close ch when all sources are done.
	go func() {
		wg.Wait()
		close(ch)
	}()

	defer close(out)
	for evt := range ch {
		m.Metrics.SMSReceived(evt.Source)
		if evt.ID != "" {
			if _, loaded := m.seen.LoadOrStore(evt.ID, struct{}{}); loaded {
				logger.Debug("skipping duplicate message", zap.String("id", evt.ID), zap.String("source", evt.Source))
				continue
			}
		}
		select {
		case out <- evt:
		case <-ctx.Done():
			// Drain so sources blocked on ch can exit.
			for range ch {
			}
			return ctx.Err()
		}
	}

	return nil
}

// StartCleanup periodically clears the dedup set to bound memory usage.
func (m *Merge) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.seen.Range(func(key, _ any) bool {
				m.seen.Delete(key)
				return true
			})
		}
	}
}
