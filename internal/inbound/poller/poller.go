package poller

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbound"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbox"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/logging"
)

// Poller implements inbound.Source by polling the inbox list-messages API.
type Poller struct {
	Client    *inbox.Client
	Interval  time.Duration
	StateFile string
	Logger    *zap.Logger
}

// Run polls the inbox API on a ticker and emits events for each new inbound
// message. It returns when ctx is cancelled.
func (p *Poller) Run(ctx context.Context, out chan<- inbound.Event) error {
	logger := logging.OrNop(p.Logger)
	if err := os.MkdirAll(filepath.Dir(p.StateFile), 0o700); err != nil {
		logger.Warn("create state dir", zap.Error(err))
	}

	lastPoll := loadState(p.StateFile)
	if lastPoll.IsZero() {
		lastPoll = time.Now().UTC()
		p.save(lastPoll, logger)
		logger.Info("first run", zap.Time("since", lastPoll))
	}

	// Poll immediately, then on interval.
	if err := p.poll(ctx, &lastPoll, out, logger); err != nil {
		return err
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.poll(ctx, &lastPoll, out, logger); err != nil {
				return err
			}
		}
	}
}

// poll fetches one batch. It only returns an error when ctx ends mid-batch.
func (p *Poller) poll(ctx context.Context, lastPoll *time.Time, out chan<- inbound.Event, logger *zap.Logger) error {
	msgs, err := p.Client.ListAll(ctx, inbox.ListMessagesParams{
		Direction: "inbound",
		Since:     lastPoll.Format(time.RFC3339),
		Limit:     100,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("poll error", zap.Error(err))
		return nil
	}

	var newest time.Time
	forwarded := 0

	for _, msg := range msgs {
		msgTime := parseTimestamp(msg.Timestamp)
		if !msgTime.IsZero() && msgTime.After(newest) {
			newest = msgTime
		}

		text, ok := inbound.ExtractText(msg, logger)
		if !ok {
			continue
		}

		evt := inbound.Event{
			ID:         msg.ID,
			From:       msg.From,
			Text:       text,
			Source:     "polling",
			ReceivedAt: time.Now().UTC(),
		}
		select {
		case out <- evt:
			forwarded++
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if forwarded > 0 {
		logger.Info("forwarded messages", zap.Int("count", forwarded))
	}

	if !newest.IsZero() {
		*lastPoll = newest.Add(time.Second)
		p.save(*lastPoll, logger)
	}
	return nil
}

func (p *Poller) save(t time.Time, logger *zap.Logger) {
	if err := saveState(p.StateFile, t); err != nil {
		logger.Warn("save poll state", zap.Error(err))
	}
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return time.Unix(n, 0).UTC()
	}
	return time.Time{}
}

func loadState(path string) time.Time {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}
	}
	return t
}

func saveState(path string, t time.Time) error {
	return os.WriteFile(path, []byte(t.Format(time.RFC3339)), 0o600)
}
