package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/broadcast"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/config"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/gateway"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbound"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbound/poller"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbound/webhook"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbox"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/logging"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/metrics"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/otp"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/retriever"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/security"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/smsretriever"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/tailscale"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	once := false
	for _, a := range os.Args[1:] {
		if a == "--once" {
			once = true
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout, once); err != nil && ctx.Err() == nil {
		logger.Fatal("sms-retriever stopped", zap.Error(err))
	}
	logger.Info("shutting down")
}

// result is what a subscription reported through its callbacks.
type result struct {
	text    string
	timeout bool
}

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector
	bus     *broadcast.Bus
	svc     *smsretriever.Service
	forward *gateway.Client
	out     io.Writer
	results chan result
}

// run wires the pipeline: sources → merge → retrieval service → bus →
// subscription. Each subscription covers one retrieval session; after a
// message or a timeout it is torn down and, unless once is set, replaced.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer, once bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.NewCollector("sms_retriever")
	bus := broadcast.NewBus(logger.Named("bus"), m)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		bus:     bus,
		svc: &smsretriever.Service{
			Sender:  bus,
			AppHash: resolveAppHash(cfg.Retriever),
			Window:  time.Duration(cfg.Retriever.Window) * time.Second,
			Guard:   security.New(cfg.Security),
			Logger:  logger.Named("retriever"),
			Metrics: m,
		},
		out:     out,
		results: make(chan result, 4),
	}

	sources := buildSources(cfg, logger, m)
	if len(sources) == 0 {
		return fmt.Errorf("no inbound sources configured for mode %q", cfg.Delivery.Mode)
	}

	if cfg.Gateway.Forward {
		a.forward = gateway.NewClient(cfg.Gateway.URL, cfg.Gateway.Token, logger.Named("gateway"))
		if err := a.forward.Connect(ctx); err != nil {
			return err
		}
		defer a.forward.Close()
	}

	if cfg.Webhook.Funnel && cfg.UsesSource("webhook") {
		url, err := tailscale.StartFunnel(ctx, cfg.Webhook.Addr, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "webhook: %s\n", url)
	}

	merge := &inbound.Merge{Sources: sources, Logger: logger.Named("inbound"), Metrics: m}
	events := make(chan inbound.Event, 64)
	go merge.Run(ctx, events)
	go merge.StartCleanup(ctx, time.Hour)

	svcDone := make(chan error, 1)
	go func() { svcDone <- a.svc.Run(ctx, events) }()

	logger.Info("sms-retriever started",
		zap.String("mode", cfg.Delivery.Mode),
		zap.Bool("app_hash", a.svc.AppHash != ""),
		zap.Duration("window", a.svc.Window))

	sub := a.subscribe(ctx)
	defer func() { sub.Unsubscribe() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-svcDone:
			return err
		case r := <-a.results:
			sub.Unsubscribe()
			if r.timeout {
				logger.Info("no sms within window, listening again")
			} else {
				a.report(r.text)
				if once {
					return nil
				}
			}
			sub = a.subscribe(ctx)
		}
	}
}

// subscribe picks the Subscription variant for the current config.
func (a *app) subscribe(ctx context.Context) retriever.Subscription {
	if !a.cfg.Retriever.Enabled {
		return retriever.Noop{}
	}
	return retriever.New(ctx, a.svc, a.bus,
		func(text string) { a.results <- result{text: text} },
		retriever.WithLogger(a.logger.Named("subscription")),
		retriever.WithMetrics(a.metrics),
		retriever.WithTimeoutHandler(func() { a.results <- result{timeout: true} }),
		retriever.WithMalformedHandler(func(err error) {
			a.logger.Error("retrieved sms dropped", zap.Error(err))
		}),
	)
}

// report prints the retrieved code (or the whole text when no code is found)
// and forwards it to the gateway when configured.
func (a *app) report(text string) {
	code, ok := otp.Extract(text)
	if ok {
		fmt.Fprintln(a.out, code)
	} else {
		fmt.Fprintln(a.out, text)
	}

	if a.forward == nil {
		return
	}
	msg := gateway.Message{Type: "sms_retrieved", Channel: "sms", Text: text, Code: code}
	if err := a.forward.Send(msg); err != nil {
		a.logger.Error("forward to gateway", zap.Error(err))
	}
}

func resolveAppHash(cfg config.RetrieverConfig) string {
	if cfg.AppHash != "" {
		return cfg.AppHash
	}
	if cfg.PackageName != "" && cfg.SigningCert != "" {
		return smsretriever.ComputeAppHash(cfg.PackageName, cfg.SigningCert)
	}
	return ""
}

func buildSources(cfg *config.Config, logger *zap.Logger, m *metrics.Collector) []inbound.Source {
	var sources []inbound.Source

	if cfg.UsesSource("webhook") {
		sources = append(sources, &webhook.Server{
			Addr:    cfg.Webhook.Addr,
			Secret:  cfg.Webhook.Secret,
			Logger:  logger.Named("webhook"),
			Metrics: m,
		})
	}

	if cfg.UsesSource("gateway") {
		sources = append(sources, &gateway.Source{
			URL:    cfg.Gateway.URL,
			Token:  cfg.Gateway.Token,
			Logger: logger.Named("gateway"),
		})
	}

	if cfg.UsesSource("polling") {
		if cfg.Inbox.URL == "" {
			logger.Warn("polling enabled but inbox.url is empty, skipping poller")
		} else {
			sources = append(sources, &poller.Poller{
				Client:    inbox.NewClient(cfg.Inbox.URL, cfg.Inbox.APIKey),
				Interval:  time.Duration(cfg.Delivery.PollInterval) * time.Second,
				StateFile: filepath.Join(cfg.State.Dir, "last-poll"),
				Logger:    logger.Named("poller"),
			})
		}
	}

	return sources
}
