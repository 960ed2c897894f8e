package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbound"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/logging"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/metrics"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body, "sha256=" prefixed.
const SignatureHeader = "X-Signature-256"

const maxBody = 64 << 10

// Server is an HTTP webhook receiver that implements inbound.Source. It accepts
// JSON payloads and Twilio-style form posts on /sms.
type Server struct {
	Addr    string
	Secret  string
	Logger  *zap.Logger
	Metrics *metrics.Collector

	now func() time.Time
}

// Payload is the JSON body accepted on POST /sms.
type Payload struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Run starts the webhook HTTP server and emits events on out. It blocks until
// ctx is cancelled, at which point the server is gracefully shut down.
func (s *Server) Run(ctx context.Context, out chan<- inbound.Event) error {
	logger := logging.OrNop(s.Logger)
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(ctx, out),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	logger.Info("webhook server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook serve: %w", err)
	}
	return nil
}

// Handler returns the router serving /sms, /health and /metrics.
func (s *Server) Handler(ctx context.Context, out chan<- inbound.Event) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/sms", s.handleSMS(ctx, out))
	r.Get("/health", handleHealth)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}
	return r
}

func (s *Server) handleSMS(ctx context.Context, out chan<- inbound.Event) http.HandlerFunc {
	logger := logging.OrNop(s.Logger)
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}

		if s.Secret != "" && !ValidSignature(body, r.Header.Get(SignatureHeader), s.Secret) {
			logger.Warn("webhook: invalid signature", zap.String("remote", r.RemoteAddr))
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		form := isForm(r.Header.Get("Content-Type"))
		var p Payload
		if form {
			p, err = parseForm(body)
		} else {
			err = json.Unmarshal(body, &p)
		}
		if err != nil {
			logger.Warn("webhook: invalid payload", zap.Error(err))
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if p.From == "" || strings.TrimSpace(p.Body) == "" {
			http.Error(w, "from and body are required", http.StatusBadRequest)
			return
		}

		evt := inbound.Event{
			ID:         p.ID,
			From:       p.From,
			Text:       p.Body,
			Source:     "webhook",
			ReceivedAt: s.clock().UTC(),
		}

		select {
		case out <- evt:
		case <-ctx.Done():
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		case <-r.Context().Done():
			return
		}
		logger.Info("webhook: received sms", zap.String("id", p.ID), zap.String("from", p.From))

		if form {
			// Twilio expects TwiML; an empty response sends no reply.
			w.Header().Set("Content-Type", "text/xml")
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, "<Response></Response>")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	}
}

func (s *Server) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func isForm(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/x-www-form-urlencoded"
}

// parseForm reads the Twilio inbound message fields.
func parseForm(body []byte) (Payload, error) {
	v, err := url.ParseQuery(string(body))
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		ID:   v.Get("MessageSid"),
		From: v.Get("From"),
		Body: v.Get("Body"),
	}, nil
}

// Sign returns the SignatureHeader value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature checks the SignatureHeader HMAC.
func ValidSignature(body []byte, header, secret string) bool {
	if header == "" {
		return false
	}
	return hmac.Equal([]byte(header), []byte(Sign(body, secret)))
}

// handleHealth returns 200 OK, used by the CLI status command.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}
