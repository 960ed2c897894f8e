package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbound"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbound/webhook"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/smsretriever"
)

func startWebhook(t *testing.T, secret string) chan inbound.Event {
	t.Helper()
	out := make(chan inbound.Event, 1)
	s := &webhook.Server{Secret: secret}
	srv := httptest.NewServer(s.Handler(context.Background(), out))
	t.Cleanup(srv.Close)
	t.Setenv("SMSR_WEBHOOK_URL", srv.URL+"/")
	t.Setenv("SMSR_WEBHOOK_SECRET", secret)
	return out
}

func TestSendSigned(t *testing.T) {
	events := startWebhook(t, "s3cret")

	var out bytes.Buffer
	require.NoError(t, handleSend([]string{"+15550001111", "code 123456"}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "sent (id: cli-"))

	evt := <-events
	assert.Equal(t, "+15550001111", evt.From)
	assert.Equal(t, "code 123456", evt.Text)
}

func TestSendFlags(t *testing.T) {
	events := startWebhook(t, "")

	require.NoError(t, handleSend([]string{"--from", "MyBank", "--text", "654321"}, &bytes.Buffer{}))
	assert.Equal(t, "MyBank", (<-events).From)
}

func TestSendMissingArgs(t *testing.T) {
	assert.Error(t, handleSend([]string{"--from", "+1"}, &bytes.Buffer{}))
}

func TestSendRejected(t *testing.T) {
	startWebhook(t, "s3cret")
	t.Setenv("SMSR_WEBHOOK_SECRET", "wrong")

	err := handleSend([]string{"+1", "123456"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestStatus(t *testing.T) {
	startWebhook(t, "")
	var out bytes.Buffer
	require.NoError(t, handleStatus(&out))
	assert.Equal(t, "webhook server: ok\n", out.String())
}

func TestHash(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, handleHash([]string{"com.example.dv", "cert"}, &out))
	assert.Equal(t, smsretriever.ComputeAppHash("com.example.dv", "cert")+"\n", out.String())

	assert.Error(t, handleHash(nil, &out))
}
