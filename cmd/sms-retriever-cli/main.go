package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbound/webhook"
	"github.com/Enriquefft/openclaw-sms-retriever/internal/smsretriever"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "send":
		err = handleSend(os.Args[2:], os.Stdout)
	case "status":
		err = handleStatus(os.Stdout)
	case "hash":
		err = handleHash(os.Args[2:], os.Stdout)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// handleSend posts a simulated inbound SMS to the daemon's webhook.
func handleSend(args []string, out io.Writer) error {
	var from, text string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--from":
			if i+1 < len(args) {
				from = args[i+1]
				i++
			}
		case "--text":
			if i+1 < len(args) {
				text = args[i+1]
				i++
			}
		default:
			// Allow positional: send +NUMBER "message"
			if from == "" && strings.HasPrefix(args[i], "+") {
				from = args[i]
			} else if text == "" {
				text = args[i]
			}
		}
	}

	if from == "" || text == "" {
		return fmt.Errorf("usage: sms-retriever-cli send --from +NUMBER --text \"message\"")
	}

	p := webhook.Payload{ID: "cli-" + uuid.NewString(), From: from, Body: text}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, webhookAddr()+"/sms", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret := os.Getenv("SMSR_WEBHOOK_SECRET"); secret != "" {
		req.Header.Set(webhook.SignatureHeader, webhook.Sign(body, secret))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	fmt.Fprintf(out, "sent (id: %s)\n", p.ID)
	return nil
}

func handleStatus(out io.Writer) error {
	resp, err := http.Get(webhookAddr() + "/health")
	if err != nil {
		return fmt.Errorf("webhook server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook server: unhealthy (status %d)", resp.StatusCode)
	}
	fmt.Fprintln(out, "webhook server: ok")
	return nil
}

// handleHash prints the app hash for a package name and signing certificate.
func handleHash(args []string, out io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sms-retriever-cli hash PACKAGE_NAME SIGNING_CERT")
	}
	fmt.Fprintln(out, smsretriever.ComputeAppHash(args[0], args[1]))
	return nil
}

func webhookAddr() string {
	addr := os.Getenv("SMSR_WEBHOOK_URL")
	if addr == "" {
		addr = "http://localhost:18791"
	}
	return strings.TrimSuffix(addr, "/")
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `sms-retriever-cli: talk to a running sms-retriever daemon

Commands:
  send --from +NUMBER --text "message"   Post a test SMS to the webhook
  status                                  Check webhook server health
  hash PACKAGE_NAME SIGNING_CERT          Print the 11-character app hash
  help                                    Show this help

Environment:
  SMSR_WEBHOOK_URL     Webhook base URL (default: http://localhost:18791)
  SMSR_WEBHOOK_SECRET  Shared secret used to sign test messages`)
}
