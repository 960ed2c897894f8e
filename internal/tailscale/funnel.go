package tailscale

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// tsStatus is a minimal subset of `tailscale status --json` output.
type tsStatus struct {
	Self struct {
		DNSName string `json:"DNSName"`
	} `json:"Self"`
}

// EnsureInstalled checks that the tailscale CLI is available.
func EnsureInstalled() error {
	if _, err := exec.LookPath("tailscale"); err != nil {
		return fmt.Errorf("tailscale CLI not found in PATH, install from https://tailscale.com/download")
	}
	return nil
}

// PublicURL returns the HTTPS URL of this node, e.g. "https://machine.tailnet.ts.net".
func PublicURL(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "tailscale", "status", "--json").Output()
	if err != nil {
		return "", fmt.Errorf("tailscale status: %w (is tailscale running?)", err)
	}
	return parseStatus(out)
}

func parseStatus(out []byte) (string, error) {
	var status tsStatus
	if err := json.Unmarshal(out, &status); err != nil {
		return "", fmt.Errorf("parse tailscale status: %w", err)
	}

	dns := strings.TrimSuffix(status.Self.DNSName, ".")
	if dns == "" {
		return "", fmt.Errorf("tailscale: empty DNS name, is the node connected?")
	}

	return "https://" + dns, nil
}

// PortOf extracts the port from a listen address such as ":18791".
func PortOf(addr string) (string, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	return port, nil
}

// StartFunnel runs `tailscale funnel <port>` until ctx is cancelled and returns
// the public SMS webhook URL (https://<machine>.<tailnet>.ts.net/sms).
func StartFunnel(ctx context.Context, addr string, logger *zap.Logger) (string, error) {
	if err := EnsureInstalled(); err != nil {
		return "", err
	}
	port, err := PortOf(addr)
	if err != nil {
		return "", err
	}

	baseURL, err := PublicURL(ctx)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, "tailscale", "funnel", port)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start tailscale funnel: %w", err)
	}
	go cmd.Wait()

	webhookURL := baseURL + "/sms"
	if logger != nil {
		logger.Info("tailscale funnel started", zap.String("port", port), zap.String("url", webhookURL))
	}
	return webhookURL, nil
}
