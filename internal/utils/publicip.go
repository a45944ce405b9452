package utils

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultCheckIPEndpoints are tried in order until one returns a parseable
// IPv4 address. All plain-text "what is my IP" services.
var DefaultCheckIPEndpoints = []string{
	"https://checkip.amazonaws.com",
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
}

// PublicIP discovers the operator's current public IPv4 address. client may
// be nil; endpoints may be empty to use the defaults.
func PublicIP(ctx context.Context, client *http.Client, endpoints ...string) (string, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if len(endpoints) == 0 {
		endpoints = DefaultCheckIPEndpoints
	}

	var lastErr error
	for _, endpoint := range endpoints {
		ip, err := fetchIP(ctx, client, endpoint)
		if err != nil {
			lastErr = err
			continue
		}
		return ip, nil
	}
	return "", fmt.Errorf("could not determine public IP from any endpoint: %w", lastErr)
}

func fetchIP(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", err
	}
	raw := strings.TrimSpace(string(body))
	ip := net.ParseIP(raw)
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("%s returned %q, not an IPv4 address", endpoint, raw)
	}
	return ip.String(), nil
}
