package main

import (
	"context"
	"testing"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/cloud/naming"
)

func TestTeardownConfirmed(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"yes", true},
		{"YES", true},
		{"  yes  ", true},
		{"y", false},
		{"no", false},
		{"", false},
		{"yes please", false},
	}
	for _, tt := range tests {
		if got := teardownConfirmed(tt.answer); got != tt.want {
			t.Errorf("teardownConfirmed(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

// The diagnostic report carries one probe result per gateway endpoint,
// whatever the outcome of the dial.
func TestProbeEndpointsCoversBothPorts(t *testing.T) {
	results := probeEndpoints(context.Background(), "127.0.0.1")

	want := naming.Endpoints("127.0.0.1")
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, res := range results {
		if res.Addr != want[i] {
			t.Errorf("probe %d addr = %q, want %q", i, res.Addr, want[i])
		}
		if !res.Reachable && res.Err == "" {
			t.Errorf("unreachable probe %s must carry an error", res.Addr)
		}
	}
}
