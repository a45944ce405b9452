package utils

import (
	"context"
	"net"
	"time"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/models"
)

// ProbeTCP attempts a direct TCP connection to addr and reports the result.
// Used by the logs diagnostic path to tell "gateway not up" apart from
// "gateway up but ingress blocked".
func ProbeTCP(ctx context.Context, addr string, timeout time.Duration) models.ProbeResult {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return models.ProbeResult{Addr: addr, Reachable: false, Err: err.Error()}
	}
	conn.Close()
	return models.ProbeResult{Addr: addr, Reachable: true}
}
