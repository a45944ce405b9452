package utils

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestProbeTCP_Reachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	res := ProbeTCP(context.Background(), ln.Addr().String(), 2*time.Second)
	if !res.Reachable {
		t.Errorf("expected %s to be reachable: %s", res.Addr, res.Err)
	}
}

func TestProbeTCP_Unreachable(t *testing.T) {
	// Grab a port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	res := ProbeTCP(context.Background(), addr, 500*time.Millisecond)
	if res.Reachable {
		t.Errorf("expected %s to be unreachable", addr)
	}
	if res.Err == "" {
		t.Error("expected error detail for unreachable probe")
	}
}
