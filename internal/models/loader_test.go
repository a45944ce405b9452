package models

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoader_StartStop_NoPanic(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoader(&buf, "Waiting for service...", WithANSI(true), WithInterval(10*time.Millisecond))
	l.Start()
	time.Sleep(35 * time.Millisecond)
	l.SetMessage("Almost stable")
	time.Sleep(25 * time.Millisecond)
	l.StopWithMessage("✅ Service is stable")

	out := buf.String()
	if out == "" {
		t.Fatal("expected output, got empty string")
	}
	if !strings.Contains(out, "\x1b[2K") {
		t.Error("expected ANSI clear line sequence in output")
	}
	if !strings.Contains(out, "✅ Service is stable") {
		t.Error("expected final message in output")
	}
}

func TestLoader_DoubleStopIsSafe(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoader(&buf, "x", WithANSI(false), WithInterval(5*time.Millisecond))
	l.Start()
	l.Stop()
	l.Stop()
}
