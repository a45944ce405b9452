package models

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"
)

// Loader is a small CLI spinner shown while a command blocks on one of the
// AWS waiters (service stabilization, load balancer deletion). Start/Stop
// are idempotent; the message can be swapped while running.
type Loader struct {
	mu       sync.Mutex
	msg      string
	frames   []string
	interval time.Duration
	out      io.Writer
	ansi     bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	active   bool
}

// Option configures the loader.
type Option func(*Loader)

// WithInterval sets the frame interval.
func WithInterval(d time.Duration) Option { return func(l *Loader) { l.interval = d } }

// WithANSI forces ANSI line-erase sequences on or off (useful in tests).
func WithANSI(enabled bool) Option { return func(l *Loader) { l.ansi = enabled } }

// NewLoader creates a loader writing to out (os.Stdout when nil).
func NewLoader(out io.Writer, message string, opts ...Option) *Loader {
	l := &Loader{
		msg:      message,
		frames:   []string{"⠋", "⠙", "⠚", "⠞", "⠖", "⠦", "⠴", "⠲", "⠳", "⠓"},
		interval: 90 * time.Millisecond,
		out:      out,
		ansi:     runtime.GOOS != "windows",
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if l.out == nil {
		l.out = os.Stdout
	}
	for _, opt := range opts {
		opt(l)
	}
	if !l.ansi {
		l.frames = []string{"-", "\\", "|", "/"}
	}
	return l
}

// Start begins the spinner. Repeated calls are ignored.
func (l *Loader) Start() {
	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		return
	}
	l.active = true
	l.mu.Unlock()

	go func() {
		defer close(l.doneCh)
		i := 0
		for {
			select {
			case <-l.stopCh:
				if l.ansi {
					fmt.Fprint(l.out, "\r\x1b[2K")
				} else {
					fmt.Fprint(l.out, "\r")
				}
				return
			default:
				l.mu.Lock()
				msg := l.msg
				l.mu.Unlock()
				frame := l.frames[i%len(l.frames)]
				i++
				if l.ansi {
					fmt.Fprintf(l.out, "\r\x1b[2K\x1b[36m%s\x1b[0m %s", frame, msg)
				} else {
					fmt.Fprintf(l.out, "\r%s %s", frame, msg)
				}
				time.Sleep(l.interval)
			}
		}
	}()
}

// Stop halts the spinner and clears the line.
func (l *Loader) Stop() {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return
	}
	l.active = false
	l.mu.Unlock()
	close(l.stopCh)
	<-l.doneCh
}

// StopWithMessage stops the spinner and prints a final line in its place.
func (l *Loader) StopWithMessage(final string) {
	l.Stop()
	if final != "" {
		fmt.Fprintln(l.out, final)
	}
}

// SetMessage updates the text shown next to the spinner.
func (l *Loader) SetMessage(m string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msg = m
}
