package equinesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("equinesync: channel sink closed")

// AlertFunc is invoked once per emitted alert.
type AlertFunc func(Alert) error

// NewCallbackAlertSink adapts a plain function into an AlertSink so
// callers can react to alerts without defining structs.
func NewCallbackAlertSink(name string, fn AlertFunc) AlertSink {
	if name == "" {
		name = "callback"
	}
	return &callbackAlertSink{name: name, fn: fn}
}

// NewChannelAlertSink exposes alerts via a channel; it returns the sink,
// the read-only channel, and a close function the caller should invoke
// during shutdown.
func NewChannelAlertSink(name string, buffer int) (AlertSink, <-chan Alert, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Alert, buffer)
	s := &channelAlertSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackAlertSink struct {
	name string
	fn   AlertFunc
}

func (s *callbackAlertSink) Publish(_ context.Context, alert *Alert) error {
	if s.fn == nil {
		return fmt.Errorf("callback alert sink %q: nil handler", s.name)
	}
	if alert == nil {
		return nil
	}
	return s.fn(*alert)
}

func (s *callbackAlertSink) Name() string { return s.name }

type channelAlertSink struct {
	name   string
	ch     chan Alert
	closed chan struct{}
	once   sync.Once
}

func (s *channelAlertSink) Publish(ctx context.Context, alert *Alert) error {
	if alert == nil {
		return nil
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- *alert:
		return nil
	}
}

func (s *channelAlertSink) Name() string { return s.name }

func (s *channelAlertSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
