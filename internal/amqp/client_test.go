package amqp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func TestEventRoundTrip(t *testing.T) {
	ev := core.NewLedgerEvent(core.EventTransactionConfirmed)
	ev.PendingID = 7
	ev.CommittedID = 3

	data, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	if !strings.Contains(string(data), `"type":"transaction.confirmed"`) {
		t.Errorf("unexpected payload: %s", data)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if got.ID != ev.ID || got.PendingID != 7 || got.CommittedID != 3 {
		t.Errorf("DecodeEvent() = %+v", got)
	}
}

func TestDecodeEventRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{oops"},
		{"unknown type", `{"id":"x","type":"expense.sync"}`},
		{"missing type", `{"id":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeEvent([]byte(tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeEventRequiresIdentity(t *testing.T) {
	if _, err := EncodeEvent(core.LedgerEvent{Type: core.EventTransactionRejected}); err == nil {
		t.Error("expected error for event without id")
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := exponentialBackoff(tt.attempt); got != tt.want {
			t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"connection closed", errors.New("connection closed"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network", errors.New("use of closed network connection"), true},
		{"other", errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func newTestClient(timeout time.Duration) *Client {
	logger := log.Discard()
	return &Client{
		url:          "amqp://localhost:1",
		exchangeName: "ledger",
		queueName:    "ledger_events",
		logger:       logger,
		breaker:      newBreaker("test", timeout, logger),
	}
}

var errBroker = errors.New("broker unavailable")

func trip(c *Client) {
	for i := 0; i < maxFailures; i++ {
		_, _ = c.breaker.Execute(func() (interface{}, error) { return nil, errBroker })
	}
}

func TestCircuitBreakerTripsAfterMaxFailures(t *testing.T) {
	c := newTestClient(openTimeout)

	for i := 0; i < maxFailures-1; i++ {
		_, _ = c.breaker.Execute(func() (interface{}, error) { return nil, errBroker })
	}
	if c.breaker.State() != gobreaker.StateClosed {
		t.Fatalf("state = %s before maxFailures", c.breaker.State())
	}
	_, _ = c.breaker.Execute(func() (interface{}, error) { return nil, errBroker })
	if c.breaker.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open after maxFailures", c.breaker.State())
	}
}

func TestPublishFailsFastWhenCircuitOpen(t *testing.T) {
	c := newTestClient(openTimeout)
	trip(c)

	err := c.Publish(context.Background(), core.NewLedgerEvent(core.EventTransactionRejected))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Publish() error = %v, want open state", err)
	}
	if c.conn != nil {
		t.Error("open circuit must not dial the broker")
	}
}

func TestCircuitBreakerHalfOpenAdmitsSingleProbe(t *testing.T) {
	c := newTestClient(10 * time.Millisecond)
	trip(c)
	time.Sleep(20 * time.Millisecond)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			close(started)
			<-release
			return nil, nil
		})
		done <- err
	}()
	<-started

	err := c.Publish(context.Background(), core.NewLedgerEvent(core.EventTransactionRejected))
	if !errors.Is(err, gobreaker.ErrTooManyRequests) {
		t.Errorf("concurrent publish in half-open error = %v, want too many requests", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if c.breaker.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed after successful probe", c.breaker.State())
	}
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	c := newTestClient(openTimeout)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Publish(ctx, core.NewLedgerEvent(core.EventTransactionRejected)); err != context.Canceled {
		t.Errorf("Publish() error = %v, want context.Canceled", err)
	}
}
