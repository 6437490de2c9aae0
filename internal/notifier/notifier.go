// Package notifier delivers out-of-band messages (OTP codes, login alerts).
// Delivery is best-effort by contract: once the authoritative state is
// persisted, a failed or slow send must never fail the caller.
package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"taxgate/internal/platform/metrics"
)

// Notifier sends one message to one contact address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogNotifier writes messages to the log instead of a mail relay. Used in
// development and as the default when no relay is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.log.Info("outbound message", "to", to, "subject", subject, "body", body)
	return nil
}

// Dispatcher wraps a Notifier with the fire-and-forget semantics the
// verification flows require: each send runs on its own goroutine under a
// bounded timeout, and failures are logged and counted, never returned.
type Dispatcher struct {
	notifier Notifier
	log      *slog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(n Notifier, log *slog.Logger, m *metrics.Metrics, timeout time.Duration) *Dispatcher {
	return &Dispatcher{notifier: n, log: log, metrics: m, timeout: timeout}
}

// Send delivers asynchronously. Safe to call from a request handler; returns
// immediately.
func (d *Dispatcher) Send(to, subject, body string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.notifier.Send(ctx, to, subject, body); err != nil {
			d.metrics.IncNotifierFailure()
			d.log.Warn("notifier send failed", "to", to, "subject", subject, "error", err)
		}
	}()
}

// Wait blocks until all in-flight sends finish. Shutdown and tests only.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
