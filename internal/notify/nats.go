package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/retry"
)

// Conn is the part of *nats.Conn the notifier uses.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSNotifier publishes a RunEvent for every report it receives.
type NATSNotifier struct {
	conn    Conn
	subject string
	timeout time.Duration
	logger  *slog.Logger
	policy  retry.Policy
	now     func() time.Time
}

// Connect dials url and returns a notifier publishing on subject.
func Connect(url, subject string, timeout time.Duration, logger *slog.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("sitepipe"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}
	logger.Info("NATS notifier connected", slog.String("url", url), slog.String("subject", subject))
	return New(conn, subject, timeout, logger), nil
}

// New wraps an existing connection.
func New(conn Conn, subject string, timeout time.Duration, logger *slog.Logger) *NATSNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NATSNotifier{conn: conn, subject: subject, timeout: timeout, logger: logger, policy: retry.NoRetry(), now: time.Now}
}

// WithRetry sets the policy applied when publishing or flushing fails.
func (n *NATSNotifier) WithRetry(p retry.Policy) *NATSNotifier {
	n.policy = p
	return n
}

// Notify implements engine.Notifier.
func (n *NATSNotifier) Notify(ctx context.Context, report *engine.Report) error {
	data, err := json.Marshal(NewRunEvent(report, n.now()))
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	err = retry.Do(ctx, n.policy, func(attempt int) error {
		err := n.publish(ctx, data)
		if err != nil && attempt <= n.policy.MaxRetries {
			n.logger.Debug("Publishing run event failed, retrying",
				slog.Int("attempt", attempt), logfields.Error(err))
		}
		return err
	})
	if err != nil {
		return err
	}
	n.logger.Debug("Published run event",
		logfields.RunID(report.RunID),
		slog.String("subject", n.subject),
		slog.Int("bytes", len(data)))
	return nil
}

func (n *NATSNotifier) publish(ctx context.Context, data []byte) error {
	if err := n.conn.Publish(n.subject, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to publish run event").
			WithContext("subject", n.subject).
			Build()
	}
	flushCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.conn.FlushWithContext(flushCtx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to flush run event").
			WithContext("subject", n.subject).
			Build()
	}
	return nil
}

// Close closes the connection.
func (n *NATSNotifier) Close() error {
	n.conn.Close()
	return nil
}
