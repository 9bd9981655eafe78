package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/base2-shop/api/internal/metrics"
)

const defaultTxTimeout = 10 * time.Second

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Publisher receives committed-change notifications. Satisfied by *ws.Hub.
type Publisher interface {
	Publish(topic, eventType string, payload interface{})
}

type options struct {
	publisher Publisher
	metrics   *metrics.Metrics
	txTimeout time.Duration
}

// Option configures the order and work order services.
type Option func(*options)

func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTxTimeout bounds every write transaction. Zero keeps the default.
func WithTxTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.txTimeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{txTimeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// writeContext detaches a write transaction from request cancellation and
// bounds it by the configured timeout instead.
func (o options) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.txTimeout)
}

func (o options) publish(topic, eventType string, payload interface{}) {
	if o.publisher != nil {
		o.publisher.Publish(topic, eventType, payload)
	}
}

func (o options) rolledBack(operation string, err error) {
	zap.S().Errorf("%s rolled back: %v", operation, err)
	if o.metrics != nil {
		o.metrics.TxRollbacks.WithLabelValues(operation).Inc()
	}
}

func (o options) statusChanged(record, status string) {
	if o.metrics != nil {
		o.metrics.StatusChanges.WithLabelValues(record, status).Inc()
	}
}
