package dispatch

import (
	"context"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	outcomeHandled = "handled"
	outcomeFailed  = "failed"
	outcomePanic   = "panic"
)

type meters struct {
	app     commoncfg.Application
	tracer  trace.Tracer
	counter metric.Int64Counter
	hist    metric.Int64Histogram
	queued  metric.Int64UpDownCounter
}

func newMeters(ctx context.Context, app commoncfg.Application) (*meters, error) {
	meter := otel.Meter(
		"storefront/"+app.Name,
		metric.WithInstrumentationVersion(otel.Version()),
		metric.WithInstrumentationAttributes(otlp.CreateAttributesFrom(app)...),
	)

	counter, err := meter.Int64Counter(
		"events.handled_count",
		metric.WithDescription("Chat events processed by the dispatcher"),
		metric.WithUnit("event"),
	)
	if err != nil {
		return nil, oops.In("Dispatcher").
			WithContext(ctx).
			Wrapf(err, "creating handled_count meter")
	}

	hist, err := meter.Int64Histogram(
		"events.duration",
		metric.WithDescription("Event handling duration"),
		metric.WithUnit("milliseconds"),
	)
	if err != nil {
		return nil, oops.In("Dispatcher").
			WithContext(ctx).
			Wrapf(err, "creating duration meter")
	}

	queued, err := meter.Int64UpDownCounter(
		"events.queued",
		metric.WithDescription("Events waiting in shard queues"),
		metric.WithUnit("event"),
	)
	if err != nil {
		return nil, oops.In("Dispatcher").
			WithContext(ctx).
			Wrapf(err, "creating queued meter")
	}

	traceAttrs := otlp.CreateAttributesFrom(app, attribute.String(commoncfg.AttrOperation, "dispatch"))

	return &meters{
		app:     app,
		tracer:  otel.Tracer("dispatch", trace.WithInstrumentationAttributes(traceAttrs...)),
		counter: counter,
		hist:    hist,
		queued:  queued,
	}, nil
}

func (m *meters) record(ctx context.Context, shard int, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		otlp.CreateAttributesFrom(m.app,
			attribute.Int("shard", shard),
			attribute.String("outcome", outcome),
		)...,
	)

	m.counter.Add(ctx, 1, attrs)
	m.hist.Record(ctx, elapsed.Milliseconds(), attrs)
}
