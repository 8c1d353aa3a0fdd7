// Package otel records bus activity through OpenTelemetry metric
// instruments. Instruments are created against the global meter provider,
// so the package works unchanged whether or not an SDK is installed.
package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/socket-link/kore/internal/domain/event"
)

const meterName = "kore"

// Metrics implements the bus metrics recorder on OpenTelemetry counters.
type Metrics struct {
	published     metric.Int64Counter
	deliveries    metric.Int64Counter
	handlerErrors metric.Int64Counter
}

// NewMetrics creates the metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.published, err = meter.Int64Counter("kore.events.published",
		metric.WithDescription("Events published to the bus"))
	if err != nil {
		return nil, err
	}

	m.deliveries, err = meter.Int64Counter("kore.events.deliveries",
		metric.WithDescription("Handler invocations scheduled per publish"))
	if err != nil {
		return nil, err
	}

	m.handlerErrors, err = meter.Int64Counter("kore.events.handler_errors",
		metric.WithDescription("Handler invocations that returned an error or panicked"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordPublish counts one publish and its scheduled handler invocations.
func (m *Metrics) RecordPublish(key event.Key, handlers int) {
	attrs := metric.WithAttributes(keyAttrs(key)...)
	m.published.Add(context.Background(), 1, attrs)
	m.deliveries.Add(context.Background(), int64(handlers), attrs)
}

// RecordHandlerError counts one failed handler invocation.
func (m *Metrics) RecordHandlerError(key event.Key) {
	m.handlerErrors.Add(context.Background(), 1, metric.WithAttributes(keyAttrs(key)...))
}

func keyAttrs(key event.Key) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("event.class", string(key.Class)),
		attribute.String("event.type", key.Type),
	}
}
