package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/vinayj16/PromptPad-sub000/collab"

// Metrics holds the counters emitted by the session layer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	joins        metric.Int64Counter
	leaves       metric.Int64Counter
	evictions    metric.Int64Counter
	relayed      metric.Int64Counter
	dropped      metric.Int64Counter
	sendFailures metric.Int64Counter
}

// NewMetrics creates instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates instruments on the given meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.joins, "collab_joins_total", "Participants that joined a document room"},
		{&m.leaves, "collab_leaves_total", "Participants that left a document room"},
		{&m.evictions, "collab_evictions_total", "Participants evicted for inactivity"},
		{&m.relayed, "collab_events_relayed_total", "Client events relayed to peers"},
		{&m.dropped, "collab_frames_dropped_total", "Inbound frames dropped as protocol errors"},
		{&m.sendFailures, "collab_send_failures_total", "Outbound sends that failed"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("telemetry: create %s: %w", c.name, err)
		}
	}
	return &m, nil
}

// Join and Leave carry no document attribute: document ids are unbounded.
func (m *Metrics) Join() {
	if m == nil {
		return
	}
	m.joins.Add(context.Background(), 1)
}

func (m *Metrics) Leave(reason string) {
	if m == nil {
		return
	}
	m.leaves.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) Evicted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.evictions.Add(context.Background(), int64(n))
}

func (m *Metrics) Relayed(eventType string) {
	if m == nil {
		return
	}
	m.relayed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", eventType)))
}

func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) SendFailed() {
	if m == nil {
		return
	}
	m.sendFailures.Add(context.Background(), 1)
}
