// Package observe exports simulation metrics through OpenTelemetry.
//
// Instruments are created from a [metric.MeterProvider]; [InitProvider]
// installs one backed by the Prometheus exporter so /metrics can be scraped.
// Tests build their own provider with a ManualReader.
package observe

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/talgya/hamlet/internal/engine"
)

const meterName = "github.com/talgya/hamlet"

// tickBuckets are histogram boundaries in seconds. Most ticks take well under
// a millisecond.
var tickBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
}

// Metrics holds the instruments fed by the tick loop and the API.
type Metrics struct {
	TickDuration metric.Float64Histogram

	// Commands counts executed commands by kind and status.
	Commands metric.Int64Counter

	// LateCommands counts commands clamped to a later tick than requested.
	LateCommands metric.Int64Counter

	// Events counts game events by category and level.
	Events metric.Int64Counter

	HTTPRequestDuration metric.Float64Histogram

	// Gauges read the last published snapshot at collection time.
	tick      metric.Int64ObservableGauge
	people    metric.Int64ObservableGauge
	wildlife  metric.Int64ObservableGauge
	buildings metric.Int64ObservableGauge
	stock     metric.Int64ObservableGauge

	snap atomic.Pointer[engine.Snapshot]
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TickDuration, err = m.Float64Histogram("hamlet.tick.duration",
		metric.WithDescription("Wall time spent processing one tick."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(tickBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Commands, err = m.Int64Counter("hamlet.commands",
		metric.WithDescription("Executed commands by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.LateCommands, err = m.Int64Counter("hamlet.commands.late",
		metric.WithDescription("Commands that ran after their requested tick."),
	); err != nil {
		return nil, err
	}
	if met.Events, err = m.Int64Counter("hamlet.events",
		metric.WithDescription("Game events by category and level."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("hamlet.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.tick, err = m.Int64ObservableGauge("hamlet.world.tick",
		metric.WithDescription("Current simulation tick."),
	); err != nil {
		return nil, err
	}
	if met.people, err = m.Int64ObservableGauge("hamlet.population.people",
		metric.WithDescription("Living people."),
	); err != nil {
		return nil, err
	}
	if met.wildlife, err = m.Int64ObservableGauge("hamlet.population.wildlife",
		metric.WithDescription("Living animals by species."),
	); err != nil {
		return nil, err
	}
	if met.buildings, err = m.Int64ObservableGauge("hamlet.buildings",
		metric.WithDescription("Buildings by type and whether they are finished."),
	); err != nil {
		return nil, err
	}
	if met.stock, err = m.Int64ObservableGauge("hamlet.village.stock",
		metric.WithDescription("Village stock by resource."),
	); err != nil {
		return nil, err
	}
	if _, err = m.RegisterCallback(met.observe, met.tick, met.people, met.wildlife, met.buildings, met.stock); err != nil {
		return nil, err
	}
	return met, nil
}

// Attach feeds m from every tick e runs.
func (m *Metrics) Attach(e *engine.Engine) {
	m.snap.Store(e.Snapshot())
	e.OnTick(func(rep engine.TickReport) { m.RecordTick(context.Background(), rep) })
}

// RecordTick records one tick report.
func (m *Metrics) RecordTick(ctx context.Context, rep engine.TickReport) {
	m.TickDuration.Record(ctx, rep.Duration.Seconds())
	for _, rec := range rep.Records {
		m.Commands.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(rec.Kind)),
			attribute.String("status", rec.Result.Status.String()),
		))
		if rec.Late {
			m.LateCommands.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(rec.Kind))))
		}
	}
	for _, ev := range rep.Events {
		m.Events.Add(ctx, 1, metric.WithAttributes(
			attribute.String("category", ev.Category),
			attribute.String("level", ev.Level.String()),
		))
	}
	if rep.Snapshot != nil {
		m.snap.Store(rep.Snapshot)
	}
}

func (m *Metrics) observe(_ context.Context, o metric.Observer) error {
	s := m.snap.Load()
	if s == nil {
		return nil
	}
	o.ObserveInt64(m.tick, int64(s.Tick))
	o.ObserveInt64(m.people, int64(s.Village.Living))

	species := make(map[string]int64)
	for _, e := range s.Wildlife {
		if e.Alive {
			species[e.Species.String()]++
		}
	}
	for name, n := range species {
		o.ObserveInt64(m.wildlife, n, metric.WithAttributes(attribute.String("species", name)))
	}

	type key struct {
		kind string
		done bool
	}
	counts := make(map[key]int64)
	for _, b := range s.Buildings {
		counts[key{b.Type.String(), b.Constructed}]++
	}
	for k, n := range counts {
		o.ObserveInt64(m.buildings, n, metric.WithAttributes(
			attribute.String("type", k.kind),
			attribute.Bool("constructed", k.done),
		))
	}

	for name, n := range s.Village.Stocks {
		o.ObserveInt64(m.stock, int64(n), metric.WithAttributes(attribute.String("resource", name)))
	}
	return nil
}
