package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/wildlife"
	"github.com/talgya/hamlet/internal/world"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumWhere adds up the int64 sum or gauge points whose attributes include kv.
func sumWhere(t *testing.T, m *metricdata.Metrics, kv ...attribute.KeyValue) int64 {
	t.Helper()
	var points []metricdata.DataPoint[int64]
	switch d := m.Data.(type) {
	case metricdata.Sum[int64]:
		points = d.DataPoints
	case metricdata.Gauge[int64]:
		points = d.DataPoints
	default:
		t.Fatalf("%s: unexpected data %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range points {
		match := true
		for _, want := range kv {
			if got, ok := dp.Attributes.Value(want.Key); !ok || got != want.Value {
				match = false
				break
			}
		}
		if match {
			total += dp.Value
		}
	}
	return total
}

type spawn struct {
	id engine.CommandID
}

func (c spawn) ID() engine.CommandID                { return c.id }
func (spawn) Kind() engine.Kind                     { return "spawn_test" }
func (spawn) Player() engine.PlayerID               { return engine.SystemPlayer }
func (spawn) TargetTick() uint64                    { return 0 }
func (spawn) Validate(*engine.World) engine.Result { return engine.Succeed("ok") }

func (spawn) Execute(w *engine.World) engine.Result {
	w.SpawnAnimal(wildlife.Rabbit, world.Coord{X: 3, Y: 3})
	return engine.Succeed("spawned")
}

func TestRecordTickFromEngine(t *testing.T) {
	m, reader := newTestMetrics(t)

	cfg := config.Default()
	cfg.Village.StartingResources = map[string]int{"wood": 7}
	w, err := engine.NewWorld(cfg, world.NewGrid(8, 8, world.TerrainGrass), nil)
	if err != nil {
		t.Fatal(err)
	}
	e := engine.NewEngine(w)
	m.Attach(e)

	if _, err := e.Submit(spawn{id: "a"}); err != nil {
		t.Fatal(err)
	}
	e.Step()
	e.Step()

	rm := collect(t, reader)

	cmds := findMetric(rm, "hamlet.commands")
	if cmds == nil {
		t.Fatal("hamlet.commands not recorded")
	}
	if n := sumWhere(t, cmds, attribute.String("kind", "spawn_test"), attribute.String("status", "success")); n != 1 {
		t.Errorf("spawn_test successes = %d, want 1", n)
	}

	hist := findMetric(rm, "hamlet.tick.duration")
	if hist == nil {
		t.Fatal("hamlet.tick.duration not recorded")
	}
	if h := hist.Data.(metricdata.Histogram[float64]); h.DataPoints[0].Count != 2 {
		t.Errorf("tick histogram count = %d, want 2", h.DataPoints[0].Count)
	}

	if g := findMetric(rm, "hamlet.world.tick"); g == nil || sumWhere(t, g) != 2 {
		t.Errorf("tick gauge = %v", g)
	}
	if g := findMetric(rm, "hamlet.population.wildlife"); g == nil || sumWhere(t, g, attribute.String("species", "rabbit")) != 1 {
		t.Error("rabbit gauge missing")
	}
	if g := findMetric(rm, "hamlet.village.stock"); g == nil || sumWhere(t, g, attribute.String("resource", "wood")) != 7 {
		t.Error("wood stock gauge missing")
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	m, reader := newTestMetrics(t)
	h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("code = %d", rr.Code)
	}

	hist := findMetric(collect(t, reader), "hamlet.http.request.duration")
	if hist == nil {
		t.Fatal("request duration not recorded")
	}
	dp := hist.Data.(metricdata.Histogram[float64]).DataPoints[0]
	if v, _ := dp.Attributes.Value("status"); v.AsInt64() != http.StatusTeapot {
		t.Errorf("status attribute = %v", v)
	}
}
