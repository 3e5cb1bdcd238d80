package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/world"
)

const testKey = "secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.World = world.SmallTestConfig()
	cfg.World.Width, cfg.World.Height = 32, 32
	cfg.Village.StartingFamilies = 1
	sink := engine.NewMemorySink(0)
	w, err := engine.Bootstrap(cfg, sink)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	s := NewServer(engine.NewEngine(w), ":0", testKey)
	s.Events = sink
	return s
}

func do(t *testing.T, h http.Handler, method, path, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	s.Engine.Step()
	s.Engine.Step()

	rec := do(t, s.Handler(), "GET", "/api/v1/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Tick       uint64 `json:"tick"`
		Digest     string `json:"digest"`
		Population int    `json:"population"`
		Families   int    `json:"families"`
	}
	decode(t, rec, &got)
	if got.Tick != 2 {
		t.Errorf("tick = %d, want 2", got.Tick)
	}
	if got.Digest != s.Engine.Snapshot().Digest {
		t.Errorf("digest = %q", got.Digest)
	}
	if got.Families != 1 || got.Population == 0 {
		t.Errorf("families = %d, population = %d", got.Families, got.Population)
	}
}

func TestSnapshotAndLookups(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, "GET", "/api/v1/snapshot", "", "")
	var snap struct {
		People []struct {
			ID uint64 `json:"id"`
		} `json:"people"`
	}
	decode(t, rec, &snap)
	if len(snap.People) == 0 {
		t.Fatal("snapshot has no people")
	}

	id := snap.People[0].ID
	rec = do(t, h, "GET", "/api/v1/person/"+strconv.FormatUint(id, 10), "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("person lookup = %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/api/v1/person/9999", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing person = %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/api/v1/family/x", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/api/v1/family/1", "", ""); rec.Code != http.StatusOK {
		t.Errorf("family lookup = %d", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	if rec := do(t, h, "POST", "/api/v1/speed", `{"speed":2}`, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", rec.Code)
	}
	if rec := do(t, h, "POST", "/api/v1/speed", `{"speed":2}`, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d", rec.Code)
	}
	if rec := do(t, h, "POST", "/api/v1/speed", `{"speed":2}`, testKey); rec.Code != http.StatusOK {
		t.Errorf("admin = %d", rec.Code)
	}
	if s.Engine.Speed() != 2 {
		t.Errorf("speed = %v", s.Engine.Speed())
	}
	if rec := do(t, h, "POST", "/api/v1/speed", `{"speed":5000}`, testKey); rec.Code != http.StatusBadRequest {
		t.Errorf("out of range = %d", rec.Code)
	}

	s.AdminKey = ""
	if rec := do(t, s.Handler(), "POST", "/api/v1/speed", `{"speed":1}`, testKey); rec.Code != http.StatusForbidden {
		t.Errorf("disabled = %d", rec.Code)
	}
}

func TestSubmitCommand(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	body := `{"type":"spawn_wildlife","id":"w1","params":{"species":"rabbit","x":"3","y":"3"}}`
	rec := do(t, h, "POST", "/api/v1/command", body, testKey)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit = %d %s", rec.Code, rec.Body)
	}
	var ack struct {
		ID   string `json:"id"`
		Tick uint64 `json:"tick"`
		Late bool   `json:"late"`
	}
	decode(t, rec, &ack)
	if ack.ID != "w1" || ack.Tick != 0 || ack.Late {
		t.Errorf("ack = %+v", ack)
	}

	if rec := do(t, h, "POST", "/api/v1/command", body, testKey); rec.Code != http.StatusConflict {
		t.Errorf("duplicate = %d", rec.Code)
	}

	s.Engine.Step()

	rec = do(t, h, "GET", "/api/v1/records?tick=0", "", "")
	var recs []engine.ExecutionRecord
	decode(t, rec, &recs)
	if len(recs) != 1 || recs[0].ID != "w1" {
		t.Fatalf("records = %+v", recs)
	}
	if rec := do(t, h, "GET", "/api/v1/records?id=w1", "", ""); rec.Code != http.StatusOK {
		t.Errorf("record by id = %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/api/v1/records", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("records without tick = %d", rec.Code)
	}
}

func TestSubmitAssignsID(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Handler(), "POST", "/api/v1/command",
		`{"type":"spawn_wildlife","params":{"species":"deer","x":"4","y":"4"}}`, testKey)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit = %d %s", rec.Code, rec.Body)
	}
	var ack struct {
		ID string `json:"id"`
	}
	decode(t, rec, &ack)
	if ack.ID == "" {
		t.Error("no id assigned")
	}
	if s.Engine.Scheduler().Pending() != 1 {
		t.Errorf("pending = %d", s.Engine.Scheduler().Pending())
	}
}

func TestSubmitRejectsBadEnvelope(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	for name, body := range map[string]string{
		"not json":     `{`,
		"unknown kind": `{"type":"fly","id":"x"}`,
		"bad param":    `{"type":"move_person","id":"x","params":{"person":"one","x":"1","y":"1"}}`,
		"extra field":  `{"type":"hunt","id":"x","extra":1}`,
	} {
		rec := do(t, h, "POST", "/api/v1/command", body, testKey)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
	}
	if s.Engine.Scheduler().Pending() != 0 {
		t.Error("a rejected envelope was scheduled")
	}
}

func TestCommandRateLimit(t *testing.T) {
	s := newTestServer(t)
	s.CommandLimiter = NewRateLimiter(1, 2)
	h := s.Handler()

	codes := make([]int, 3)
	for i := range codes {
		body := `{"type":"spawn_wildlife","id":"r` + strconv.Itoa(i) + `","params":{"species":"rabbit","x":"2","y":"2"}}`
		codes[i] = do(t, h, "POST", "/api/v1/command", body, testKey).Code
	}
	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestEventsFilter(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	s.Engine.Step()

	// Tick 0 has passed, so the command runs late and warns.
	rec := do(t, h, "POST", "/api/v1/command",
		`{"type":"spawn_wildlife","id":"e1","tick":0,"params":{"species":"rabbit","x":"5","y":"5"}}`, testKey)
	var ack struct {
		Late bool `json:"late"`
	}
	decode(t, rec, &ack)
	if !ack.Late {
		t.Error("command for a past tick not reported late")
	}
	s.Engine.Step()

	rec = do(t, h, "GET", "/api/v1/events?category="+engine.CatCommand, "", "")
	var evs []engine.Event
	decode(t, rec, &evs)
	if len(evs) == 0 {
		t.Fatal("no command events")
	}
	for _, ev := range evs {
		if ev.Category != engine.CatCommand {
			t.Errorf("leaked %s", ev.Category)
		}
	}
}

func TestStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&first); err != nil || first.Type != "snapshot" {
		t.Fatalf("first message = %+v, %v", first, err)
	}

	// The subscription is registered before the snapshot is written.
	s.Engine.Step()
	var frame TickFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if frame.Type != "tick" || frame.Tick != 0 || frame.Digest == "" {
		t.Errorf("frame = %+v", frame)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("OPTIONS", "/api/v1/command", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("origin not echoed")
	}
}
