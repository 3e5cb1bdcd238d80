// Package api serves the village over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/command"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/observe"
	"github.com/talgya/hamlet/internal/persistence"
)

const (
	maxStreamConns = 8
	maxBodyBytes   = 64 << 10
	maxSpeed       = 1000
	shutdownGrace  = 5 * time.Second
)

// Server serves the engine's published state over HTTP.
type Server struct {
	Engine   *engine.Engine
	Events   *engine.MemorySink // recent events; nil falls back to DB
	DB       *persistence.DB    // optional journal
	Metrics  *observe.Metrics   // optional; enables request metrics
	Hub      *Hub
	Addr     string
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	CommandLimiter *RateLimiter

	started  time.Time
	upgrader websocket.Upgrader
}

// NewServer builds a server around e. It subscribes a new Hub to e.
func NewServer(e *engine.Engine, addr, adminKey string) *Server {
	s := &Server{
		Engine:         e,
		Hub:            NewHub(),
		Addr:           addr,
		AdminKey:       adminKey,
		CommandLimiter: NewRateLimiter(0, 1),
		started:        time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 << 10,
			WriteBufferSize: 64 << 10,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.Hub.Attach(e)
	return s
}

// Handler returns the routed handler with CORS and request metrics applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/records", s.handleRecords)
	mux.HandleFunc("GET /api/v1/commands", s.handleKinds)
	mux.HandleFunc("GET /api/v1/person/{id}", s.handlePerson)
	mux.HandleFunc("GET /api/v1/family/{id}", s.handleFamily)
	mux.HandleFunc("GET /api/v1/building/{id}", s.handleBuilding)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)
	mux.HandleFunc("GET /api/v1/speed", s.handleSpeed)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("POST /api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/command", s.adminOnly(RateLimitMiddleware(s.CommandLimiter, s.handleCommand)))

	var h http.Handler = corsMiddleware(mux)
	if s.Metrics != nil {
		h = observe.Middleware(s.Metrics)(h)
	}
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "")

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	s.Hub.Close()
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	slog.Info("HTTP API stopped")
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.AdminKey
}

// adminOnly requires the admin bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Engine.Snapshot()
	animals, built := 0, 0
	for _, a := range snap.Wildlife {
		if a.Alive {
			animals++
		}
	}
	for _, b := range snap.Buildings {
		if b.Constructed {
			built++
		}
	}
	writeJSON(w, map[string]any{
		"village":          snap.Village.Name,
		"tick":             snap.Tick,
		"digest":           snap.Digest,
		"speed":            s.Engine.Speed(),
		"paused":           s.Engine.Speed() == 0,
		"pending_commands": s.Engine.Scheduler().Pending(),
		"families":         len(snap.Families),
		"population":       snap.Village.Living,
		"wildlife":         animals,
		"buildings":        len(snap.Buildings),
		"constructed":      built,
		"stock":            snap.Village.Stocks,
		"stats":            snap.Stats,
		"subscribers":      s.Hub.Subscribers(),
		"uptime":           time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Engine.Snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	category := q.Get("category")

	if s.Events == nil {
		if s.DB == nil {
			http.Error(w, "no event source", http.StatusServiceUnavailable)
			return
		}
		events, err := s.DB.RecentEvents(category, limit)
		if err != nil {
			slog.Error("load events", "error", err)
			http.Error(w, "events unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, events)
		return
	}

	var events []engine.Event
	if since := q.Get("since"); since != "" {
		tick, err := strconv.ParseUint(since, 10, 64)
		if err != nil {
			http.Error(w, "since must be a tick", http.StatusBadRequest)
			return
		}
		events = s.Events.Since(tick)
	} else {
		events = s.Events.Events()
	}
	if category != "" {
		filtered := events[:0]
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if id := q.Get("id"); id != "" {
		rec, ok := s.Engine.Scheduler().Record(engine.CommandID(id))
		if !ok {
			http.Error(w, "no such record", http.StatusNotFound)
			return
		}
		writeJSON(w, rec)
		return
	}
	raw := q.Get("tick")
	if raw == "" {
		http.Error(w, "tick or id is required", http.StatusBadRequest)
		return
	}
	tick, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "tick must be a non-negative integer", http.StatusBadRequest)
		return
	}
	recs := s.Engine.Scheduler().RecordsAt(tick)
	if len(recs) == 0 && s.DB != nil {
		if recs, err = s.DB.Records(tick); err != nil {
			slog.Error("load records", "tick", tick, "error", err)
			http.Error(w, "records unavailable", http.StatusInternalServerError)
			return
		}
	}
	if recs == nil {
		recs = []engine.ExecutionRecord{}
	}
	writeJSON(w, recs)
}

func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, command.Kinds())
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) handlePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, ok := s.Engine.Snapshot().Person(agents.PersonID(id))
	if !ok {
		http.Error(w, "person not found", http.StatusNotFound)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleFamily(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, ok := s.Engine.Snapshot().Family(id)
	if !ok {
		http.Error(w, "family not found", http.StatusNotFound)
		return
	}
	writeJSON(w, f)
}

func (s *Server) handleBuilding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, ok := s.Engine.Snapshot().Building(id)
	if !ok {
		http.Error(w, "building not found", http.StatusNotFound)
		return
	}
	writeJSON(w, b)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed *float64 `json:"speed"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Speed == nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if v := *req.Speed; math.IsNaN(v) || v < 0 || v > maxSpeed {
			http.Error(w, fmt.Sprintf("speed must be 0-%d", maxSpeed), http.StatusBadRequest)
			return
		}
		s.Engine.SetSpeed(*req.Speed)
		slog.Info("speed changed", "speed", *req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Engine.Speed()})
}

// handleCommand decodes a command envelope and schedules it. A missing id
// is filled with a fresh one; a missing tick means the next tick to run.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if _, ok := raw["id"]; !ok {
		raw["id"] = string(engine.NewCommandID())
	}
	if _, ok := raw["tick"]; !ok {
		raw["tick"] = s.Engine.Scheduler().CurrentTick()
	}
	if body, err = json.Marshal(raw); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	cmd, err := command.DecodeJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	late, err := s.Engine.Submit(cmd)
	switch {
	case errors.Is(err, engine.ErrDuplicateCommand):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return
	}
	slog.Info("command accepted", "id", cmd.ID(), "kind", cmd.Kind(), "player", cmd.Player(), "tick", cmd.TargetTick(), "late", late)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":   cmd.ID(),
		"kind": cmd.Kind(),
		"tick": cmd.TargetTick(),
		"late": late,
	})
}

// handleStream upgrades to a websocket. The first message is the current
// snapshot; every tick after that sends a TickFrame.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.Hub.Subscribers() >= maxStreamConns {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	subID, frames := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(subID)
	slog.Info("stream client connected", "sub_id", subID)

	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(map[string]any{"type": "snapshot", "snapshot": s.Engine.Snapshot()}); err != nil {
		return
	}

	// Reader: the stream is one-way, but reading notices a closed client.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case b, ok := <-frames:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"), time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		case <-gone:
			slog.Info("stream client disconnected", "sub_id", subID)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
