// Package server is the HTTP and WebSocket surface: room CRUD, stats,
// history, health, and the /ws upgrade into the room engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/berryhq/berrypoker/internal/poker"
	"github.com/berryhq/berrypoker/internal/room"
	"github.com/berryhq/berrypoker/internal/store"
)

// Config carries the server's listen address and CORS policy.
type Config struct {
	Addr        string
	CORSOrigins []string
}

// Server serves the REST API and upgrades /ws connections.
type Server struct {
	cfg      Config
	logger   *log.Logger
	registry *room.Registry
	store    *store.Store
	upgrader websocket.Upgrader
	http     *http.Server
}

func New(cfg Config, registry *room.Registry, st *store.Store, logger *log.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger.WithPrefix("http"),
		registry: registry,
		store:    st,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return s.originAllowed(r.Header.Get("Origin")) },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleRoomInfo)
	mux.HandleFunc("GET /api/rooms/{id}/history", s.handleRoomHistory)
	mux.HandleFunc("GET /api/hands/{id}", s.handleHandDetail)
	mux.HandleFunc("GET /api/stats/{name}", s.handlePlayerStats)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws/{room_id}", s.handleWebSocket)

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.withCORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed handler for tests and embedding.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.cfg.CORSOrigins) == 0 || slices.Contains(s.cfg.CORSOrigins, "*") {
		return true
	}
	if origin == "" {
		return true
	}
	return slices.Contains(s.cfg.CORSOrigins, origin)
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			if slices.Contains(s.cfg.CORSOrigins, "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type createRoomRequest struct {
	Settings poker.Settings `json:"settings"`
}

type createRoomResponse struct {
	RoomID   string         `json:"room_id"`
	Settings poker.Settings `json:"settings"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Settings == (poker.Settings{}) {
		req.Settings = poker.DefaultSettings()
	}
	rm, err := s.registry.CreateRoom("", req.Settings)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, createRoomResponse{RoomID: rm.ID(), Settings: req.Settings})
}

func (s *Server) handleRoomInfo(w http.ResponseWriter, r *http.Request) {
	rm, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	info, err := rm.Info(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRoomHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hands, err := s.store.RoomHistory(r.PathValue("id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hands": hands})
}

func (s *Server) handleHandDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hand id")
		return
	}
	detail, err := s.store.HandDetail(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.PlayerStats(r.PathValue("name"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	board, err := s.store.Leaderboard(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": board})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rooms":  s.registry.Count(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	rm, err := s.registry.Get(r.PathValue("room_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade", "err", err)
		return
	}
	conn := NewConnection(ws, rm, s.logger)
	conn.Start()
}
