package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/botarena/game/config"
	"github.com/wricardo/botarena/game/engine"
	"github.com/wricardo/botarena/game/match"
	"github.com/wricardo/botarena/game/service"
	"github.com/wricardo/botarena/game/session"
	"github.com/wricardo/botarena/transport/websocket"
)

// maxOrdersBody bounds an orders submission
const maxOrdersBody = 1 << 20

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, in which case /ws is
// not served.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("", s.handleHealth).Methods("GET")

	// Matches
	api.HandleFunc("/matches", s.handleCreateMatch).Methods("POST")
	api.HandleFunc("/matches", s.handleListMatches).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleGetMatch).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleDeleteMatch).Methods("DELETE")
	api.HandleFunc("/matches/{id}/advance", s.handleAdvance).Methods("POST")
	api.HandleFunc("/matches/{id}/replay", s.handleReplay).Methods("GET")

	// Seats
	api.HandleFunc("/matches/{id}/players/{player:[0-9]+}/state", s.handlePlayerState).Methods("GET")
	api.HandleFunc("/matches/{id}/players/{player:[0-9]+}/orders", s.handleSubmitOrders).Methods("POST")
	api.HandleFunc("/matches/{id}/players/{player:[0-9]+}/kill", s.handleKill).Methods("POST")

	// Bot matches
	api.HandleFunc("/runs", s.handleRun).Methods("POST")

	// Maps and results
	api.HandleFunc("/maps", s.handleListMaps).Methods("GET")
	api.HandleFunc("/maps/{name}", s.handleGetMap).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/rules", s.handleRules).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The websocket upgrade needs the raw writer
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var mapErr *engine.MapError
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrMapNotFound):
		return http.StatusNotFound

	case errors.Is(err, engine.ErrUnknownVariant),
		errors.Is(err, engine.ErrUnknownPlayer),
		errors.Is(err, engine.ErrOutOfBounds),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, session.ErrPlayerCount),
		errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, config.ErrInvalidMap),
		errors.Is(err, match.ErrBotCount),
		errors.Is(err, match.ErrNoBot),
		errors.As(err, &mapErr):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrNotYourTurn),
		errors.Is(err, service.ErrPlayerEliminated),
		errors.Is(err, service.ErrAutomatedMatch),
		errors.Is(err, service.ErrMatchInProgress),
		errors.Is(err, engine.ErrGameFinished),
		errors.Is(err, engine.ErrNoActiveTurn):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// decodeOptional decodes a JSON body into dst. An empty body is accepted.
func decodeOptional(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func playerParam(r *http.Request) (int, error) {
	player, err := strconv.Atoi(mux.Vars(r)["player"])
	if err != nil {
		return 0, fmt.Errorf("%w: bad player index", service.ErrInvalidRequest)
	}
	return player, nil
}

func limitParam(r *http.Request, def int) int {
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		return l
	}
	return def
}

// Match Handlers

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMatchRequest
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.CreateMatch(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.service.ListMatches(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	if game := query.Get("game"); game != "" {
		filtered := make([]*service.MatchInfo, 0, len(matches))
		for _, m := range matches {
			if string(m.Game) == game {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}

	total := len(matches)
	if limit := limitParam(r, total); limit < total {
		// Newest matches are last
		matches = matches[total-limit:]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(matches),
		"total":   total,
		"matches": matches,
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetMatch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	if err := s.service.DeleteMatch(r.Context(), matchID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Match %s deleted", matchID),
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.AdvanceTurn(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	replay, err := s.service.Replay(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, replay)
}

// Seat Handlers

// handlePlayerState returns the state exactly as a bot reads it on stdin
func (s *Server) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	player, err := playerParam(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	state, err := s.service.PlayerState(r.Context(), mux.Vars(r)["id"], player)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, state+"\n")
}

// handleSubmitOrders accepts either {"orders": [...]} or a text/plain body
// with one order per line, as a bot would print them.
func (s *Server) handleSubmitOrders(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]
	player, err := playerParam(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var orders []string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxOrdersBody))
		if err != nil {
			respondError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}
		for _, line := range strings.Split(string(body), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				orders = append(orders, line)
			}
		}
	} else {
		var req struct {
			Orders []string `json:"orders"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxOrdersBody)).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		orders = req.Orders
	}

	result, err := s.service.SubmitOrders(r.Context(), matchID, player, orders)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Debug().
		Str("match_id", matchID).
		Int("player", player).
		Int("valid", len(result.Valid)).
		Int("invalid", len(result.Invalid)).
		Int("ignored", len(result.Ignored)).
		Msg("orders submitted")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	player, err := playerParam(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	info, err := s.service.KillPlayer(r.Context(), mux.Vars(r)["id"], player)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// Bot Match Handlers

// handleRun plays a whole bot match before responding
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req service.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.RunBots(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Map and Result Handlers

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	variant := engine.Variant(r.URL.Query().Get("game"))

	maps, err := s.service.ListMaps(r.Context(), variant)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, maps)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	variant := engine.Variant(r.URL.Query().Get("game"))
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".map")

	m, err := s.service.LoadMap(r.Context(), variant, name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	variant := engine.Variant(r.URL.Query().Get("game"))

	board, err := s.service.Leaderboard(r.Context(), variant, limitParam(r, 0))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, board)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	variant := engine.Variant(r.URL.Query().Get("game"))
	if variant == "" {
		variant = engine.Life
	}

	rules := engine.Rules(variant)
	if rules == "" {
		respondServiceError(w, fmt.Errorf("%w: %q", engine.ErrUnknownVariant, variant))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"game":  string(variant),
		"rules": rules,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "spectating is disabled", http.StatusNotFound)
		return
	}

	matchID := r.URL.Query().Get("match")
	if matchID == "" {
		http.Error(w, "match parameter required", http.StatusBadRequest)
		return
	}

	info, err := s.service.GetMatch(r.Context(), matchID)
	if err != nil {
		http.Error(w, "Invalid match", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, matchID, info)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
