package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/service"
	"github.com/fortuna/apollo/internal/store"
)

// GameQueries reads stored games and their plays
type GameQueries interface {
	GetGame(ctx context.Context, gameID int) (*service.GameSummary, error)
	ListGames(ctx context.Context, limit, offset int) ([]*store.Game, error)
	GetTeamGames(ctx context.Context, teamID string, limit int) ([]*store.Game, error)
	GetPlays(ctx context.Context, gameID int) ([]*pbp.Play, error)
}

// StatsQueries aggregates per-game statistics
type StatsQueries interface {
	GetGameSummary(ctx context.Context, gameID int) (*service.GameStats, error)
	GetGameBoxScore(ctx context.Context, gameID int) (*service.BoxScore, error)
}

// AnalyticsQueries serves win probability series and model tables
type AnalyticsQueries interface {
	WinProbability(ctx context.Context, gameID int) ([]service.WPPoint, error)
	EPTable(ctx context.Context, limit, offset int) ([]pbp.EPRow, error)
	WPTable(ctx context.Context, limit, offset int) ([]pbp.WPRow, error)
}

// RosterQueries reads teams and their players
type RosterQueries interface {
	GetTeams(ctx context.Context) ([]*store.Team, error)
	GetRoster(ctx context.Context, teamID string) (*store.Roster, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(ctx context.Context) error

// Handler contains dependencies for HTTP handlers
type Handler struct {
	games     GameQueries
	stats     StatsQueries
	analytics AnalyticsQueries
	rosters   RosterQueries
	checks    map[string]HealthChecker
}

// NewHandler creates a handler backed by the database services
func NewHandler(db *store.Database, checks map[string]HealthChecker) *Handler {
	return &Handler{
		games:     service.NewGameService(db),
		stats:     service.NewStatsService(db),
		analytics: service.NewAnalyticsService(db),
		rosters:   service.NewRosterService(db),
		checks:    checks,
	}
}

// HealthCheck runs every registered check. Any failure turns the response
// into a 503.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":  state,
		"service": "apollo",
		"checks":  results,
	})
}

// ListGames returns stored games, newest first. With ?team= only that
// team's games are listed.
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 200)
	offset := queryInt(r, "offset", 0, -1)

	var (
		games []*store.Game
		err   error
	)
	if team := r.URL.Query().Get("team"); team != "" {
		games, err = h.games.GetTeamGames(r.Context(), team, limit)
	} else {
		games, err = h.games.ListGames(r.Context(), limit, offset)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch games", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"count": len(games),
	})
}

// GetGame returns a specific game by ID
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathInt(w, r, "gameID")
	if !ok {
		return
	}

	game, err := h.games.GetGame(r.Context(), gameID)
	if err != nil {
		respondLookupError(w, "Game not found", err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

// GetGamePlays returns every stored play of a game in order
func (h *Handler) GetGamePlays(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathInt(w, r, "gameID")
	if !ok {
		return
	}

	plays, err := h.games.GetPlays(r.Context(), gameID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch plays", err)
		return
	}
	if len(plays) == 0 {
		respondError(w, http.StatusNotFound, "No plays for game", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"game_id": gameID,
		"plays":   plays,
		"count":   len(plays),
	})
}

// GetGameSummary returns team totals for a game
func (h *Handler) GetGameSummary(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathInt(w, r, "gameID")
	if !ok {
		return
	}

	summary, err := h.stats.GetGameSummary(r.Context(), gameID)
	if err != nil {
		respondLookupError(w, "Game summary not found", err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// GetGameBoxScore returns the box score for a game
func (h *Handler) GetGameBoxScore(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathInt(w, r, "gameID")
	if !ok {
		return
	}

	boxScore, err := h.stats.GetGameBoxScore(r.Context(), gameID)
	if err != nil {
		respondLookupError(w, "Box score not found", err)
		return
	}

	respondJSON(w, http.StatusOK, boxScore)
}

// GetWinProbability returns the post-play win probability series of a game
func (h *Handler) GetWinProbability(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathInt(w, r, "gameID")
	if !ok {
		return
	}

	series, err := h.analytics.WinProbability(r.Context(), gameID)
	if err != nil {
		respondLookupError(w, "Win probability not found", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"game_id": gameID,
		"series":  series,
	})
}

// GetTeams returns all known teams
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.rosters.GetTeams(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch teams", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"teams": teams})
}

// GetTeamRoster returns a team with its players
func (h *Handler) GetTeamRoster(w http.ResponseWriter, r *http.Request) {
	teamID := mux.Vars(r)["teamID"]

	roster, err := h.rosters.GetRoster(r.Context(), teamID)
	if err != nil {
		respondLookupError(w, "Team not found", err)
		return
	}

	respondJSON(w, http.StatusOK, roster)
}

// GetEPTable pages through the expected points training table
func (h *Handler) GetEPTable(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.EPTable(r.Context(), queryInt(r, "limit", 500, 5000), queryInt(r, "offset", 0, -1))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch EP table", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"rows": rows, "count": len(rows)})
}

// GetWPTable pages through the win probability training table
func (h *Handler) GetWPTable(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.WPTable(r.Context(), queryInt(r, "limit", 500, 5000), queryInt(r, "offset", 0, -1))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch WP table", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"rows": rows, "count": len(rows)})
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name, err)
		return 0, false
	}
	return v, true
}

// queryInt reads a non-negative query parameter. max < 0 means unbounded.
func queryInt(r *http.Request, name string, fallback, max int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || (max >= 0 && v > max) {
		return fallback
	}
	return v
}

func respondLookupError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, message, err)
		return
	}
	respondError(w, http.StatusInternalServerError, message, err)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
