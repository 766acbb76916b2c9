package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// Server represents the REST API server
type Server struct {
	port   string
	server *http.Server
}

// NewServer creates a new REST API server. jobs may be nil, in which case
// the ingest routes are not mounted.
func NewServer(port string, handler *Handler, jobs JobQueue) *Server {
	return &Server{
		port: port,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: NewRouter(handler, jobs),
		},
	}
}

// NewRouter builds the route table
func NewRouter(handler *Handler, jobs JobQueue) *mux.Router {
	router := mux.NewRouter()

	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware)

	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Games
	api.HandleFunc("/games", handler.ListGames).Methods("GET")
	api.HandleFunc("/games/{gameID:[0-9]+}", handler.GetGame).Methods("GET")
	api.HandleFunc("/games/{gameID:[0-9]+}/plays", handler.GetGamePlays).Methods("GET")
	api.HandleFunc("/games/{gameID:[0-9]+}/summary", handler.GetGameSummary).Methods("GET")
	api.HandleFunc("/games/{gameID:[0-9]+}/boxscore", handler.GetGameBoxScore).Methods("GET")
	api.HandleFunc("/games/{gameID:[0-9]+}/wp", handler.GetWinProbability).Methods("GET")

	// Teams
	api.HandleFunc("/teams", handler.GetTeams).Methods("GET")
	api.HandleFunc("/teams/{teamID}/roster", handler.GetTeamRoster).Methods("GET")

	// Model tables
	api.HandleFunc("/tables/ep", handler.GetEPTable).Methods("GET")
	api.HandleFunc("/tables/wp", handler.GetWPTable).Methods("GET")

	if jobs != nil {
		ingest := NewIngestHandler(jobs)
		api.HandleFunc("/ingest", ingest.HandleIngestRequest).Methods("POST")
		api.HandleFunc("/ingest/status", ingest.HandleIngestStatus).Methods("GET")
		api.HandleFunc("/ingest/jobs/{jobID:[0-9]+}", ingest.HandleGetJob).Methods("GET")
	}

	return router
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
