package websocket

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fortuna/apollo/internal/publisher"
)

// Server represents the WebSocket server
type Server struct {
	port   string
	server *http.Server
	hub    *Hub
	relay  *Relay
	cancel context.CancelFunc
	log    *logrus.Entry
}

// NewServer creates a websocket server relaying the enriched game stream
func NewServer(redisClient *redis.Client, log *logrus.Entry) *Server {
	hub := NewHub(log)
	return &Server{
		hub:   hub,
		relay: NewRelay(redisClient, publisher.EnrichedStream, hub),
		log:   log,
	}
}

// Start starts the hub, the relay and the listener. It blocks until the
// listener stops.
func (s *Server) Start(port string) error {
	s.port = port

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.hub.Run()
	go func() {
		if err := s.relay.Run(ctx); err != nil {
			s.log.WithError(err).Error("relay stopped")
		}
	}()

	mux := httpHandler(s.hub)
	mux.HandleFunc("/ws/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: mux,
	}

	s.log.WithField("port", port).Info("websocket server listening")
	return s.server.ListenAndServe()
}

func httpHandler(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/games", hub.ServeWS)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "healthy", "clients": %d}`, s.hub.ClientCount())
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
		s.hub.Stop()
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
