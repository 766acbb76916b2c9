package sportapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/fortuna/apollo/internal/pbp"
)

// Endpoints of the public SportApp API
const (
	EndpointDrives = "match-drives"
	EndpointMatch  = "match-v1"
	EndpointRoster = "teams-players"

	DefaultBaseURL = "https://main-api-1.sportapp.fi/api/v1/public"
)

// ClientConfig configures the API client
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	RatePerSec float64
	Timeout    time.Duration
}

// Client fetches raw documents from the SportApp API. Requests share one
// rate limiter and one circuit breaker.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        *logrus.Entry
}

// statusError is a non-2xx answer
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// NewClient creates a SportApp client
func NewClient(cfg ClientConfig, log *logrus.Entry) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sportapp-api",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// 4xx answers are per-id failures.
			var se *statusError
			if errors.As(err, &se) {
				return se.Code < 500
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("sportapp circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    breaker,
		log:        log,
	}
}

// FetchDrives returns the raw drives document of a game
func (c *Client) FetchDrives(ctx context.Context, gameID int) ([]byte, error) {
	return c.fetch(ctx, "game", EndpointDrives, "id", strconv.Itoa(gameID))
}

// FetchMatch returns the raw match metadata document of a game
func (c *Client) FetchMatch(ctx context.Context, gameID int) ([]byte, error) {
	return c.fetch(ctx, "game", EndpointMatch, "id", strconv.Itoa(gameID))
}

// FetchRoster returns the raw roster document of a team
func (c *Client) FetchRoster(ctx context.Context, teamID string) ([]byte, error) {
	return c.fetch(ctx, "team", EndpointRoster, "team", teamID)
}

func (c *Client) fetch(ctx context.Context, kind, endpoint, param, id string) ([]byte, error) {
	q := url.Values{}
	q.Set(param, id)
	q.Set("apikey", c.apiKey)
	target := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, q.Encode())

	body, err := c.breaker.Execute(func() (interface{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.get(ctx, target)
	})
	if err != nil {
		return nil, &pbp.FetchError{Kind: kind, ID: id, Err: fmt.Errorf("%s: %w", endpoint, err)}
	}

	c.log.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"id":       id,
	}).Debug("fetched document")
	return body.([]byte), nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{Code: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}
