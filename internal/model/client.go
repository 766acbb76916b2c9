// Package model talks to the EP/WP scoring service. The service takes
// feature rows and answers with probabilities aligned to them by position.
package model

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/fortuna/apollo/internal/pbp"
)

const (
	epPath = "/predict/ep"
	wpPath = "/predict/wp"
)

type predictRequest struct {
	Rows []pbp.Features `json:"rows"`
}

type epResponse struct {
	Probabilities []*epProbabilities `json:"probabilities"`
}

// epProbabilities is one scored row. A null row or "valid": false marks a
// row the model could not score; otherwise the five classes must sum to 1.
type epProbabilities struct {
	pbp.EPProbabilities
	Valid *bool `json:"valid"`
}

// probabilitySlack is how far a class vector may drift from summing to 1.
const probabilitySlack = 1e-3

type wpResponse struct {
	WP []*float64 `json:"wp"`
}

// Client implements pbp.Predictor over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *logrus.Entry
}

var _ pbp.Predictor = (*Client)(nil)

// NewClient creates a model client for the service at baseURL
func NewClient(baseURL string, timeout time.Duration, log *logrus.Entry) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "model-service",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		log:        log,
	}
}

// PredictEP returns next-score class probabilities per row. Rows the model
// cannot score come back invalid.
func (c *Client) PredictEP(ctx context.Context, features []pbp.Features) ([]pbp.EPProbabilities, error) {
	if len(features) == 0 {
		return nil, nil
	}
	var resp epResponse
	if err := c.post(ctx, epPath, features, &resp); err != nil {
		return nil, err
	}
	if len(resp.Probabilities) != len(features) {
		return nil, fmt.Errorf("ep model returned %d rows for %d inputs", len(resp.Probabilities), len(features))
	}

	out := make([]pbp.EPProbabilities, len(resp.Probabilities))
	for i, row := range resp.Probabilities {
		if row == nil || (row.Valid != nil && !*row.Valid) {
			continue
		}
		p := row.EPProbabilities
		if total := p.Touchdown + p.OppTouchdown + p.Safety + p.OppSafety + p.NoScore; math.Abs(total-1) > probabilitySlack {
			return nil, &pbp.MalformedResponseError{
				ID:       fmt.Sprintf("row %d", i),
				Endpoint: epPath,
				Err:      fmt.Errorf("class probabilities sum to %.4f", total),
			}
		}
		p.Valid = true
		out[i] = p
	}
	return out, nil
}

// PredictWP returns the possessing team's win probability per row. Rows the
// model cannot score come back null.
func (c *Client) PredictWP(ctx context.Context, features []pbp.Features) ([]sql.NullFloat64, error) {
	if len(features) == 0 {
		return nil, nil
	}
	var resp wpResponse
	if err := c.post(ctx, wpPath, features, &resp); err != nil {
		return nil, err
	}
	if len(resp.WP) != len(features) {
		return nil, fmt.Errorf("wp model returned %d rows for %d inputs", len(resp.WP), len(features))
	}

	out := make([]sql.NullFloat64, len(resp.WP))
	for i, wp := range resp.WP {
		if wp != nil {
			out[i] = sql.NullFloat64{Float64: *wp, Valid: true}
		}
	}
	return out, nil
}

// HealthCheck pings the service
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, features []pbp.Features, out interface{}) error {
	body, err := json.Marshal(predictRequest{Rows: features})
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	start := time.Now()
	respBody, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
		}
		return data, nil
	})
	if err != nil {
		return fmt.Errorf("model request %s failed: %w", path, err)
	}

	c.log.WithFields(logrus.Fields{
		"path":     path,
		"rows":     len(features),
		"duration": time.Since(start),
	}).Debug("model scored rows")

	if err := json.Unmarshal(respBody.([]byte), out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
