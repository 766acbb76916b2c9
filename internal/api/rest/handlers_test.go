package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/apollo/internal/backfill"
	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/service"
	"github.com/fortuna/apollo/internal/store"
)

type fakeGames struct {
	games []*store.Game
	team  string
}

func (f *fakeGames) GetGame(_ context.Context, gameID int) (*service.GameSummary, error) {
	for _, g := range f.games {
		if g.GameID == gameID {
			return &service.GameSummary{Game: g}, nil
		}
	}
	return nil, fmt.Errorf("game %d: %w", gameID, store.ErrNotFound)
}

func (f *fakeGames) ListGames(_ context.Context, limit, offset int) ([]*store.Game, error) {
	if offset >= len(f.games) {
		return nil, nil
	}
	out := f.games[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeGames) GetTeamGames(_ context.Context, teamID string, limit int) ([]*store.Game, error) {
	f.team = teamID
	return f.games[:1], nil
}

func (f *fakeGames) GetPlays(_ context.Context, gameID int) ([]*pbp.Play, error) {
	return nil, nil
}

type fakeAnalytics struct{}

func (fakeAnalytics) WinProbability(_ context.Context, gameID int) ([]service.WPPoint, error) {
	if gameID != 5 {
		return nil, fmt.Errorf("game %d: %w", gameID, store.ErrNotFound)
	}
	return []service.WPPoint{{PlayID: 1, HomeWP: 0.6, AwayWP: 0.4}}, nil
}

func (fakeAnalytics) EPTable(context.Context, int, int) ([]pbp.EPRow, error) {
	return nil, errors.New("connection refused")
}

func (fakeAnalytics) WPTable(context.Context, int, int) ([]pbp.WPRow, error) {
	return []pbp.WPRow{{GameID: 5}}, nil
}

type fakeQueue struct {
	requests []backfill.Request
}

func (f *fakeQueue) Enqueue(_ context.Context, req backfill.Request) (*backfill.Job, error) {
	if req.Source != "" && req.Source != pbp.SourceSportApp {
		return nil, fmt.Errorf("source %s cannot be fetched", req.Source)
	}
	f.requests = append(f.requests, req)
	return &backfill.Job{JobID: 1, JobType: backfill.JobTypeGames, Status: backfill.JobStatusQueued}, nil
}

func (f *fakeQueue) GetStatus(context.Context) (*backfill.StatusSummary, error) {
	return &backfill.StatusSummary{
		ActiveJob: &backfill.Job{
			JobID:         2,
			Status:        backfill.JobStatusRunning,
			StatusMessage: sql.NullString{String: "Fetching games", Valid: true},
		},
	}, nil
}

func (f *fakeQueue) GetJob(_ context.Context, jobID int64) (*backfill.Job, error) {
	if jobID == 2 {
		return &backfill.Job{JobID: 2}, nil
	}
	return nil, nil
}

func testRouter(games *fakeGames, queue *fakeQueue, checks map[string]HealthChecker) http.Handler {
	h := &Handler{games: games, analytics: fakeAnalytics{}, checks: checks}
	return NewRouter(h, queue)
}

func serve(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return rec, payload
}

func TestGames(t *testing.T) {
	games := &fakeGames{games: []*store.Game{{GameID: 5}, {GameID: 6}, {GameID: 7}}}
	router := testRouter(games, &fakeQueue{}, nil)

	rec, body := serve(t, router, "GET", "/api/v1/games?limit=2&offset=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])

	_, body = serve(t, router, "GET", "/api/v1/games?team=10", "")
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, "10", games.team)

	rec, body = serve(t, router, "GET", "/api/v1/games/6", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(6), body["game"].(map[string]interface{})["game_id"])

	rec, _ = serve(t, router, "GET", "/api/v1/games/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = serve(t, router, "GET", "/api/v1/games/5/plays", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalytics(t *testing.T) {
	router := testRouter(&fakeGames{}, &fakeQueue{}, nil)

	rec, body := serve(t, router, "GET", "/api/v1/games/5/wp", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	series := body["series"].([]interface{})
	require.Len(t, series, 1)
	assert.Equal(t, 0.6, series[0].(map[string]interface{})["home_wp"])

	rec, _ = serve(t, router, "GET", "/api/v1/games/8/wp", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = serve(t, router, "GET", "/api/v1/tables/ep", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "connection refused", body["details"])

	rec, body = serve(t, router, "GET", "/api/v1/tables/wp?limit=-3", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
}

func TestIngest(t *testing.T) {
	queue := &fakeQueue{}
	router := testRouter(&fakeGames{}, queue, nil)

	rec, body := serve(t, router, "POST", "/api/v1/ingest", `{"game_ids": [5, 6], "game_id": 7}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, float64(1), body["job"].(map[string]interface{})["job_id"])
	require.Len(t, queue.requests, 1)
	assert.Equal(t, []int{5, 6, 7}, queue.requests[0].GameIDs)

	rec, _ = serve(t, router, "POST", "/api/v1/ingest", `{"source": "hudl", "game_ids": [1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, router, "POST", "/api/v1/ingest", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, body = serve(t, router, "GET", "/api/v1/ingest/status", "")
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, "Fetching games", body["message"])
	assert.Empty(t, body["history"])

	rec, _ = serve(t, router, "GET", "/api/v1/ingest/jobs/2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = serve(t, router, "GET", "/api/v1/ingest/jobs/3", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	router := testRouter(&fakeGames{}, &fakeQueue{}, map[string]HealthChecker{
		"postgres": func(context.Context) error { return nil },
	})
	rec, body := serve(t, router, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	router = testRouter(&fakeGames{}, &fakeQueue{}, map[string]HealthChecker{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	rec, body = serve(t, router, "GET", "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "dial tcp: refused", body["checks"].(map[string]interface{})["redis"])
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec, body := serve(t, handler, "GET", "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "boom", body["details"])
}
