package sportapp

import (
	"context"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/fortuna/apollo/internal/cache"
	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/store"
)

// RawCache stores raw API documents between runs
type RawCache interface {
	GetRaw(ctx context.Context, key string) ([]byte, bool, error)
	SetRaw(ctx context.Context, key string, body []byte) error
}

// Ingester fetches games and rosters concurrently. Games are independent,
// so each worker fetches and normalizes whole games.
type Ingester struct {
	client  *Client
	cache   RawCache
	workers int
	log     *logrus.Entry
}

// NewIngester creates an ingester. cache may be nil.
func NewIngester(client *Client, cache RawCache, workers int, log *logrus.Entry) *Ingester {
	if workers < 1 {
		workers = 1
	}
	return &Ingester{
		client:  client,
		cache:   cache,
		workers: workers,
		log:     log,
	}
}

type gameResult struct {
	plays []*pbp.Play
	notes []error
	err   error
}

// FetchGames returns the normalized rows of every game that could be
// fetched, grouped by game in the order of ids. Repeated ids are fetched
// once. Failed games are listed in
// the summary and left out.
func (i *Ingester) FetchGames(ctx context.Context, ids []int) ([]*pbp.Play, *pbp.RunSummary) {
	ids = pbp.UniqueGameIDs(ids)
	results := make([]gameResult, len(ids))
	i.fanOut(ctx, len(ids), func(idx int) {
		plays, notes, err := i.fetchGame(ctx, ids[idx])
		results[idx] = gameResult{plays: plays, notes: notes, err: err}
	})

	summary := &pbp.RunSummary{}
	var rows []*pbp.Play
	for idx, res := range results {
		if res.err != nil {
			i.log.WithFields(logrus.Fields{
				"game_id": ids[idx],
				"error":   res.err,
			}).Warn("skipping game")
			summary.SkipGame(ids[idx], res.err)
			continue
		}
		for _, note := range res.notes {
			i.log.WithField("game_id", ids[idx]).Info(note.Error())
			summary.Note(note)
		}
		rows = append(rows, res.plays...)
	}
	return rows, summary
}

// FetchGame fetches and normalizes a single game
func (i *Ingester) FetchGame(ctx context.Context, gameID int) ([]*pbp.Play, []error, error) {
	return i.fetchGame(ctx, gameID)
}

func (i *Ingester) fetchGame(ctx context.Context, gameID int) ([]*pbp.Play, []error, error) {
	id := strconv.Itoa(gameID)

	drives, drivesCached, err := i.document(ctx, EndpointDrives, id, func() ([]byte, error) {
		return i.client.FetchDrives(ctx, gameID)
	})
	if err != nil {
		return nil, nil, err
	}
	match, matchCached, err := i.document(ctx, EndpointMatch, id, func() ([]byte, error) {
		return i.client.FetchMatch(ctx, gameID)
	})
	if err != nil {
		return nil, nil, err
	}

	plays, notes, err := ParseGame(gameID, drives, match)
	if err != nil {
		return nil, nil, err
	}

	if !drivesCached {
		i.remember(ctx, EndpointDrives, id, drives)
	}
	if !matchCached {
		i.remember(ctx, EndpointMatch, id, match)
	}
	return plays, notes, nil
}

// FetchRosters loads team rosters. Teams whose document fails are listed
// in the summary and left out.
func (i *Ingester) FetchRosters(ctx context.Context, teamIDs []string) ([]*store.Roster, *pbp.RunSummary) {
	rosters := make([]*store.Roster, len(teamIDs))
	errs := make([]error, len(teamIDs))
	i.fanOut(ctx, len(teamIDs), func(idx int) {
		rosters[idx], errs[idx] = i.fetchRoster(ctx, teamIDs[idx])
	})

	summary := &pbp.RunSummary{}
	var out []*store.Roster
	for idx, err := range errs {
		if err != nil {
			i.log.WithFields(logrus.Fields{
				"team_id": teamIDs[idx],
				"error":   err,
			}).Warn("skipping team")
			summary.SkipTeam(teamIDs[idx], err)
			continue
		}
		out = append(out, rosters[idx])
	}
	return out, summary
}

func (i *Ingester) fetchRoster(ctx context.Context, teamID string) (*store.Roster, error) {
	body, cached, err := i.document(ctx, EndpointRoster, teamID, func() ([]byte, error) {
		return i.client.FetchRoster(ctx, teamID)
	})
	if err != nil {
		return nil, err
	}
	roster, err := ParseRoster(teamID, body)
	if err != nil {
		return nil, err
	}
	if !cached {
		i.remember(ctx, EndpointRoster, teamID, body)
	}
	return roster, nil
}

// fanOut runs work for indexes [0, n) on the worker pool
func (i *Ingester) fanOut(ctx context.Context, n int, work func(idx int)) {
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := i.workers
	if workers > n {
		workers = n
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				work(idx)
			}
		}()
	}

	for idx := 0; idx < n; idx++ {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
}

// document returns a cached body when present, fetching it otherwise
func (i *Ingester) document(ctx context.Context, endpoint, id string, fetch func() ([]byte, error)) ([]byte, bool, error) {
	if i.cache != nil {
		body, ok, err := i.cache.GetRaw(ctx, cache.Key(endpoint, id))
		if err != nil {
			i.log.WithError(err).WithField("endpoint", endpoint).Warn("raw cache read failed")
		} else if ok {
			return body, true, nil
		}
	}

	body, err := fetch()
	return body, false, err
}

func (i *Ingester) remember(ctx context.Context, endpoint, id string, body []byte) {
	if i.cache == nil {
		return
	}
	if err := i.cache.SetRaw(ctx, cache.Key(endpoint, id), body); err != nil {
		i.log.WithError(err).WithField("endpoint", endpoint).Warn("raw cache write failed")
	}
}
