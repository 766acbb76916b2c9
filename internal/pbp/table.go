package pbp

import (
	"sort"
)

// span is the half-open row range [start, end) of one partition.
type span struct {
	start, end int
}

// gameSpans splits rows into contiguous per-game ranges. A game id that
// reappears after another game means the table lost its order.
func gameSpans(stage string, rows []*Play) ([]span, error) {
	var spans []span
	seen := make(map[int]bool)
	for i := 0; i < len(rows); {
		gameID := rows[i].GameID
		if seen[gameID] {
			return nil, violation(stage, gameID, "rows of the game are not contiguous")
		}
		seen[gameID] = true
		j := i + 1
		for j < len(rows) && rows[j].GameID == gameID {
			j++
		}
		spans = append(spans, span{i, j})
		i = j
	}
	return spans, nil
}

// halfSpans splits one game's rows into contiguous per-half ranges and
// rejects halves that go backwards.
func halfSpans(stage string, game []*Play) ([]span, error) {
	var spans []span
	for i := 0; i < len(game); {
		j := i + 1
		for j < len(game) && game[j].Half == game[i].Half {
			j++
		}
		if j < len(game) && game[j].Half < game[i].Half {
			return nil, violation(stage, game[i].GameID, "half %d follows half %d", game[j].Half, game[i].Half)
		}
		spans = append(spans, span{i, j})
		i = j
	}
	return spans, nil
}

// forEachGame runs fn over every game partition of rows.
func forEachGame(stage string, rows []*Play, fn func(game []*Play) error) error {
	spans, err := gameSpans(stage, rows)
	if err != nil {
		return err
	}
	for _, s := range spans {
		if err := fn(rows[s.start:s.end]); err != nil {
			return err
		}
	}
	return nil
}

// forEachHalf runs fn over every (game, half) partition of rows.
func forEachHalf(stage string, rows []*Play, fn func(half []*Play) error) error {
	return forEachGame(stage, rows, func(game []*Play) error {
		spans, err := halfSpans(stage, game)
		if err != nil {
			return err
		}
		for _, s := range spans {
			if err := fn(game[s.start:s.end]); err != nil {
				return err
			}
		}
		return nil
	})
}

// requireIndexed checks that a game carries the numbering the indexer
// produces. Every stage after indexing relies on it.
func requireIndexed(stage string, game []*Play) error {
	if len(game) == 0 {
		return nil
	}
	for i, p := range game {
		if p.PlayID != i+1 {
			return violation(stage, p.GameID, "play_id %d at row %d, table is not indexed in order", p.PlayID, i+1)
		}
		if i > 0 && p.DriveID < game[i-1].DriveID {
			return violation(stage, p.GameID, "drive_id decreases at play %d", p.PlayID)
		}
	}
	return nil
}

// backfill carries the next present value backwards over absent entries and
// marks the filled entries present.
func backfill[T any](vals []T, present []bool) {
	var (
		last T
		have bool
	)
	for i := len(vals) - 1; i >= 0; i-- {
		if present[i] {
			last, have = vals[i], true
			continue
		}
		if have {
			vals[i], present[i] = last, true
		}
	}
}

// forwardfill carries the previous non-null value forward over null rows.
func forwardfill[T any](rows []*Play, get func(*Play) (T, bool), set func(*Play, T)) {
	var (
		last T
		have bool
	)
	for _, p := range rows {
		if v, ok := get(p); ok {
			last, have = v, true
			continue
		}
		if have {
			set(p, last)
		}
	}
}

// Ordering is a source's raw sort order ahead of indexing.
type Ordering int

const (
	// OrderReverseDrive sorts drives and plays within a half descending,
	// which is how the sportapp API lists them.
	OrderReverseDrive Ordering = iota
	// OrderChronological sorts drives and plays ascending.
	OrderChronological
)

// SortRaw establishes the stable total order the indexer expects:
// game ascending, half ascending, then drive and play within the drive
// according to the source ordering.
func SortRaw(rows []*Play, order Ordering) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.GameID != b.GameID {
			return a.GameID < b.GameID
		}
		if a.Half != b.Half {
			return a.Half < b.Half
		}
		if a.Raw.DriveIDHalf != b.Raw.DriveIDHalf {
			if order == OrderReverseDrive {
				return a.Raw.DriveIDHalf > b.Raw.DriveIDHalf
			}
			return a.Raw.DriveIDHalf < b.Raw.DriveIDHalf
		}
		if a.Raw.PlayIDDrive != b.Raw.PlayIDDrive {
			if order == OrderReverseDrive {
				return a.Raw.PlayIDDrive > b.Raw.PlayIDDrive
			}
			return a.Raw.PlayIDDrive < b.Raw.PlayIDDrive
		}
		return false
	})
}

// UniqueGameIDs drops repeated ids, keeping first occurrences in order.
func UniqueGameIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// SplitGames returns each game's rows as its own slice, keeping row order.
func SplitGames(rows []*Play) [][]*Play {
	var games [][]*Play
	index := make(map[int]int)
	for _, p := range rows {
		i, ok := index[p.GameID]
		if !ok {
			i = len(games)
			index[p.GameID] = i
			games = append(games, nil)
		}
		games[i] = append(games[i], p)
	}
	return games
}
