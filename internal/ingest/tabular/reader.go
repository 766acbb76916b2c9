// Package tabular normalizes spreadsheet exports into play rows. The
// exports carry no home/away metadata, so the first team holding
// possession in a game is taken as home and the second as away.
package tabular

import (
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/fortuna/apollo/internal/pbp"
)

// row is the part every export shares
type row interface {
	gameID() string
	posteam() string
}

func decode[T row](source pbp.Source, r io.Reader) ([]T, error) {
	var rows []T
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read %s export: %w", source, err)
	}
	return rows, nil
}

// sides returns home and away per game id from possession order
func sides[T row](rows []T) map[string][2]string {
	out := make(map[string][2]string)
	for _, r := range rows {
		team := text(r.posteam())
		if team == "" {
			continue
		}
		s, ok := out[r.gameID()]
		switch {
		case !ok:
			out[r.gameID()] = [2]string{team, ""}
		case s[1] == "" && s[0] != team:
			out[r.gameID()] = [2]string{s[0], team}
		}
	}
	return out
}

func match(gameID int, home, away string) pbp.Match {
	if away == "" {
		away = "Unknown"
	}
	return pbp.Match{
		GameID:            gameID,
		Season:            "0",
		CompetitionName:   "0",
		CompetitionLeague: "0",
		Gender:            "Unknown",
		GameType:          "0",
		GameGroup:         "0",
		StreamURL:         "Unknown",
		HomeTeam:          home,
		AwayTeam:          away,
	}
}

// text trims a cell and blanks missing-value markers.
func text(s string) string {
	if isNA(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

func isNA(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NA", "NAN", "NULL", "NONE":
		return true
	}
	return false
}

// parseNullInt accepts integers and integral floats ("12.0").
func parseNullInt(s string) sql.NullInt64 {
	s = strings.TrimSpace(s)
	if isNA(s) {
		return sql.NullInt64{}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sql.NullInt64{Int64: i, Valid: true}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return sql.NullInt64{Int64: int64(f), Valid: true}
	}
	return sql.NullInt64{}
}

func parseInt(s string) int {
	return int(parseNullInt(s).Int64)
}

// parseFlag reads 0/1 and True/False cells; anything else is 0.
func parseFlag(s string) int {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return 1
		}
		return 0
	}
	if n := parseNullInt(s); n.Valid && n.Int64 != 0 {
		return 1
	}
	return 0
}

// gameIDs parses every row's game id. Rows without a usable id are
// recorded in the summary by file line and marked false.
func gameIDs[T row](source pbp.Source, rows []T, summary *pbp.RunSummary) ([]int, []bool) {
	ids := make([]int, len(rows))
	ok := make([]bool, len(rows))
	for i, r := range rows {
		id := parseNullInt(r.gameID())
		if !id.Valid {
			line := strconv.Itoa(i + 2)
			summary.SkipRow(line, fmt.Errorf("%s export line %s: invalid game_id %q", source, line, r.gameID()))
			continue
		}
		ids[i], ok[i] = int(id.Int64), true
	}
	return ids, ok
}
