package sportapp

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fortuna/apollo/internal/pbp"
)

const unknown = "Unknown"

// ParseGame flattens a game's drives and match documents into plays in
// source order. notes carries recovered MissingFieldErrors.
func ParseGame(gameID int, drivesBody, matchBody []byte) (plays []*pbp.Play, notes []error, err error) {
	match, notes, err := ParseMatch(gameID, matchBody)
	if err != nil {
		return nil, nil, err
	}
	plays, err = ParseDrives(gameID, drivesBody, match)
	if err != nil {
		return nil, nil, err
	}
	return plays, notes, nil
}

// ParseMatch reads the game metadata. A missing result block scores the
// game 0-0 and is reported as a note.
func ParseMatch(gameID int, body []byte) (pbp.Match, []error, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return pbp.Match{}, nil, &pbp.MalformedResponseError{ID: strconv.Itoa(gameID), Endpoint: EndpointMatch, Err: decodeFailure(body, err)}
	}
	data, ok := doc.(map[string]interface{})
	if !ok {
		return pbp.Match{}, nil, &pbp.MissingGameDataError{GameID: gameID, Reason: "match document is not an object"}
	}

	series := extractMap(data, "series")
	match := pbp.Match{
		GameID:            gameID,
		Season:            extractTextOr(series, "seasonName", "0"),
		CompetitionID:     extractInt(series, "id"),
		CompetitionName:   extractTextOr(series, "region", "0"),
		CompetitionLeague: extractTextOr(series, "level", "0"),
		Gender:            extractTextOr(series, "gender", unknown),
		GameType:          extractTextOr(series, "phase", "0"),
		GameGroupID:       extractInt(series, "groupId"),
		GameGroup:         extractTextOr(series, "groupName", "0"),
		StreamURL:         unknown,
		HomeTeam:          extractTextOr(extractMap(data, "home"), "id", unknown),
		AwayTeam:          extractTextOr(extractMap(data, "away"), "id", unknown),
	}

	if streams := extractArray(data, "streams"); len(streams) > 0 {
		if first, ok := streams[0].(map[string]interface{}); ok {
			match.StreamURL = extractTextOr(first, "url", unknown)
		}
	}

	var notes []error
	result, ok := data["result"].(map[string]interface{})
	if !ok {
		notes = append(notes, &pbp.MissingFieldError{GameID: gameID, Field: "result"})
	} else {
		details := extractMap(result, "details")
		match.HomeScore = extractInt(details, "points_total_home")
		match.AwayScore = extractInt(details, "points_total_away")
	}

	return match, notes, nil
}

// ParseDrives flattens halves, drives and plays. Halves are numbered from
// the document's num + 1, drives and plays from their 1-based position.
func ParseDrives(gameID int, body []byte, match pbp.Match) ([]*pbp.Play, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &pbp.MalformedResponseError{ID: strconv.Itoa(gameID), Endpoint: EndpointDrives, Err: decodeFailure(body, err)}
	}
	halves, ok := doc.([]interface{})
	if !ok {
		return nil, &pbp.MissingGameDataError{GameID: gameID, Reason: "drives document is not a list"}
	}

	var plays []*pbp.Play
	for _, h := range halves {
		half, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		halfNum := extractInt(half, "num") + 1

		for di, d := range extractArray(half, "drives") {
			drive, ok := d.(map[string]interface{})
			if !ok {
				continue
			}
			team := extractMap(drive, "team")
			driveRaw := pbp.RawEvent{
				DriveIDHalf:    di + 1,
				Team:           extractTextOr(team, "id", unknown),
				TeamAbbr:       extractTextOr(team, "threeLetters", unknown),
				DriveYards:     extractNullInt(drive, "yards"),
				PossessionTime: extractText(drive, "timeOfPossession"),
			}

			for pi, e := range extractArray(drive, "eventGroups") {
				event, ok := e.(map[string]interface{})
				if !ok {
					continue
				}
				raw := parseEvent(driveRaw, event)
				raw.PlayIDDrive = pi + 1

				p := pbp.NewPlay(pbp.SourceSportApp, match, halfNum, raw)
				p.Players = ExtractPlayers(raw.Summary)
				plays = append(plays, p)
			}
		}
	}

	if len(plays) == 0 {
		return nil, &pbp.MissingGameDataError{GameID: gameID, Reason: "drives document has no plays"}
	}
	return plays, nil
}

func parseEvent(drive pbp.RawEvent, event map[string]interface{}) pbp.RawEvent {
	raw := drive
	start := extractMap(event, "startYardLine")
	end := extractMap(event, "endYardLine")

	raw.Summary = extractText(event, "summary")
	raw.ActionTitle = extractText(event, "actionTitle")
	raw.Down = extractNullInt(event, "down")
	raw.DownDesc = extractText(event, "downLabel")
	raw.DownAfter = extractNullInt(event, "nextDown")
	raw.DownAfterDesc = extractText(event, "nextDownLabel")
	raw.YardsToGo = extractText(event, "target")
	raw.YardsToGoAfter = extractText(event, "nextTarget")
	raw.StartYardLine = extractInt(start, "yardLine")
	raw.StartSide = extractTextOr(start, "team", "0")
	raw.EndYardLine = extractInt(end, "yardLine")
	raw.EndSide = extractTextOr(end, "team", "0")
	return raw
}

// extractText renders strings and numbers alike. Ids and distances come
// as either.
func extractText(m map[string]interface{}, key string) string {
	switch val := m[key].(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

func extractTextOr(m map[string]interface{}, key, fallback string) string {
	if s := extractText(m, key); strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

func extractInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		return parseInt(v)
	}
	return 0
}

func extractNullInt(m map[string]interface{}, key string) sql.NullInt64 {
	switch val := m[key].(type) {
	case float64:
		return sql.NullInt64{Int64: int64(val), Valid: true}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return sql.NullInt64{Int64: i, Valid: true}
		}
	}
	return sql.NullInt64{}
}

func extractMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key]; ok {
		if mapVal, ok := v.(map[string]interface{}); ok {
			return mapVal
		}
	}
	return map[string]interface{}{}
}

func extractArray(m map[string]interface{}, key string) []interface{} {
	if v, ok := m[key]; ok {
		if arrVal, ok := v.([]interface{}); ok {
			return arrVal
		}
	}
	return []interface{}{}
}

func parseInt(v interface{}) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case string:
		i, _ := strconv.Atoi(val)
		return i
	case int:
		return val
	default:
		return 0
	}
}

func idString(v interface{}) string {
	return extractText(map[string]interface{}{"id": v}, "id")
}

func malformed(id, endpoint, format string, args ...interface{}) error {
	return &pbp.MalformedResponseError{ID: id, Endpoint: endpoint, Err: fmt.Errorf(format, args...)}
}
