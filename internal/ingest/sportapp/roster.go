package sportapp

import (
	"database/sql"
	"encoding/json"

	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/store"
)

// ParseRoster reads a teams-players document. The first list entry is the
// team; a body that is not a list with a players array is malformed.
func ParseRoster(teamID string, body []byte) (*store.Roster, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &pbp.MalformedResponseError{ID: teamID, Endpoint: EndpointRoster, Err: decodeFailure(body, err)}
	}
	list, ok := doc.([]interface{})
	if !ok || len(list) == 0 {
		return nil, malformed(teamID, EndpointRoster, "expected a non-empty list")
	}
	team, ok := list[0].(map[string]interface{})
	if !ok {
		return nil, malformed(teamID, EndpointRoster, "team entry is not an object")
	}
	if _, ok := team["players"].([]interface{}); !ok {
		return nil, malformed(teamID, EndpointRoster, "no players for team")
	}

	roster := &store.Roster{
		Team: store.Team{
			TeamID: extractTextOr(team, "id", teamID),
			Name:   extractTextOr(team, "name", unknown),
		},
	}

	for _, raw := range extractArray(team, "players") {
		player, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		id := idString(player["id"])
		if id == "" {
			continue
		}
		roster.Players = append(roster.Players, &store.Player{
			PlayerID:     id,
			TeamID:       roster.Team.TeamID,
			Name:         extractTextOr(player, "name", unknown),
			JerseyNumber: nullText(player, "uniform_number"),
			Position:     nullText(player, "position"),
			Club:         nullText(player, "club"),
		})
	}

	return roster, nil
}

func nullText(m map[string]interface{}, key string) sql.NullString {
	s := extractText(m, key)
	return sql.NullString{String: s, Valid: s != ""}
}
