package tabular

import (
	"io"

	"github.com/fortuna/apollo/internal/pbp"
)

// DSFootballRow is one line of a DS-Football export. The event columns
// are already flagged by the charting tool.
type DSFootballRow struct {
	GameID            string `csv:"game_id"`
	PlayID            string `csv:"play_id"`
	Drive             string `csv:"Drive"`
	Quarter           string `csv:"Quarter"`
	Posteam           string `csv:"posteam"`
	Down              string `csv:"Down"`
	Distance          string `csv:"Distance"`
	Spot              string `csv:"Spot"`
	PlayType          string `csv:"play_type"`
	CompletePass      string `csv:"complete_pass"`
	Interception      string `csv:"interception"`
	Touchdown         string `csv:"touchdown"`
	PointAfter        string `csv:"point_after"`
	PointAfterSuccess string `csv:"point_after_success"`
	IsSafety          string `csv:"IsSafety"`
}

func (r DSFootballRow) gameID() string  { return r.GameID }
func (r DSFootballRow) posteam() string { return r.Posteam }

// ReadDSFootball normalizes a DS-Football export. Lines without a game id
// are left out and listed in the summary.
func ReadDSFootball(r io.Reader) ([]*pbp.Play, *pbp.RunSummary, error) {
	rows, err := decode[*DSFootballRow](pbp.SourceDSFootball, r)
	if err != nil {
		return nil, nil, err
	}
	plays, summary := NormalizeDSFootball(rows)
	return plays, summary, nil
}

// NormalizeDSFootball converts decoded rows into plays. Quarter is used
// as the half number unchanged.
func NormalizeDSFootball(rows []*DSFootballRow) ([]*pbp.Play, *pbp.RunSummary) {
	summary := &pbp.RunSummary{}
	teams := sides(rows)
	ids, usable := gameIDs(pbp.SourceDSFootball, rows, summary)
	plays := make([]*pbp.Play, 0, len(rows))
	for i, r := range rows {
		if !usable[i] {
			continue
		}
		gameID := ids[i]
		s := teams[r.GameID]

		raw := pbp.RawEvent{
			DriveIDHalf: parseInt(r.Drive),
			PlayIDDrive: parseInt(r.PlayID),
			Team:        text(r.Posteam),
			Down:        parseNullInt(r.Down),
			YardsToGo:   text(r.Distance),
			Spot:        parseNullInt(r.Spot),
			PlayType:    text(r.PlayType),
			Distance:    parseNullInt(r.Distance),
		}

		p := pbp.NewPlay(pbp.SourceDSFootball, match(gameID, s[0], s[1]), parseInt(r.Quarter), raw)
		p.CompletePass = parseFlag(r.CompletePass)
		p.Interception = parseFlag(r.Interception)
		p.Touchdown = parseFlag(r.Touchdown)
		p.PointAfter = parseFlag(r.PointAfter)
		p.PointAfterSuccess = parseFlag(r.PointAfterSuccess)
		p.Safety = parseFlag(r.IsSafety)
		plays = append(plays, p)
	}
	return plays, summary
}
