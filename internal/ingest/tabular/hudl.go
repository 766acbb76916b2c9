package tabular

import (
	"io"

	"github.com/fortuna/apollo/internal/pbp"
)

// HudlRow is one line of a Hudl breakdown export.
type HudlRow struct {
	GameID     string `csv:"game_id"`
	PlayID     string `csv:"play_id"`
	DriveID    string `csv:"drive_id"`
	Half       string `csv:"half"`
	Posteam    string `csv:"posteam"`
	Down       string `csv:"DN"`
	Distance   string `csv:"DIST"`
	YardLine   string `csv:"YARD LN"`
	Yardline50 string `csv:"yardline_50"`
	Result     string `csv:"RESULT"`
}

func (r HudlRow) gameID() string  { return r.GameID }
func (r HudlRow) posteam() string { return r.Posteam }

// ReadHudl normalizes a Hudl export. Rows keep file order within each
// drive; play_id orders the rows of a drive. Lines without a game id are
// left out and listed in the summary.
func ReadHudl(r io.Reader) ([]*pbp.Play, *pbp.RunSummary, error) {
	rows, err := decode[*HudlRow](pbp.SourceHudl, r)
	if err != nil {
		return nil, nil, err
	}
	plays, summary := NormalizeHudl(rows)
	return plays, summary, nil
}

// NormalizeHudl converts decoded Hudl rows into plays.
func NormalizeHudl(rows []*HudlRow) ([]*pbp.Play, *pbp.RunSummary) {
	summary := &pbp.RunSummary{}
	teams := sides(rows)
	ids, usable := gameIDs(pbp.SourceHudl, rows, summary)
	plays := make([]*pbp.Play, 0, len(rows))
	for i, r := range rows {
		if !usable[i] {
			continue
		}
		gameID := ids[i]
		s := teams[r.GameID]

		raw := pbp.RawEvent{
			DriveIDHalf:   parseInt(r.DriveID),
			PlayIDDrive:   parseInt(r.PlayID),
			Team:          text(r.Posteam),
			Result:        text(r.Result),
			Down:          parseNullInt(r.Down),
			YardsToGo:     text(r.Distance),
			StartYardLine: parseInt(r.YardLine),
			Spot:          parseNullInt(r.Yardline50),
			Distance:      parseNullInt(r.Distance),
		}
		plays = append(plays, pbp.NewPlay(pbp.SourceHudl, match(gameID, s[0], s[1]), parseInt(r.Half), raw))
	}
	return plays, summary
}
