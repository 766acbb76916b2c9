package pbp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// TieMarker is the winner recorded for drawn games.
const TieMarker = "TIE"

var epLabels = map[string]int{
	EventTouchdown:    0,
	EventOppTouchdown: 1,
	EventSafety:       2,
	EventOppSafety:    3,
	EventNoScore:      4,
}

// EPRow is one row of the EP training table.
type EPRow struct {
	GameID               int     `csv:"game_id" json:"game_id"`
	PlayID               int     `csv:"play_id" json:"play_id"`
	DriveID              int     `csv:"drive_id" json:"drive_id"`
	Half                 int     `csv:"half" json:"half"`
	HalfSecondsRemaining float64 `csv:"half_seconds_remaining" json:"half_seconds_remaining"`
	Yardline50           int64   `csv:"yardline_50" json:"yardline_50"`
	YardsToGo            int64   `csv:"yards_to_go" json:"yards_to_go"`
	Down0                int     `csv:"down0" json:"down0"`
	Down1                int     `csv:"down1" json:"down1"`
	Down2                int     `csv:"down2" json:"down2"`
	Down3                int     `csv:"down3" json:"down3"`
	Down4                int     `csv:"down4" json:"down4"`
	ScoreDifferential    int64   `csv:"score_differential" json:"score_differential"`
	NextScoreHalf        string  `csv:"Next_Score_Half" json:"Next_Score_Half"`
	DriveScoreHalf       int64   `csv:"Drive_Score_Half" json:"Drive_Score_Half"`
	DriveScoreDist       int64   `csv:"Drive_Score_Dist" json:"Drive_Score_Dist"`
	DriveScoreDistW      float64 `csv:"Drive_Score_Dist_W" json:"Drive_Score_Dist_W"`
	ScoreDiffW           float64 `csv:"ScoreDiff_W" json:"ScoreDiff_W"`
	TotalW               float64 `csv:"Total_W" json:"Total_W"`
	TotalWScaled         float64 `csv:"Total_W_Scaled" json:"Total_W_Scaled"`
	Label                int     `csv:"label" json:"label"`
}

// WPRow is one row of the WP training table.
type WPRow struct {
	GameID               int      `csv:"game_id" json:"game_id"`
	PlayID               int      `csv:"play_id" json:"play_id"`
	Posteam              string   `csv:"posteam" json:"posteam"`
	Winner               string   `csv:"Winner" json:"Winner"`
	Half                 int      `csv:"half" json:"half"`
	HalfSecondsRemaining float64  `csv:"half_seconds_remaining" json:"half_seconds_remaining"`
	GameSecondsRemaining float64  `csv:"game_seconds_remaining" json:"game_seconds_remaining"`
	Yardline50           int64    `csv:"yardline_50" json:"yardline_50"`
	YardsToGo            int64    `csv:"yards_to_go" json:"yards_to_go"`
	Down                 *int64   `csv:"down" json:"down"`
	ScoreDifferential    int64    `csv:"score_differential" json:"score_differential"`
	DiffTimeRatio        *float64 `csv:"Diff_Time_Ratio" json:"Diff_Time_Ratio"`
	Receive2HKickoff     int      `csv:"receive_2h_ko" json:"receive_2h_ko"`
	EP                   *float64 `csv:"ep" json:"ep"`
	Label                int      `csv:"label" json:"label"`
}

// BuildEPTable keeps rows with a known next-score class and a defined field
// position, then weights them by how close they are to the scoring drive
// and how even the score is. Weights are scaled over the returned rows.
func BuildEPTable(rows []*Play) []EPRow {
	var out []EPRow
	for _, p := range rows {
		label, ok := epLabels[p.NextScoreHalf]
		if !ok || !p.Yardline50.Valid || !p.YardsToGo.Valid || !p.ScoreDifferential.Valid || !p.DriveScoreHalf.Valid {
			continue
		}
		row := EPRow{
			GameID:               p.GameID,
			PlayID:               p.PlayID,
			DriveID:              p.DriveID,
			Half:                 p.Half,
			HalfSecondsRemaining: p.HalfSecondsRemaining,
			Yardline50:           p.Yardline50.Int64,
			YardsToGo:            p.YardsToGo.Int64,
			Down0:                boolInt(isDown(p, 0)),
			Down1:                boolInt(isDown(p, 1)),
			Down2:                boolInt(isDown(p, 2)),
			Down3:                boolInt(isDown(p, 3)),
			Down4:                boolInt(isDown(p, 4)),
			ScoreDifferential:    p.ScoreDifferential.Int64,
			NextScoreHalf:        p.NextScoreHalf,
			DriveScoreHalf:       p.DriveScoreHalf.Int64,
			DriveScoreDist:       p.DriveScoreHalf.Int64 - int64(p.DriveID),
			Label:                label,
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return out
	}

	dist := make([]float64, len(out))
	diff := make([]float64, len(out))
	for i, r := range out {
		dist[i] = float64(r.DriveScoreDist)
		diff[i] = math.Abs(float64(r.ScoreDifferential))
	}
	distW := inverseMinMax(dist)
	diffW := inverseMinMax(diff)

	total := make([]float64, len(out))
	floats.AddTo(total, distW, diffW)
	scaled := minMax(total)

	for i := range out {
		out[i].DriveScoreDistW = distW[i]
		out[i].ScoreDiffW = diffW[i]
		out[i].TotalW = total[i]
		out[i].TotalWScaled = scaled[i]
	}
	return out
}

// inverseMinMax maps the smallest value to 1 and the largest to 0. A column
// with no spread carries no weight.
func inverseMinMax(xs []float64) []float64 {
	out := make([]float64, len(xs))
	lo, hi := floats.Min(xs), floats.Max(xs)
	if hi == lo {
		return out
	}
	for i, x := range xs {
		out[i] = (hi - x) / (hi - lo)
	}
	return out
}

// minMax maps the smallest value to 0 and the largest to 1. A column with
// no spread scales to 1.
func minMax(xs []float64) []float64 {
	out := make([]float64, len(xs))
	lo, hi := floats.Min(xs), floats.Max(xs)
	if hi == lo {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, x := range xs {
		out[i] = (x - lo) / (hi - lo)
	}
	return out
}

// BuildWPTable labels every row with whether its possessing team went on to
// win. Drawn games record TieMarker and label no side a winner. Down, EP and
// Diff_Time_Ratio stay empty where the play has none.
func BuildWPTable(rows []*Play) []WPRow {
	var out []WPRow
	for _, game := range SplitGames(rows) {
		winner := gameWinner(game)
		for _, p := range game {
			if !p.Posteam.Valid || !p.Yardline50.Valid || !p.YardsToGo.Valid || !p.ScoreDifferential.Valid {
				continue
			}
			row := WPRow{
				GameID:               p.GameID,
				PlayID:               p.PlayID,
				Posteam:              p.Posteam.String,
				Winner:               winner,
				Half:                 p.Half,
				HalfSecondsRemaining: p.HalfSecondsRemaining,
				GameSecondsRemaining: p.GameSecondsRemaining,
				Yardline50:           p.Yardline50.Int64,
				YardsToGo:            p.YardsToGo.Int64,
				Down:                 intPtr(p.Down),
				ScoreDifferential:    p.ScoreDifferential.Int64,
				DiffTimeRatio:        floatPtr(p.DiffTimeRatio),
				Receive2HKickoff:     p.Receive2HKickoff,
				EP:                   floatPtr(p.EP),
				Label:                boolInt(p.Posteam.String == winner),
			}
			out = append(out, row)
		}
	}
	return out
}

// gameWinner compares the final cumulative scores on the game's last row.
func gameWinner(game []*Play) string {
	last := game[len(game)-1]
	for _, p := range game {
		if p.GameEnd == 1 {
			last = p
		}
	}
	switch {
	case last.HomeTeamScore > last.AwayTeamScore:
		return last.HomeTeam
	case last.HomeTeamScore < last.AwayTeamScore:
		return last.AwayTeam
	}
	return TieMarker
}
