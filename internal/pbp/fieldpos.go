package pbp

import (
	"database/sql"
	"strconv"
	"strings"
)

const stageFieldPosition = "field_position"

// goalToGo is the raw distance marker for goal-to-go downs.
const goalToGo = "G"

// FieldPosition normalizes the spot to yardline_50 (distance from the
// possessing team's own goal on the 0-50 scale) and derives distance,
// yards gained and the first-down flag.
func FieldPosition(rows []*Play, rules ConversionRules) error {
	return forEachGame(stageFieldPosition, rows, func(game []*Play) error {
		if err := requireIndexed(stageFieldPosition, game); err != nil {
			return err
		}

		for i, p := range game {
			switch p.Source {
			case SourceSportApp:
				p.Yardline50 = orientYardline(p, p.Raw.StartYardLine, p.Raw.StartSide)
				p.Yardline50After = orientYardline(p, p.Raw.EndYardLine, p.Raw.EndSide)
				p.YardsToGo = parseDistance(p.Raw.YardsToGo, p.Yardline50)
				p.YardsToGoAfter = parseDistance(p.Raw.YardsToGoAfter, p.Yardline50After)
				if d, ok := rules.tryDistance(p.Raw.DownDesc); ok && !p.YardsToGo.Valid {
					p.YardsToGo = validInt(d)
				}
			default:
				p.Yardline50 = p.Raw.Spot
				p.Yardline50After = sql.NullInt64{}
				if i+1 < len(game) {
					p.Yardline50After = game[i+1].Raw.Spot
				}
				p.YardsToGo = p.Raw.Distance
				p.YardsToGoAfter = sql.NullInt64{}
				if i+1 < len(game) {
					p.YardsToGoAfter = game[i+1].Raw.Distance
				}
			}

			p.YardsGained = yardsGained(p)
			p.FirstDown = boolInt(p.Yardline50.Valid && p.Yardline50.Int64 < ownHalfLimit &&
				p.YardsGained.Valid && p.YardsToGo.Valid && p.YardsGained.Int64 > p.YardsToGo.Int64)
			p.YardsToGoSimple = distanceBucket(p.YardsToGo)
			p.Yardline50Simple = boolInt(!(p.Yardline50.Valid && p.Yardline50.Int64 < ownHalfLimit))
		}
		return nil
	})
}

// orientYardline converts a side-relative yard line to the home team's
// frame, then to the possessing team's frame. Rows without a known
// possessing side report 0.
func orientYardline(p *Play, yardLine int, side string) sql.NullInt64 {
	homeFrame := int64(yardLine)
	if side == p.AwayTeam {
		homeFrame = HalfYards - homeFrame
	}
	switch {
	case p.IsHome(p.Posteam):
		return validInt(homeFrame)
	case p.IsAway(p.Posteam):
		return validInt(HalfYards - homeFrame)
	}
	return validInt(0)
}

// parseDistance reads a raw yards-to-go value. "G" resolves to the distance
// left to the goal line and blank or unreadable values are null.
func parseDistance(raw string, yardline sql.NullInt64) sql.NullInt64 {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return sql.NullInt64{}
	case raw == goalToGo:
		if !yardline.Valid {
			return sql.NullInt64{}
		}
		return validInt(HalfYards - yardline.Int64)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return validInt(v)
}

var zeroGainRules = []rule[bool]{
	{
		when: func(p *Play) bool { return isDown(p, 0) },
		then: func(p *Play) bool { return p.OnePointConvSuccess == 0 && p.TwoPointConvSuccess == 0 },
	},
	{
		when: func(p *Play) bool { return isDown(p, 4) && p.CompletePass == 0 && possessionChanged(p) },
		then: func(*Play) bool { return true },
	},
	{
		when: func(p *Play) bool { return isDown(p, 4) && p.Safety == 1 },
		then: func(*Play) bool { return true },
	},
}

func yardsGained(p *Play) sql.NullInt64 {
	if firstMatch(p, zeroGainRules, func(*Play) bool { return false }) {
		return validInt(0)
	}
	if !p.Yardline50.Valid || !p.Yardline50After.Valid {
		return sql.NullInt64{}
	}
	return validInt(p.Yardline50After.Int64 - p.Yardline50.Int64)
}

func distanceBucket(ytg sql.NullInt64) int {
	if !ytg.Valid {
		return 0
	}
	switch v := ytg.Int64; {
	case v <= 5:
		return 1
	case v <= 10:
		return 2
	case v <= 15:
		return 3
	case v <= 20:
		return 4
	default:
		return 5
	}
}

func isDown(p *Play, down int64) bool {
	return p.Down.Valid && p.Down.Int64 == down
}
