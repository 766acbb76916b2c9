package pbp

import (
	"database/sql"
	"regexp"
	"strings"
)

// Classifier derives the event flags of a single play. next is the following
// row of the same game, or nil on the game's last row; only sources without
// an explicit completion marker look at it.
type Classifier interface {
	ClassifyPlay(p *Play, next *Play)
}

// Classify runs c over every row, then fills scoring_play from the flags.
func Classify(rows []*Play, c Classifier) error {
	return forEachGame("classify", rows, func(game []*Play) error {
		for i, p := range game {
			var next *Play
			if i+1 < len(game) {
				next = game[i+1]
			}
			c.ClassifyPlay(p, next)
			settleScoringFlags(p)
		}
		return nil
	})
}

// settleScoringFlags applies the cross-flag rules shared by every source:
// a defensive score or a try never counts as an offensive touchdown, and
// scoring_play is the union of the scoring flags.
func settleScoringFlags(p *Play) {
	if p.DefTouchdown == 1 || p.PointAfter == 1 {
		p.Touchdown = 0
	}
	p.ScoringPlay = boolInt(p.Touchdown == 1 ||
		p.DefTouchdown == 1 ||
		p.OnePointConvSuccess == 1 ||
		p.TwoPointConvSuccess == 1 ||
		p.DefensiveTwoPointConv == 1 ||
		p.Safety == 1)
}

var (
	playResultPattern = regexp.MustCompile(`(rush|complete|incomplete|touchdown|first down|intercepted|sack|fumble|good|miss|timeout)`)
	penaltyPattern    = regexp.MustCompile(`penalty`)
	safetyPattern     = regexp.MustCompile(`safety`)
)

// SummaryClassifier reads the free-text summary and down description of the
// sportapp API.
type SummaryClassifier struct {
	Rules ConversionRules
}

// ClassifyPlay implements Classifier.
func (c SummaryClassifier) ClassifyPlay(p *Play, _ *Play) {
	summary := strings.ToLower(p.Raw.Summary)
	p.PlayResult = playResultPattern.FindString(summary)

	p.Down = p.Raw.Down
	if strings.Contains(p.Raw.DownDesc, "PAT") {
		p.Down = validInt(0)
		p.PointAfter = 1
	}

	switch p.PlayResult {
	case "rush":
		p.PlayType = "rush"
	case "complete", "incomplete", "sack", "intercepted", "good", "miss":
		p.PlayType = "pass"
	case "timeout", "":
		p.PlayType = "no_play"
	default:
		p.PlayType = ""
	}

	p.CompletePass = boolInt(p.PlayResult == "complete")
	p.Interception = boolInt(p.PlayResult == "intercepted")
	p.Sack = boolInt(p.PlayResult == "sack")
	p.Touchdown = boolInt(p.Raw.ActionTitle == "Touchdown")
	p.PointAfterSuccess = boolInt(p.PlayResult == "good")
	p.Penalty = boolInt(penaltyPattern.MatchString(summary))
	p.Safety = boolInt(safetyPattern.MatchString(summary))

	returned := p.Interception == 1 && p.Touchdown == 1
	p.DefTouchdown = boolInt(returned && p.PointAfter == 0)
	p.DefensiveTwoPointConv = boolInt(returned && p.PointAfter == 1)

	made := p.PointAfter == 1 && p.PointAfterSuccess == 1
	p.OnePointConvSuccess = boolInt(made && p.Raw.DownDesc == c.Rules.OnePointDesc)
	p.TwoPointConvSuccess = boolInt(made && p.Raw.DownDesc == c.Rules.TwoPointDesc)
}

// ResultClassifier reads the RESULT column of a Hudl export. Tries are told
// apart by the spot they were snapped from.
type ResultClassifier struct {
	Rules ConversionRules
}

// ClassifyPlay implements Classifier.
func (c ResultClassifier) ClassifyPlay(p *Play, next *Play) {
	result := p.Raw.Result
	p.PlayResult = result
	p.Down = p.Raw.Down
	try := p.Down.Valid && p.Down.Int64 == 0

	switch {
	case strings.Contains(result, "Rush"):
		p.PlayType = "run"
	case strings.Contains(result, "Penalty"):
		p.PlayType = "no_play"
	case strings.Contains(result, "KNEEL"):
		p.PlayType = "qb_kneel"
	case try:
		p.PlayType = "extra_point"
	default:
		p.PlayType = "pass"
	}

	p.Sack = boolInt(strings.Contains(result, "Sack"))
	p.Interception = boolInt(strings.Contains(result, "Interception"))
	p.Penalty = boolInt(strings.Contains(result, "Penalty"))
	p.Safety = boolInt(strings.Contains(result, "Safety"))
	p.Touchdown = boolInt(strings.Contains(result, "TD") && !strings.Contains(result, "Def"))

	defScore := strings.Contains(result, "Def TD")
	p.DefTouchdown = boolInt(defScore && !try)
	p.DefensiveTwoPointConv = boolInt(defScore && try)

	p.PointAfter = boolInt(try)
	p.PointAfterSuccess = boolInt(try && result == "Good")
	p.OnePointConvSuccess = boolInt(p.PointAfterSuccess == 1 && spotIs(p.Raw.Spot, c.Rules.OnePointSpot))
	p.TwoPointConvSuccess = boolInt(p.PointAfterSuccess == 1 && spotIs(p.Raw.Spot, c.Rules.TwoPointSpot))

	p.CompletePass = inferCompletion(p, next)
}

// inferCompletion marks a pass complete from its result text, or from the
// ball moving while the offense kept it when the text says nothing.
func inferCompletion(p *Play, next *Play) int {
	passFamily := p.PlayType == "pass" || p.PlayType == "extra_point" || p.PlayType == "no_play"
	switch {
	case passFamily && strings.Contains(p.Raw.Result, "Complete"):
		return 1
	case passFamily && p.Raw.Result == "Incomplete":
		return 0
	case passFamily && next != nil && next.Raw.Team == p.Raw.Team &&
		p.Raw.Spot.Valid && next.Raw.Spot.Valid && next.Raw.Spot.Int64 != p.Raw.Spot.Int64:
		return 1
	}
	return 0
}

// FlagClassifier trusts the pre-flagged columns of a DS-Football export and
// only derives the combined events.
type FlagClassifier struct {
	Rules ConversionRules
}

// ClassifyPlay implements Classifier. The normalizer has already set
// complete_pass, interception, touchdown, point_after, point_after_success
// and safety.
func (c FlagClassifier) ClassifyPlay(p *Play, _ *Play) {
	p.Down = p.Raw.Down

	switch {
	case p.Raw.PlayType != "":
		p.PlayType = strings.ToLower(p.Raw.PlayType)
	case p.PointAfter == 1:
		p.PlayType = "extra_point"
	case p.CompletePass == 1 || p.Interception == 1:
		p.PlayType = "pass"
	default:
		p.PlayType = "unknown"
	}

	returned := p.Interception == 1 && p.Touchdown == 1
	p.DefTouchdown = boolInt(returned && p.PointAfter == 0)
	p.DefensiveTwoPointConv = boolInt(returned && p.PointAfter == 1)

	made := p.PointAfter == 1 && p.PointAfterSuccess == 1
	p.OnePointConvSuccess = boolInt(made && spotIs(p.Raw.Spot, c.Rules.OnePointSpot))
	p.TwoPointConvSuccess = boolInt(made && spotIs(p.Raw.Spot, c.Rules.TwoPointSpot))
}

func spotIs(spot sql.NullInt64, want int64) bool {
	return spot.Valid && spot.Int64 == want
}
