package pbp

// ConversionRules holds the source-specific constants used to tell a
// one-point try from a two-point try.
type ConversionRules struct {
	// OnePointDesc and TwoPointDesc match the API down description of a try.
	OnePointDesc string
	TwoPointDesc string
	// OnePointDistance and TwoPointDistance fill yards_to_go on a try
	// whose raw distance is blank.
	OnePointDistance int64
	TwoPointDistance int64
	// OnePointSpot and TwoPointSpot are the yardline_50 spots tabular
	// exports use for each try.
	OnePointSpot int64
	TwoPointSpot int64
}

// tryDistance returns the distance a down description names for a try.
func (r ConversionRules) tryDistance(desc string) (int64, bool) {
	switch desc {
	case r.OnePointDesc:
		return r.OnePointDistance, true
	case r.TwoPointDesc:
		return r.TwoPointDistance, true
	}
	return 0, false
}

// DefaultConversionRules returns the conventions of the sportapp API and the
// Hudl/DS-Football exports.
func DefaultConversionRules() ConversionRules {
	return ConversionRules{
		OnePointDesc:     "PAT 5 yards",
		TwoPointDesc:     "PAT 10 yards",
		OnePointDistance: 5,
		TwoPointDistance: 10,
		OnePointSpot:     45,
		TwoPointSpot:     40,
	}
}

// Field and clock constants.
const (
	HalfYards   = 50
	HalfSeconds = 1200.0
	GameSeconds = 2400.0

	ownHalfLimit = 25
)

// Point values credited to the scoring team.
const (
	touchdownPoints       = 6
	onePointConvPoints    = 1
	twoPointConvPoints    = 2
	defTwoPointConvPoints = 2
	safetyPoints          = 2
)

// Expected value of a try, used as the EPA baseline for conversions.
const (
	onePointTryValue = 0.5
	twoPointTryValue = 0.92
)

// Next-score labels.
const (
	EventTouchdown       = "Touchdown"
	EventOppTouchdown    = "Opp_Touchdown"
	EventSafety          = "Safety"
	EventOppSafety       = "Opp_Safety"
	EventExtraPoint      = "Extra_Point"
	EventOppExtraPoint   = "Opp_Extra_Point"
	EventTwoPointConv    = "Two_Point_Conversion"
	EventOppTwoPointConv = "Opp_Two_Point_Conversion"
	EventNoScore         = "No_Score"
)

// rule is one predicate/value pair of an ordered rule list.
type rule[T any] struct {
	when func(*Play) bool
	then func(*Play) T
}

// firstMatch evaluates rules top to bottom and returns the value of the first
// rule whose predicate holds, or fallback when none do.
func firstMatch[T any](p *Play, rules []rule[T], fallback func(*Play) T) T {
	for _, r := range rules {
		if r.when(p) {
			return r.then(p)
		}
	}
	return fallback(p)
}
