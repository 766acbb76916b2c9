package pbp

import (
	"io"

	"github.com/sirupsen/logrus"
)

const (
	homeID = "10"
	awayID = "20"
)

type driveFixture struct {
	half  int
	team  string
	plays []RawEvent
}

// apiGame lays drives out the way the sportapp API numbers them: drives
// count down within a half and plays count down within a drive. Rows come
// back in reverse so the sort has work to do.
func apiGame(gameID int, drives ...driveFixture) []*Play {
	match := Match{GameID: gameID, HomeTeam: homeID, AwayTeam: awayID}
	perHalf := make(map[int]int)
	for _, d := range drives {
		perHalf[d.half]++
	}

	seen := make(map[int]int)
	var rows []*Play
	for _, d := range drives {
		seen[d.half]++
		for j, raw := range d.plays {
			raw.Team = d.team
			raw.DriveIDHalf = perHalf[d.half] - seen[d.half] + 1
			raw.PlayIDDrive = len(d.plays) - j
			rows = append(rows, NewPlay(SourceSportApp, match, d.half, raw))
		}
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows
}

func snap(summary string, down int64, yardLine int, side string, gain int) RawEvent {
	return RawEvent{
		Summary:       summary,
		Down:          validInt(down),
		DownDesc:      "1st & 10",
		YardsToGo:     "10",
		StartYardLine: yardLine,
		StartSide:     side,
		EndYardLine:   yardLine + gain,
		EndSide:       side,
	}
}

func scored(r RawEvent) RawEvent {
	r.ActionTitle = "Touchdown"
	return r
}

func conversion(desc, summary string, side string) RawEvent {
	return RawEvent{
		Summary:       summary,
		DownDesc:      desc,
		StartYardLine: 45,
		StartSide:     side,
		EndYardLine:   50,
		EndSide:       side,
	}
}

// pickSixGame is a two-half game:
//
//	half 1: home drive ends in an interception returned for a score,
//	        away kicks the extra point, home drive runs out the half
//	half 2: away scores a touchdown and a two-point try, home runs one
//	        play to end the game
//
// Final score home 0, away 15.
func pickSixGame(gameID int) []*Play {
	return apiGame(gameID,
		driveFixture{half: 1, team: homeID, plays: []RawEvent{
			snap("Rush for 4 yards by #22", 1, 20, homeID, 4),
			scored(snap("Pass intercepted by #21, returned for touchdown", 2, 24, homeID, -24)),
		}},
		driveFixture{half: 1, team: awayID, plays: []RawEvent{
			conversion("PAT 5 yards", "Kick is good", awayID),
		}},
		driveFixture{half: 1, team: homeID, plays: []RawEvent{
			snap("Rush for 3 yards by #22", 1, 25, homeID, 3),
			snap("Complete pass to #8 for 6 yards", 2, 28, homeID, 6),
		}},
		driveFixture{half: 2, team: awayID, plays: []RawEvent{
			snap("Rush for 2 yards by #30", 1, 30, awayID, 2),
			scored(snap("Complete pass to #3 for 18 yards, touchdown", 2, 32, awayID, 18)),
			conversion("PAT 10 yards", "Two point attempt good", awayID),
		}},
		driveFixture{half: 2, team: homeID, plays: []RawEvent{
			snap("Rush for 1 yard by #22", 1, 20, homeID, 1),
		}},
	)
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func derived(rows []*Play) ([]*Play, *RunSummary) {
	return NewPipeline(SourceSportApp, DefaultConversionRules(), testLogger()).Derive(rows)
}

func tabular(gameID, half, drive, play int, team string, down, spot, distance int64) *Play {
	return NewPlay(SourceDSFootball, Match{GameID: gameID, HomeTeam: homeID, AwayTeam: awayID}, half, RawEvent{
		DriveIDHalf: drive,
		PlayIDDrive: play,
		Team:        team,
		Down:        validInt(down),
		Spot:        validInt(spot),
		Distance:    validInt(distance),
	})
}
