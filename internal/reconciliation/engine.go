package reconciliation

import (
	"fmt"
	"sync"
	"time"

	"github.com/fortuna/apollo/internal/pbp"
)

// Engine compares the score the API reports for a game with the running
// score derived from its plays
type Engine struct {
	tolerance int

	mu      sync.Mutex
	metrics Metrics
}

// Metrics tracks reconciliation statistics
type Metrics struct {
	Checked   int       `json:"checked"`
	Conflicts int       `json:"conflicts"`
	LastCheck time.Time `json:"last_check"`
}

// ScoreConflict is returned when the derived final score disagrees with the
// reported result by more than the tolerance
type ScoreConflict struct {
	GameID       int
	ReportedHome int
	ReportedAway int
	DerivedHome  int
	DerivedAway  int
}

func (c *ScoreConflict) Error() string {
	return fmt.Sprintf("game %d: derived score %d-%d differs from reported %d-%d",
		c.GameID, c.DerivedHome, c.DerivedAway, c.ReportedHome, c.ReportedAway)
}

// NewEngine creates an engine. tolerance is the per-side point difference
// still accepted as agreement.
func NewEngine(tolerance int) *Engine {
	if tolerance < 0 {
		tolerance = 0
	}
	return &Engine{tolerance: tolerance}
}

// CheckGame compares one derived game with its match result. A game whose
// result was never reported (0-0 with scoring plays) is not counted.
func (e *Engine) CheckGame(game []*pbp.Play) *ScoreConflict {
	if len(game) == 0 {
		return nil
	}
	last := game[len(game)-1]
	m := last.Match
	if m.HomeScore == 0 && m.AwayScore == 0 && (last.HomeTeamScore != 0 || last.AwayTeamScore != 0) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics.Checked++
	e.metrics.LastCheck = time.Now()

	if abs(m.HomeScore-last.HomeTeamScore) <= e.tolerance && abs(m.AwayScore-last.AwayTeamScore) <= e.tolerance {
		return nil
	}

	e.metrics.Conflicts++
	return &ScoreConflict{
		GameID:       last.GameID,
		ReportedHome: m.HomeScore,
		ReportedAway: m.AwayScore,
		DerivedHome:  last.HomeTeamScore,
		DerivedAway:  last.AwayTeamScore,
	}
}

// GetMetrics returns a snapshot of the counters
func (e *Engine) GetMetrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}

// ResetMetrics clears the counters
func (e *Engine) ResetMetrics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = Metrics{}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
