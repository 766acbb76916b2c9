package pbp

import (
	"errors"
	"fmt"
	"strconv"
)

// FetchError reports a transport or HTTP failure for a single game or team.
type FetchError struct {
	Kind string
	ID   string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedResponseError reports a body that did not decode into the
// expected structure.
type MalformedResponseError struct {
	ID       string
	Endpoint string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response for %s: %v", e.Endpoint, e.ID, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// MissingFieldError notes a mandatory field that was absent and replaced by
// its default. It is a diagnostic, not a failure.
type MissingFieldError struct {
	GameID int
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("game %d: missing field %q, using default", e.GameID, e.Field)
}

// MissingGameDataError means the drives or match document was unusable and
// the game cannot enter the pipeline.
type MissingGameDataError struct {
	GameID int
	Reason string
}

func (e *MissingGameDataError) Error() string {
	return fmt.Sprintf("game %d: missing game data: %s", e.GameID, e.Reason)
}

// InvariantViolation is raised by a derivation stage whose precondition does
// not hold. The affected game is dropped whole.
type InvariantViolation struct {
	GameID int
	Stage  string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("%s: game %d: %s", e.Stage, e.GameID, e.Detail)
}

func violation(stage string, gameID int, format string, args ...interface{}) error {
	return &InvariantViolation{GameID: gameID, Stage: stage, Detail: fmt.Sprintf(format, args...)}
}

// Skip is one entry of a run summary.
type Skip struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// RunSummary collects what a batch produced and what it had to leave out.
type RunSummary struct {
	Games   int      `json:"games"`
	Plays   int      `json:"plays"`
	Skipped []Skip   `json:"skipped,omitempty"`
	Notes   []string `json:"notes,omitempty"`
}

// SkipGame records a game that was left out of the batch.
func (s *RunSummary) SkipGame(gameID int, err error) {
	s.Skipped = append(s.Skipped, Skip{Kind: "game", ID: strconv.Itoa(gameID), Reason: err.Error()})
}

// SkipTeam records a team roster that could not be loaded.
func (s *RunSummary) SkipTeam(teamID string, err error) {
	s.Skipped = append(s.Skipped, Skip{Kind: "team", ID: teamID, Reason: err.Error()})
}

// SkipRow records an input line that belongs to no game it could name.
func (s *RunSummary) SkipRow(line string, err error) {
	s.Skipped = append(s.Skipped, Skip{Kind: "row", ID: line, Reason: err.Error()})
}

// Note records a recovered diagnostic such as a MissingFieldError.
func (s *RunSummary) Note(err error) {
	s.Notes = append(s.Notes, err.Error())
}

// Merge folds another summary into s.
func (s *RunSummary) Merge(other *RunSummary) {
	if other == nil {
		return
	}
	s.Games += other.Games
	s.Plays += other.Plays
	s.Skipped = append(s.Skipped, other.Skipped...)
	s.Notes = append(s.Notes, other.Notes...)
}

// SkippedGames returns the ids of skipped games in the order they were recorded.
func (s *RunSummary) SkippedGames() []string {
	var ids []string
	for _, skip := range s.Skipped {
		if skip.Kind == "game" {
			ids = append(ids, skip.ID)
		}
	}
	return ids
}

// IsInvariantViolation reports whether err carries an InvariantViolation.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
