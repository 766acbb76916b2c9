package pbp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Pipeline runs the derivation stages over normalized rows of one source.
type Pipeline struct {
	classifier Classifier
	rules      ConversionRules
	order      Ordering
	log        *logrus.Entry
}

// NewPipeline returns a pipeline configured for source.
func NewPipeline(source Source, rules ConversionRules, log *logrus.Entry) *Pipeline {
	pl := &Pipeline{rules: rules, log: log.WithField("source", string(source))}
	switch source {
	case SourceHudl:
		pl.classifier, pl.order = ResultClassifier{Rules: rules}, OrderChronological
	case SourceDSFootball:
		pl.classifier, pl.order = FlagClassifier{Rules: rules}, OrderChronological
	default:
		pl.classifier, pl.order = SummaryClassifier{Rules: rules}, OrderReverseDrive
	}
	return pl
}

// Derive sorts rows and runs indexing through context building game by
// game. A game whose derivation fails is dropped whole and recorded in the
// summary; the other games are unaffected.
func (pl *Pipeline) Derive(rows []*Play) ([]*Play, *RunSummary) {
	summary := &RunSummary{}
	SortRaw(rows, pl.order)

	var out []*Play
	for _, game := range SplitGames(rows) {
		if err := pl.deriveGame(game); err != nil {
			pl.drop(summary, game, err)
			continue
		}
		summary.Games++
		summary.Plays += len(game)
		out = append(out, game...)
	}
	return out, summary
}

func (pl *Pipeline) deriveGame(game []*Play) error {
	stages := []func([]*Play) error{
		Index,
		func(g []*Play) error { return Classify(g, pl.classifier) },
		ResolvePossession,
		func(g []*Play) error { return FieldPosition(g, pl.rules) },
		Score,
		BuildContext,
	}
	for _, stage := range stages {
		if err := stage(game); err != nil {
			return err
		}
	}
	return nil
}

// Enrich queries predictor game by game and attaches the EP and WP columns.
// Rows must come from Derive.
func (pl *Pipeline) Enrich(ctx context.Context, rows []*Play, predictor Predictor) ([]*Play, *RunSummary) {
	summary := &RunSummary{}
	var out []*Play
	for _, game := range SplitGames(rows) {
		if err := ctx.Err(); err != nil {
			pl.drop(summary, game, err)
			continue
		}
		if err := pl.enrichGame(ctx, game, predictor); err != nil {
			pl.drop(summary, game, err)
			continue
		}
		summary.Games++
		summary.Plays += len(game)
		out = append(out, game...)
	}
	return out, summary
}

func (pl *Pipeline) enrichGame(ctx context.Context, game []*Play, predictor Predictor) error {
	probs, err := predictor.PredictEP(ctx, FeaturesOf(game))
	if err != nil {
		return fmt.Errorf("predict ep: %w", err)
	}
	if err := ApplyEP(game, probs); err != nil {
		return err
	}

	wp, err := predictor.PredictWP(ctx, FeaturesOf(game))
	if err != nil {
		return fmt.Errorf("predict wp: %w", err)
	}
	return ApplyWP(game, wp)
}

// Run derives and enriches rows. With a nil predictor the EP and WP
// columns stay empty.
func (pl *Pipeline) Run(ctx context.Context, rows []*Play, predictor Predictor) ([]*Play, *RunSummary) {
	derived, summary := pl.Derive(rows)
	if predictor == nil {
		return derived, summary
	}
	enriched, enrichSummary := pl.Enrich(ctx, derived, predictor)
	summary.Games, summary.Plays = enrichSummary.Games, enrichSummary.Plays
	summary.Skipped = append(summary.Skipped, enrichSummary.Skipped...)
	return enriched, summary
}

func (pl *Pipeline) drop(summary *RunSummary, game []*Play, err error) {
	gameID := game[0].GameID
	pl.log.WithFields(logrus.Fields{
		"game_id":   gameID,
		"rows":      len(game),
		"invariant": IsInvariantViolation(err),
	}).WithError(err).Error("Dropping game")
	summary.SkipGame(gameID, err)
}
