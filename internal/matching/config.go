package matching

import (
	"github.com/advancehq/reconciliation-backend/internal/status"
	"github.com/advancehq/reconciliation-backend/pkg/config"
)

// Config carries the thresholds and tolerance the engine matches with.
// Scorer is pluggable so tests can pin similarity behavior.
type Config struct {
	RefSimilarityThreshold  float64
	NameSimilarityThreshold float64
	Tolerance               status.Tolerance
	Scorer                  Scorer
}

// NewConfig maps the environment-level matching knobs onto an engine
// config with the default Levenshtein scorer.
func NewConfig(mc config.MatchingConfig) Config {
	return Config{
		RefSimilarityThreshold:  mc.RefSimilarityThreshold,
		NameSimilarityThreshold: mc.NameSimilarityThreshold,
		Tolerance: status.Tolerance{
			Flat: mc.FeeToleranceFlat,
			Pct:  mc.FeeTolerancePct,
		},
		Scorer: LevenshteinScorer,
	}
}

func (c Config) scorer() Scorer {
	if c.Scorer != nil {
		return c.Scorer
	}
	return LevenshteinScorer
}
