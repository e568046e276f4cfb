package enums

import "fmt"

// MatchBasis records which heuristic produced a reconciliation link.
// MatchBasisManualTolerance is reserved for operator-recorded links; the
// matching engine never emits it on its own.
type MatchBasis string

const (
	MatchBasisExactReference  MatchBasis = "EXACT_REFERENCE"
	MatchBasisFuzzyReference  MatchBasis = "FUZZY_REFERENCE"
	MatchBasisNameAmount      MatchBasis = "NAME_AMOUNT"
	MatchBasisManualTolerance MatchBasis = "MANUAL_TOLERANCE"
)

var validMatchBases = []MatchBasis{
	MatchBasisExactReference,
	MatchBasisFuzzyReference,
	MatchBasisNameAmount,
	MatchBasisManualTolerance,
}

// IsValid reports whether the value matches the canonical match basis enum.
func (m MatchBasis) IsValid() bool {
	for _, candidate := range validMatchBases {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMatchBasis converts the raw string to MatchBasis.
func ParseMatchBasis(value string) (MatchBasis, error) {
	for _, candidate := range validMatchBases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid match basis %q", value)
}
