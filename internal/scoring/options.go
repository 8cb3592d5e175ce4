package scoring

import (
	"errors"
	"sort"
)

// ErrInsufficientOptions is returned when fewer than two options carry both a pro and a con.
var ErrInsufficientOptions = errors.New("at least two options need a pro and a con")

const (
	highImportanceConWeight = 1.5
	lowImportanceProWeight  = 1.2
	longTimeframeConFactor  = 1.2
	shortTimeframeProFactor = 1.1

	jitterLow  = 0.9
	jitterHigh = 1.1
)

// Float64Source supplies uniform values in [0, 1). *rand.Rand satisfies it.
type Float64Source interface {
	Float64() float64
}

// Weights returns the pro and con multipliers for the given context.
func Weights(w Weighting) (pro, con float64) {
	pro, con = 1.0, 1.0
	switch w.Importance {
	case ImportanceHigh:
		con = highImportanceConWeight
	case ImportanceLow:
		pro = lowImportanceProWeight
	}
	switch w.Timeframe {
	case TimeframeLong:
		con *= longTimeframeConFactor
	case TimeframeShort:
		pro *= shortTimeframeProFactor
	}
	return pro, con
}

// Score ranks options by weighted pro count minus weighted con count. The result is
// sorted by descending score; ties keep their input order.
func Score(options []Option, w Weighting) []ScoredOption {
	return score(options, w, nil)
}

// ScoreJittered behaves like Score but multiplies each pro term by a uniform factor in
// [0.9, 1.1] drawn from src. Rankings are not reproducible unless src is seeded.
func ScoreJittered(options []Option, w Weighting, src Float64Source) []ScoredOption {
	return score(options, w, src)
}

func score(options []Option, w Weighting, src Float64Source) []ScoredOption {
	if len(options) == 0 {
		return []ScoredOption{}
	}
	proWeight, conWeight := Weights(w)

	ranked := make([]ScoredOption, 0, len(options))
	for i, option := range options {
		pros := option.ValidPros()
		cons := option.ValidCons()
		proTerm := float64(pros) * proWeight
		if src != nil {
			proTerm *= jitterLow + src.Float64()*(jitterHigh-jitterLow)
		}
		ranked = append(ranked, ScoredOption{
			Option:    option,
			Index:     i,
			Score:     proTerm - float64(cons)*conWeight,
			ValidPros: pros,
			ValidCons: cons,
		})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	return ranked
}

// RecommendedIndex returns the pre-sort index of the top-ranked option, or -1 when empty.
func RecommendedIndex(ranked []ScoredOption) int {
	if len(ranked) == 0 {
		return -1
	}
	return ranked[0].Index
}

// ValidateOptions reports ErrInsufficientOptions unless at least two options carry both
// a non-empty pro and a non-empty con. Score itself never rejects input.
func ValidateOptions(options []Option) error {
	complete := 0
	for _, option := range options {
		if option.ValidPros() > 0 && option.ValidCons() > 0 {
			complete++
		}
	}
	if complete < 2 {
		return ErrInsufficientOptions
	}
	return nil
}
