package scoring

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func rankedNames(ranked []ScoredOption) []string {
	names := make([]string, 0, len(ranked))
	for _, item := range ranked {
		names = append(names, item.Option.Name)
	}
	return names
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreHighImportanceScenario(t *testing.T) {
	options := []Option{
		{Name: "A", Pros: []string{"x", "y"}, Cons: []string{"z"}},
		{Name: "B", Pros: []string{"x"}, Cons: []string{"z", "w"}},
	}
	ranked := Score(options, Weighting{Importance: ImportanceHigh, Timeframe: TimeframeMedium})

	if diff := cmp.Diff([]string{"A", "B"}, rankedNames(ranked)); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
	if !approxEqual(ranked[0].Score, 0.5) {
		t.Fatalf("expected A score 0.5 got %v", ranked[0].Score)
	}
	if !approxEqual(ranked[1].Score, -2.0) {
		t.Fatalf("expected B score -2.0 got %v", ranked[1].Score)
	}
	if idx := RecommendedIndex(ranked); idx != 0 {
		t.Fatalf("expected recommended index 0 got %d", idx)
	}
}

func TestWeights(t *testing.T) {
	tests := []struct {
		name string
		w    Weighting
		pro  float64
		con  float64
	}{
		{"neutral", Weighting{ImportanceMedium, TimeframeMedium}, 1.0, 1.0},
		{"high", Weighting{ImportanceHigh, TimeframeMedium}, 1.0, 1.5},
		{"low", Weighting{ImportanceLow, TimeframeMedium}, 1.2, 1.0},
		{"long", Weighting{ImportanceMedium, TimeframeLong}, 1.0, 1.2},
		{"short", Weighting{ImportanceMedium, TimeframeShort}, 1.1, 1.0},
		{"high long", Weighting{ImportanceHigh, TimeframeLong}, 1.0, 1.8},
		{"low short", Weighting{ImportanceLow, TimeframeShort}, 1.32, 1.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pro, con := Weights(tc.w)
			if !approxEqual(pro, tc.pro) || !approxEqual(con, tc.con) {
				t.Fatalf("expected (%v, %v) got (%v, %v)", tc.pro, tc.con, pro, con)
			}
		})
	}
}

func TestScoreRecommendedIndexIsPreSortIndex(t *testing.T) {
	options := []Option{
		{Name: "weak", Pros: []string{"a"}, Cons: []string{"b", "c", "d"}},
		{Name: "strong", Pros: []string{"a", "b", "c"}, Cons: []string{"d"}},
	}
	ranked := Score(options, Weighting{ImportanceMedium, TimeframeMedium})
	if idx := RecommendedIndex(ranked); idx != 1 {
		t.Fatalf("expected pre-sort index 1 got %d", idx)
	}
}

func TestScoreIgnoresBlankEntries(t *testing.T) {
	options := []Option{
		{Name: "padded", Pros: []string{"a", " ", ""}, Cons: []string{"\t"}},
	}
	ranked := Score(options, Weighting{ImportanceMedium, TimeframeMedium})
	if ranked[0].ValidPros != 1 || ranked[0].ValidCons != 0 || !approxEqual(ranked[0].Score, 1) {
		t.Fatalf("unexpected scored option %+v", ranked[0])
	}
}

func TestScoreEmpty(t *testing.T) {
	ranked := Score(nil, Weighting{ImportanceHigh, TimeframeLong})
	if len(ranked) != 0 {
		t.Fatalf("expected no ranked options got %d", len(ranked))
	}
	if idx := RecommendedIndex(ranked); idx != -1 {
		t.Fatalf("expected -1 sentinel got %d", idx)
	}
}

func TestScoreTieKeepsInputOrder(t *testing.T) {
	options := []Option{
		{Name: "first", Pros: []string{"a"}, Cons: []string{"b"}},
		{Name: "better", Pros: []string{"a", "b"}, Cons: nil},
		{Name: "second", Pros: []string{"c"}, Cons: []string{"d"}},
		{Name: "third", Pros: []string{"e"}, Cons: []string{"f"}},
	}
	ranked := Score(options, Weighting{ImportanceMedium, TimeframeMedium})
	want := []string{"better", "first", "second", "third"}
	if diff := cmp.Diff(want, rankedNames(ranked)); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreDeterministic(t *testing.T) {
	options := []Option{
		{Name: "a", Pros: []string{"1", "2"}, Cons: []string{"1", "2"}},
		{Name: "b", Pros: []string{"1"}, Cons: nil},
		{Name: "c", Pros: []string{"1", "2", "3"}, Cons: []string{"1"}},
	}
	w := Weighting{ImportanceLow, TimeframeLong}
	first := Score(options, w)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, Score(options, w)); diff != "" {
			t.Fatalf("scoring is not deterministic:\n%s", diff)
		}
	}
}

func TestScoreMonotonic(t *testing.T) {
	contexts := []Weighting{
		{ImportanceLow, TimeframeShort},
		{ImportanceMedium, TimeframeMedium},
		{ImportanceHigh, TimeframeLong},
	}
	base := Option{Name: "A", Pros: []string{"x"}, Cons: []string{"y"}}
	for _, w := range contexts {
		before := Score([]Option{base}, w)[0].Score

		morePros := base
		morePros.Pros = append(append([]string{}, base.Pros...), "extra pro")
		if after := Score([]Option{morePros}, w)[0].Score; after < before {
			t.Fatalf("adding a pro decreased score %v -> %v under %+v", before, after, w)
		}

		moreCons := base
		moreCons.Cons = append(append([]string{}, base.Cons...), "extra con")
		if after := Score([]Option{moreCons}, w)[0].Score; after > before {
			t.Fatalf("adding a con increased score %v -> %v under %+v", before, after, w)
		}
	}
}

func TestScoreImportanceWeighting(t *testing.T) {
	conHeavy := []Option{{Name: "risky", Pros: []string{"a"}, Cons: []string{"b", "c", "d"}}}
	for _, tf := range []Timeframe{TimeframeShort, TimeframeMedium, TimeframeLong} {
		high := Score(conHeavy, Weighting{ImportanceHigh, tf})[0].Score
		low := Score(conHeavy, Weighting{ImportanceLow, tf})[0].Score
		if high > low {
			t.Fatalf("high importance scored con-heavy option above low (%v > %v) for %s", high, low, tf)
		}
	}
}

func TestScoreJitteredStaysInBand(t *testing.T) {
	options := []Option{{Name: "a", Pros: []string{"1", "2"}, Cons: []string{"1"}}}
	w := Weighting{ImportanceMedium, TimeframeMedium}
	src := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 100; i++ {
		got := ScoreJittered(options, w, src)[0].Score
		if got < 2*0.9-1-1e-9 || got > 2*1.1-1+1e-9 {
			t.Fatalf("jittered score %v outside expected band", got)
		}
	}
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
		wantErr bool
	}{
		{"none", nil, true},
		{"one complete", []Option{{Name: "a", Pros: []string{"p"}, Cons: []string{"c"}}}, true},
		{"second lacks con", []Option{
			{Name: "a", Pros: []string{"p"}, Cons: []string{"c"}},
			{Name: "b", Pros: []string{"p"}, Cons: []string{" "}},
		}, true},
		{"two complete", []Option{
			{Name: "a", Pros: []string{"p"}, Cons: []string{"c"}},
			{Name: "b", Pros: []string{"p"}, Cons: []string{"c"}},
		}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateOptions(tc.options)
			if tc.wantErr && !errors.Is(err, ErrInsufficientOptions) {
				t.Fatalf("expected ErrInsufficientOptions got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}
