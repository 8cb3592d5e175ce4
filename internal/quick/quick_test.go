package quick

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func seeded() *Decider {
	return New(rand.New(rand.NewPCG(1, 2)))
}

func TestFlipProducesBothFaces(t *testing.T) {
	d := seeded()
	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		seen[d.Flip()]++
	}
	if seen[Heads] == 0 || seen[Tails] == 0 || len(seen) != 2 {
		t.Fatalf("unexpected faces %v", seen)
	}
}

func TestYesNo(t *testing.T) {
	d := seeded()
	if _, err := d.YesNo("   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
	answer, err := d.YesNo("Will it rain?")
	if err != nil {
		t.Fatalf("yesno: %v", err)
	}
	found := false
	for _, a := range Answers {
		if a == answer {
			found = true
		}
	}
	if !found {
		t.Fatalf("answer %q not in fixed list", answer)
	}
}

func TestNumberRange(t *testing.T) {
	d := seeded()
	for i := 0; i < 500; i++ {
		n, err := d.Number(-3, 3)
		if err != nil {
			t.Fatalf("number: %v", err)
		}
		if n < -3 || n > 3 {
			t.Fatalf("out of range: %d", n)
		}
	}
	tests := []struct{ min, max int }{{5, 5}, {6, 1}}
	for _, tc := range tests {
		if _, err := d.Number(tc.min, tc.max); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange for [%d, %d], got %v", tc.min, tc.max, err)
		}
	}
}

func TestNumberWideRanges(t *testing.T) {
	d := seeded()
	tests := []struct{ min, max int }{
		{-1, math.MaxInt},
		{math.MinInt, 0},
		{math.MinInt, math.MaxInt},
		{math.MaxInt - 1, math.MaxInt},
	}
	for _, tc := range tests {
		for i := 0; i < 100; i++ {
			n, err := d.Number(tc.min, tc.max)
			if err != nil {
				t.Fatalf("number [%d, %d]: %v", tc.min, tc.max, err)
			}
			if n < tc.min || n > tc.max {
				t.Fatalf("%d outside [%d, %d]", n, tc.min, tc.max)
			}
		}
	}
}

func TestPick(t *testing.T) {
	d := seeded()
	if _, _, err := d.Pick([]string{"only", "  ", ""}); !errors.Is(err, ErrNotEnoughChoice) {
		t.Fatalf("expected ErrNotEnoughChoice, got %v", err)
	}
	options := []string{" tacos ", "", "sushi"}
	for i := 0; i < 50; i++ {
		choice, idx, err := d.Pick(options)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		want := []string{"tacos", "sushi"}[idx]
		if choice != want {
			t.Fatalf("index %d should be %q, got %q", idx, want, choice)
		}
	}
}

func TestSameSeedSameSequence(t *testing.T) {
	a, b := seeded(), seeded()
	for i := 0; i < 20; i++ {
		if a.Flip() != b.Flip() {
			t.Fatalf("sequences diverged at %d", i)
		}
	}
}
