// Package quick holds the one-shot random deciders: coin flip, yes/no answer,
// number in a range and pick-one-of.
package quick

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
)

var (
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrInvalidRange    = errors.New("maximum must be greater than minimum")
	ErrNotEnoughChoice = errors.New("at least two non-empty options are required")
)

// Answers is the fixed set of yes/no replies.
var Answers = []string{
	"Yes", "No", "Definitely yes", "Definitely no",
	"Maybe", "Probably", "Probably not", "Ask again later",
	"Without a doubt", "Very doubtful", "Cannot predict now",
	"Signs point to yes", "Don't count on it", "Most likely", "Outlook good",
}

// Coin faces.
const (
	Heads = "Heads"
	Tails = "Tails"
)

// Decider draws from a single random source. It is safe for concurrent use.
type Decider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Decider. A nil rng uses a randomly seeded PCG source.
func New(rng *rand.Rand) *Decider {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Decider{rng: rng}
}

func (d *Decider) intN(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(n)
}

// Flip returns Heads or Tails.
func (d *Decider) Flip() string {
	if d.intN(2) == 0 {
		return Heads
	}
	return Tails
}

// YesNo answers a non-empty question.
func (d *Decider) YesNo(question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	return Answers[d.intN(len(Answers))], nil
}

// Number returns an integer in [min, max]. max must be greater than min.
func (d *Decider) Number(min, max int) (int, error) {
	if min >= max {
		return 0, ErrInvalidRange
	}
	span := uint64(max) - uint64(min) + 1
	d.mu.Lock()
	defer d.mu.Unlock()
	// span wraps to zero only for the full int range.
	if span == 0 {
		return int(d.rng.Uint64()), nil
	}
	return int(uint64(min) + d.rng.Uint64N(span)), nil
}

// Pick chooses one of the non-empty options. It returns the chosen option and its
// index among the non-empty ones.
func (d *Decider) Pick(options []string) (string, int, error) {
	valid := make([]string, 0, len(options))
	for _, opt := range options {
		if trimmed := strings.TrimSpace(opt); trimmed != "" {
			valid = append(valid, trimmed)
		}
	}
	if len(valid) < 2 {
		return "", -1, ErrNotEnoughChoice
	}
	idx := d.intN(len(valid))
	return valid[idx], idx, nil
}
