// Package knowledge holds the embedded decision-domain knowledge base used to
// build prompts and to generate options without a remote model.
package knowledge

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"decision-engine/internal/scoring"
)

//go:embed domains.yaml
var domainsYAML []byte

// Domain describes one family of decisions.
type Domain struct {
	Name     string           `yaml:"name" json:"name"`
	Context  string           `yaml:"context" json:"context"`
	Keywords []string         `yaml:"keywords" json:"keywords"`
	Factors  []string         `yaml:"factors" json:"factors"`
	Examples []string         `yaml:"examples" json:"examples"`
	Options  []scoring.Option `yaml:"options" json:"options"`
}

// ProsCons is a reusable pair of pro and con lists.
type ProsCons struct {
	Pros []string `yaml:"pros" json:"pros"`
	Cons []string `yaml:"cons" json:"cons"`
}

// Alternatives holds the generic lists used for alternatives parsed out of free text.
type Alternatives struct {
	StatusQuoMarkers []string `yaml:"status_quo_markers" json:"status_quo_markers"`
	Change           ProsCons `yaml:"change" json:"change"`
	StatusQuo        ProsCons `yaml:"status_quo" json:"status_quo"`
}

// Base is the parsed knowledge base.
type Base struct {
	Domains      []Domain     `yaml:"domains" json:"domains"`
	Alternatives Alternatives `yaml:"alternatives" json:"alternatives"`
}

var (
	defaultOnce sync.Once
	defaultBase *Base
	defaultErr  error
)

// Default returns the embedded knowledge base, parsing it on first use.
func Default() (*Base, error) {
	defaultOnce.Do(func() {
		defaultBase, defaultErr = Parse(domainsYAML)
	})
	return defaultBase, defaultErr
}

// MustDefault is Default for callers that treat a broken embedded file as a programming error.
func MustDefault() *Base {
	base, err := Default()
	if err != nil {
		panic(err)
	}
	return base
}

// Parse decodes a knowledge base document.
func Parse(data []byte) (*Base, error) {
	var base Base
	if err := yaml.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	if len(base.Domains) == 0 {
		return nil, fmt.Errorf("knowledge base has no domains")
	}
	return &base, nil
}

// Domain looks up a domain by name.
func (b *Base) Domain(name string) (Domain, bool) {
	for _, d := range b.Domains {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Domain{}, false
}

// Match returns the domain whose keywords appear most often in text. Ties go to the
// domain listed first.
func (b *Base) Match(text string) (Domain, bool) {
	words := make(map[string]struct{})
	for _, w := range Tokenize(text) {
		words[w] = struct{}{}
	}
	best, bestHits := -1, 0
	for i, d := range b.Domains {
		hits := 0
		for _, kw := range d.Keywords {
			if _, ok := words[strings.ToLower(kw)]; ok {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	if best < 0 {
		return Domain{}, false
	}
	return b.Domains[best], true
}

// IsStatusQuo reports whether an alternative describes keeping things as they are.
func (b *Base) IsStatusQuo(alternative string) bool {
	tokens := Tokenize(alternative)
	for _, marker := range b.Alternatives.StatusQuoMarkers {
		m := strings.ToLower(marker)
		for _, tok := range tokens {
			if tok == m {
				return true
			}
		}
	}
	return false
}

// Tokenize lowercases text and splits it into words, keeping apostrophes.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
