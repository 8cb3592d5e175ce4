package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"decision-engine/internal/scoring"
)

// ExtractJSONObject returns the first well-formed, balanced JSON object in raw,
// ignoring code fences and surrounding prose.
func ExtractJSONObject(raw string) (string, bool) {
	text := stripCodeFence(raw)
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := balancedEnd(text, start); ok {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func stripCodeFence(input string) string {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexRune(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}

// balancedEnd finds the index of the brace closing the object opened at start.
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// PlaceholderOptions is the neutral pair returned when nothing usable was generated.
func PlaceholderOptions() []scoring.Option {
	return []scoring.Option{
		{Name: "Option A", Pros: []string{"Pro 1", "Pro 2", "Pro 3"}, Cons: []string{"Con 1", "Con 2", "Con 3"}},
		{Name: "Option B", Pros: []string{"Pro 1", "Pro 2", "Pro 3"}, Cons: []string{"Con 1", "Con 2", "Con 3"}},
	}
}

type optionsWire struct {
	Options   []scoring.Option `json:"options"`
	Rationale string           `json:"rationale"`
}

// parseOptionSet decodes a completion into options: JSON first, then mined
// prose, then the placeholder pair.
func parseOptionSet(raw string) OptionSet {
	if block, ok := ExtractJSONObject(raw); ok {
		var wire optionsWire
		if err := json.Unmarshal([]byte(block), &wire); err == nil {
			options := sanitizeOptions(wire.Options)
			if len(options) >= 2 {
				return OptionSet{Options: options, Rationale: strings.TrimSpace(wire.Rationale)}
			}
		}
	}
	if mined := MineOptions(raw); len(mined) >= 2 {
		return OptionSet{Options: mined, Mined: true}
	}
	return OptionSet{Options: PlaceholderOptions(), Placeholder: true}
}

func sanitizeOptions(in []scoring.Option) []scoring.Option {
	out := make([]scoring.Option, 0, len(in))
	for _, opt := range in {
		name := strings.TrimSpace(opt.Name)
		if name == "" {
			continue
		}
		out = append(out, scoring.Option{
			Name: name,
			Pros: trimItems(opt.Pros),
			Cons: trimItems(opt.Cons),
		})
	}
	return out
}

func trimItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

var (
	optionHeaderRe = regexp.MustCompile(`(?i)^option\s*(\d+|[a-z])?\s*(?:[:.)]|-\s)\s*(.*)$`)
	numberedRe     = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
	bulletRe       = regexp.MustCompile(`^[-•*+]\s+(.+)$`)
	prosRe         = regexp.MustCompile(`(?i)^(?:pros?|advantages|benefits)\s*(?::|-\s)\s*(.*)$`)
	consRe         = regexp.MustCompile(`(?i)^(?:cons?|disadvantages|drawbacks)\s*(?::|-\s)\s*(.*)$`)
	emphasisRe     = regexp.MustCompile("\\*\\*|__|#+|`+")
)

type mineSection int

const (
	sectionNone mineSection = iota
	sectionPros
	sectionCons
)

// MineOptions reconstructs options from bulleted or numbered prose such as
//
//	Option 1: Stay
//	Pros: Stable income, Familiar team
//	Cons:
//	- Limited growth
//
// Options without any pro or con are skipped.
func MineOptions(text string) []scoring.Option {
	var (
		options []scoring.Option
		current *scoring.Option
		section = sectionNone
		inline  bool
	)
	flush := func() {
		if current != nil && len(current.Pros)+len(current.Cons) > 0 {
			options = append(options, *current)
		}
		current = nil
		section = sectionNone
	}
	start := func(name string) {
		flush()
		if name == "" {
			name = fmt.Sprintf("Option %d", len(options)+1)
		}
		current = &scoring.Option{Name: name}
	}
	add := func(items ...string) {
		if current == nil {
			return
		}
		for _, item := range items {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if section == sectionPros {
				current.Pros = append(current.Pros, item)
			} else if section == sectionCons {
				current.Cons = append(current.Cons, item)
			}
		}
	}

	for _, rawLine := range strings.Split(stripCodeFence(text), "\n") {
		line := strings.TrimSpace(emphasisRe.ReplaceAllString(rawLine, ""))
		if line == "" {
			continue
		}
		item := line
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			item = strings.TrimSpace(m[1])
		}
		if m := optionHeaderRe.FindStringSubmatch(item); m != nil {
			start(strings.TrimRight(strings.TrimSpace(m[2]), ":"))
			continue
		}
		if m := prosRe.FindStringSubmatch(item); m != nil {
			section = sectionPros
			inline = strings.TrimSpace(m[1]) != ""
			add(splitList(m[1])...)
			continue
		}
		if m := consRe.FindStringSubmatch(item); m != nil {
			section = sectionCons
			inline = strings.TrimSpace(m[1]) != ""
			add(splitList(m[1])...)
			continue
		}
		if m := numberedRe.FindStringSubmatch(line); m != nil {
			if section == sectionNone || inline || strings.HasSuffix(m[1], ":") {
				start(strings.TrimRight(strings.TrimSpace(m[1]), ":"))
				continue
			}
			add(m[1])
			continue
		}
		if item != line {
			add(item)
		}
	}
	flush()
	return options
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
}
