package scoring

import (
	"regexp"
	"strings"
)

const (
	baseConfidence      = 0.5
	importanceBonus     = 0.2
	timeframeBonus      = 0.1
	shortTextThreshold  = 15
	shortTextPenalty    = 0.2
	missingChoiceFactor = 0.7
)

// Extraction is the output of Extract: the context signal plus clarification hints.
type Extraction struct {
	ContextSignal
	HasChoiceMarker    bool     `json:"has_choice_marker"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
	BetterPhrasing     string   `json:"better_phrasing,omitempty"`
}

var (
	highImportancePattern = wordPattern("critical", "important", "life", "career", "health", "marriage", "serious", "major")
	lowImportancePattern  = wordPattern("minor", "small", "trivial", "little")

	shortTimeframePattern  = wordPattern("urgent", "urgently", "immediate", "immediately", "today", "tonight", "quickly", "asap", "right now")
	longTimeframePattern   = wordPattern("long-term", "long term", "future", "years", "permanent", "lifetime", "forever", "retirement")
	mediumTimeframePattern = wordPattern("next month", "soon", "few weeks", "this year")

	choicePhrasePattern = regexp.MustCompile(`(?i)\bshould i\b`)
	choiceWordPattern   = regexp.MustCompile(`(?i)\bor\b`)

	shouldIPattern     = regexp.MustCompile(`(?i)^should i\s+(.+)$`)
	alternativePattern = regexp.MustCompile(`(?i)^(.+?)\s+or\s+(.+)$`)
)

// actionVerbs are leading words that let a bare phrase be rewritten as "Should I ...?".
var actionVerbs = map[string]struct{}{
	"accept": {}, "buy": {}, "change": {}, "go": {}, "invest": {}, "join": {}, "learn": {},
	"leave": {}, "move": {}, "quit": {}, "rent": {}, "sell": {}, "start": {}, "study": {},
	"switch": {}, "take": {}, "travel": {}, "adopt": {}, "hire": {}, "retire": {},
}

// Extract infers importance, timeframe and confidence from free text. It never fails:
// empty or unrecognisable input yields a low-confidence medium/medium signal.
func Extract(text string) Extraction {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Extraction{
			ContextSignal:      DefaultSignal(),
			SuggestedQuestions: []string{"What decision are you trying to make?"},
		}
	}

	signal := ContextSignal{
		Importance: ImportanceMedium,
		Timeframe:  TimeframeMedium,
		Confidence: baseConfidence,
	}

	importanceMatched := true
	switch {
	case highImportancePattern.MatchString(trimmed):
		signal.Importance = ImportanceHigh
		signal.Confidence += importanceBonus
	case lowImportancePattern.MatchString(trimmed):
		signal.Importance = ImportanceLow
		signal.Confidence += importanceBonus
	default:
		importanceMatched = false
	}

	timeframeMatched := true
	switch {
	case shortTimeframePattern.MatchString(trimmed):
		signal.Timeframe = TimeframeShort
		signal.Confidence += timeframeBonus
	case longTimeframePattern.MatchString(trimmed):
		signal.Timeframe = TimeframeLong
		signal.Confidence += timeframeBonus
	case mediumTimeframePattern.MatchString(trimmed):
		signal.Timeframe = TimeframeMedium
		signal.Confidence += timeframeBonus
	default:
		timeframeMatched = false
	}

	if len([]rune(trimmed)) < shortTextThreshold {
		signal.Confidence *= shortTextPenalty
	}

	hasChoice := choicePhrasePattern.MatchString(trimmed) || choiceWordPattern.MatchString(trimmed)
	if !hasChoice {
		signal.Confidence *= missingChoiceFactor
	}

	signal.Confidence = ClampConfidence(signal.Confidence)

	out := Extraction{ContextSignal: signal, HasChoiceMarker: hasChoice}
	if signal.NeedsContext() || !hasChoice {
		out.SuggestedQuestions = clarifyingQuestions(hasChoice, importanceMatched, timeframeMatched)
	}
	if signal.NeedsContext() {
		out.BetterPhrasing = rephrase(trimmed)
	}
	return out
}

func clarifyingQuestions(hasChoice, importanceMatched, timeframeMatched bool) []string {
	var questions []string
	if !hasChoice {
		questions = append(questions,
			"What options are you choosing between?",
			`Could you phrase this as a choice, for example "Should I X or Y?"`,
		)
	}
	if !importanceMatched {
		questions = append(questions, "How important is this decision to you?")
	}
	if !timeframeMatched {
		questions = append(questions, "When do you need to make this decision?")
	}
	if len(questions) == 0 {
		questions = append(questions, "What outcome matters most to you here?")
	}
	return questions
}

// rephrase returns a templated rewrite of a weak statement, or "" when no pattern applies.
func rephrase(text string) string {
	core := strings.TrimRight(strings.TrimSpace(text), "?.! ")
	if core == "" {
		return ""
	}
	if m := shouldIPattern.FindStringSubmatch(core); m != nil {
		rest := strings.TrimSpace(m[1])
		if choiceWordPattern.MatchString(rest) {
			return "Should I " + rest + "?"
		}
		return "Should I " + rest + ", or keep things as they are?"
	}
	if m := alternativePattern.FindStringSubmatch(core); m != nil {
		return "Should I " + lowerFirst(strings.TrimSpace(m[1])) + " or " + strings.TrimSpace(m[2]) + "?"
	}
	fields := strings.Fields(core)
	if _, ok := actionVerbs[strings.ToLower(fields[0])]; ok {
		return "Should I " + lowerFirst(core) + "?"
	}
	return ""
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToLower(string(r[0])))[0]
	return string(r)
}

func wordPattern(words ...string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
