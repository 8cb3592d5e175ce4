package scoring

import (
	"strings"
	"testing"
)

func TestExtractScenarios(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		importance    Importance
		timeframe     Timeframe
		minConfidence float64
		maxConfidence float64
	}{
		{"too short", "move", ImportanceMedium, TimeframeMedium, MinConfidence, 0.2},
		{"urgent life choice", "Should I take this urgent, life-changing job offer or stay?", ImportanceHigh, TimeframeShort, 0.7, MaxConfidence},
		{"trivial short term", "Should I buy the small coffee or the large one today?", ImportanceLow, TimeframeShort, 0.7, MaxConfidence},
		{"long horizon", "Should I rent or buy a house for the next few years?", ImportanceMedium, TimeframeLong, 0.55, 0.65},
		{"medium horizon", "Should I switch gyms soon or keep my membership?", ImportanceMedium, TimeframeMedium, 0.55, 0.65},
		{"no cues", "Should I learn guitar or piano?", ImportanceMedium, TimeframeMedium, 0.45, 0.55},
		{"no choice marker", "thinking about a new apartment downtown", ImportanceMedium, TimeframeMedium, 0.3, 0.4},
		{"empty", "", ImportanceMedium, TimeframeMedium, MinConfidence, MinConfidence},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Extract(tc.text)
			if got.Importance != tc.importance {
				t.Fatalf("expected importance %s got %s", tc.importance, got.Importance)
			}
			if got.Timeframe != tc.timeframe {
				t.Fatalf("expected timeframe %s got %s", tc.timeframe, got.Timeframe)
			}
			if got.Confidence < tc.minConfidence || got.Confidence > tc.maxConfidence {
				t.Fatalf("confidence %.3f outside [%.2f, %.2f]", got.Confidence, tc.minConfidence, tc.maxConfidence)
			}
		})
	}
}

func TestExtractTimeframePriority(t *testing.T) {
	got := Extract("Should I decide today about my retirement savings or wait?")
	if got.Timeframe != TimeframeShort {
		t.Fatalf("short cues must win over long cues, got %s", got.Timeframe)
	}
	got = Extract("Should I plan for the future or see what happens soon?")
	if got.Timeframe != TimeframeLong {
		t.Fatalf("long cues must win over medium cues, got %s", got.Timeframe)
	}
}

func TestExtractConfidenceBounds(t *testing.T) {
	inputs := []string{
		"",
		" ",
		"?",
		"or",
		"critical urgent life career health marriage today immediately or should i",
		strings.Repeat("should i do something important today or not ", 50),
		"minor trivial little small",
		"こんにちは、どうすればいいですか",
	}
	for _, input := range inputs {
		got := Extract(input)
		if got.Confidence < MinConfidence || got.Confidence > MaxConfidence {
			t.Fatalf("confidence %.3f out of bounds for %q", got.Confidence, input)
		}
	}
}

func TestExtractClarificationHints(t *testing.T) {
	got := Extract("move")
	if got.HasChoiceMarker {
		t.Fatalf("expected no choice marker")
	}
	if len(got.SuggestedQuestions) == 0 {
		t.Fatalf("expected clarifying questions for unclear input")
	}
	if got.BetterPhrasing != "Should I move?" {
		t.Fatalf("unexpected rephrasing %q", got.BetterPhrasing)
	}

	got = Extract("Should I take this urgent, life-changing job offer or stay?")
	if len(got.SuggestedQuestions) != 0 || got.BetterPhrasing != "" {
		t.Fatalf("confident input should carry no hints, got %v %q", got.SuggestedQuestions, got.BetterPhrasing)
	}
}

func TestRephrase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"should i quit", "Should I quit, or keep things as they are?"},
		{"should i stay or go?", "Should I stay or go?"},
		{"Tea or coffee", "Should I tea or coffee?"},
		{"Buy a bike", "Should I buy a bike?"},
		{"hmm", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := rephrase(tc.in); got != tc.want {
			t.Fatalf("rephrase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
