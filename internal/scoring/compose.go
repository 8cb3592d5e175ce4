package scoring

import (
	"fmt"
	"strings"
)

// Compose renders a ranked result as a multi-line explanation. The recommendation line
// always names the top-ranked option verbatim.
func Compose(decisionText string, ranked []ScoredOption, signal ContextSignal) string {
	builder := &strings.Builder{}

	decision := strings.TrimSpace(decisionText)
	if decision == "" {
		decision = "your decision"
	}
	fmt.Fprintf(builder, "Decision: %q (importance: %s, timeframe: %s)\n", decision, signal.Importance, signal.Timeframe)

	if len(ranked) == 0 {
		builder.WriteString("\nRecommendation: no option could be recommended; add at least two options with pros and cons.\n")
		return builder.String()
	}

	builder.WriteString("\nComparison:\n")
	for _, item := range ranked {
		fmt.Fprintf(builder, "- %s: %s, %s (score %.2f)\n",
			item.Option.Name,
			plural(item.ValidPros, "pro"),
			plural(item.ValidCons, "con"),
			item.Score,
		)
	}

	fmt.Fprintf(builder, "\nRecommendation: %s appears to be the strongest choice based on your analysis.\n", ranked[0].Option.Name)

	var advice []string
	if signal.Importance == ImportanceHigh {
		advice = append(advice, "Since this is a high-importance decision, consider gathering more information or consulting others before finalizing.")
	}
	switch signal.Timeframe {
	case TimeframeLong:
		advice = append(advice, "For this long-term decision, weigh the long-term implications more heavily than short-term conveniences.")
	case TimeframeShort:
		advice = append(advice, "For this short-term decision, focus on immediate outcomes while being mindful of potential consequences.")
	}
	if len(advice) > 0 {
		builder.WriteString("\n")
		for _, line := range advice {
			builder.WriteString(line)
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
