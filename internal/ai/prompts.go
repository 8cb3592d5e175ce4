package ai

import (
	"fmt"
	"strings"

	"decision-engine/internal/knowledge"
)

func writeDomains(builder *strings.Builder, base *knowledge.Base) {
	builder.WriteString("Common decision domains include:\n")
	for _, d := range base.Domains {
		fmt.Fprintf(builder, "- %s: %s\n", strings.ToUpper(d.Name), d.Context)
	}
	builder.WriteString("\n")
}

func contextSystemPrompt(base *knowledge.Base) string {
	builder := &strings.Builder{}
	builder.WriteString("You are a decision analysis assistant that helps people make better decisions. ")
	builder.WriteString("Analyze a decision question and extract key information, even when the question is vague or lacks explicit options.\n\n")
	writeDomains(builder, base)
	builder.WriteString("Examples of decision questions per domain:\n")
	for _, d := range base.Domains {
		fmt.Fprintf(builder, "%s EXAMPLES:\n", strings.ToUpper(d.Name))
		for _, ex := range d.Examples {
			fmt.Fprintf(builder, "- %q\n", ex)
		}
	}
	builder.WriteString("\nReturn your analysis as a JSON object with keys: ")
	builder.WriteString(`understood (boolean, true if you can work with this question even if vague), `)
	builder.WriteString(`importance ("low", "medium" or "high"), `)
	builder.WriteString(`timeframe ("short", "medium" or "long"), `)
	builder.WriteString(`confidence (number between 0.1 and 0.9), `)
	builder.WriteString(`suggestedQuestions (array of strings when clarification would help), `)
	builder.WriteString(`betterPhrasing (optional clearer wording that keeps the original intent).`)
	builder.WriteString("\nIf the question is workable but lacks specifics, set understood to true with a lower confidence and suggested questions. ")
	builder.WriteString("If it is extremely vague with no context clues, set understood to false. ")
	builder.WriteString("Be generous in your understanding. Emit nothing outside the JSON object.\n")
	return builder.String()
}

func contextUserPrompt(text string) string {
	return fmt.Sprintf("Analyze this decision question: %q", text)
}

func optionsSystemPrompt(base *knowledge.Base) string {
	builder := &strings.Builder{}
	builder.WriteString("You are a decision assistant specializing in generating realistic options for a decision.\n\n")
	writeDomains(builder, base)
	builder.WriteString("Factors to consider per domain:\n")
	for _, d := range base.Domains {
		fmt.Fprintf(builder, "- %s: %s\n", strings.ToUpper(d.Name), strings.Join(d.Factors, ", "))
	}
	builder.WriteString("\nProvide 2-4 realistic options, each with a clear descriptive name, at least 3 pros and at least 3 cons. ")
	builder.WriteString(`Reply with a strict JSON object {"options":[{"name":"...","pros":["..."],"cons":["..."]}],"rationale":"..."}. `)
	builder.WriteString("If the question is unclear, infer the most likely options being considered; reasonable assumptions beat an empty response. ")
	builder.WriteString("Do not use markdown and emit nothing outside the JSON object.\n")
	return builder.String()
}

func optionsUserPrompt(text string) string {
	return fmt.Sprintf("Generate options for this decision: %q", text)
}

func analysisSystemPrompt(base *knowledge.Base) string {
	builder := &strings.Builder{}
	builder.WriteString("You are a decision analyst helping people make better informed choices.\n\n")
	writeDomains(builder, base)
	builder.WriteString("Weigh short-term and long-term implications, balance emotional and rational considerations, ")
	builder.WriteString("and account for the decision's importance and time sensitivity.\n")
	builder.WriteString("Begin with \"Recommendation:\" followed by the suggested option, explain the reasoning concisely, ")
	builder.WriteString("point out the key factors, suggest gathering more information for high-importance decisions, ")
	builder.WriteString("emphasize future implications for long-term decisions, and close with one or two practical next steps.\n")
	builder.WriteString("Reply in plain text, not JSON.\n")
	return builder.String()
}

func analysisUserPrompt(input ExplanationInput) string {
	builder := &strings.Builder{}
	fmt.Fprintf(builder, "Decision: %q\n\nOptions:\n", input.Decision)
	for idx, opt := range input.Options {
		fmt.Fprintf(builder, "Option %d: %s\n", idx+1, opt.Name)
		fmt.Fprintf(builder, "Pros: %s\n", strings.Join(trimItems(opt.Pros), ", "))
		fmt.Fprintf(builder, "Cons: %s\n", strings.Join(trimItems(opt.Cons), ", "))
	}
	if len(input.Ranked) > 0 {
		fmt.Fprintf(builder, "\nHeuristic ranking puts %q first (score %.2f).\n", input.Ranked[0].Option.Name, input.Ranked[0].Score)
	}
	fmt.Fprintf(builder, "\nImportance: %s\nTimeframe: %s\n\n", input.Context.Importance, input.Context.Timeframe)
	builder.WriteString("Based on this information, what do you recommend?\n")
	return builder.String()
}
