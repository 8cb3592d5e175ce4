package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"decision-engine/internal/ai"
	"decision-engine/internal/config"
	"decision-engine/internal/engine"
	"decision-engine/internal/knowledge"
	"decision-engine/internal/scoring"
	"decision-engine/internal/store"
)

var analyzeFlags struct {
	optionsPath string
	importance  string
	timeframe   string
	remote      bool
	jitter      bool
	selected    int
	save        bool
}

var contextCmd = &cobra.Command{
	Use:   "context <decision...>",
	Short: "Infer importance, timeframe and confidence for a decision",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runContext,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <decision...>",
	Short: "Run the full pipeline and recommend an option",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	for _, cmd := range []*cobra.Command{contextCmd, analyzeCmd} {
		f := cmd.Flags()
		f.StringVar(&analyzeFlags.importance, "importance", "", "Override importance (low, medium, high)")
		f.StringVar(&analyzeFlags.timeframe, "timeframe", "", "Override timeframe (short, medium, long)")
		f.BoolVar(&analyzeFlags.remote, "remote", false, "Use the configured remote provider")
	}
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.optionsPath, "options", "", "YAML file with options (name, pros, cons)")
	f.BoolVar(&analyzeFlags.jitter, "jitter", false, "Apply random jitter to pro weights")
	f.IntVar(&analyzeFlags.selected, "selected", -1, "Index of the option you already lean towards")
	f.BoolVar(&analyzeFlags.save, "save", false, "Store the analysis in the history database")
}

func engineConfig() engine.Config {
	cfg := engine.Config{Mode: engine.ModeLocal, Jitter: analyzeFlags.jitter}
	if analyzeFlags.remote {
		cfg.Mode = engine.ModeRemote
	}
	if analyzeFlags.importance != "" || analyzeFlags.timeframe != "" {
		cfg.Override = &engine.Override{
			Importance: scoring.ParseImportance(analyzeFlags.importance),
			Timeframe:  scoring.ParseTimeframe(analyzeFlags.timeframe),
		}
	}
	if rng := newRand(); rng != nil {
		cfg.Random = rng
	}
	return cfg
}

// buildEngine wires the local heuristic and, when requested, the configured remote provider.
func buildEngine(settings config.Config, remote bool, cache ai.ResponseCache) (*engine.Engine, error) {
	base, err := knowledge.Default()
	if err != nil {
		return nil, fmt.Errorf("knowledge base: %w", err)
	}
	var provider ai.Provider
	if remote {
		provider, err = config.RemoteProvider(settings, base, cache)
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, errors.New("remote provider not configured; set ai.provider and credentials")
		}
	}
	return engine.New(ai.NewHeuristic(base), provider, settings.AI.Timeout), nil
}

func runContext(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(currentSettings, analyzeFlags.remote, ai.NewMemoryCache())
	if err != nil {
		return err
	}
	text := strings.Join(args, " ")
	stage, err := eng.InferContext(cmd.Context(), text, engineConfig())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if rootFlags.jsonOut {
		return writeJSON(out, stage)
	}
	fmt.Fprintf(out, "Importance:  %s\n", stage.Signal.Importance)
	fmt.Fprintf(out, "Timeframe:   %s\n", stage.Signal.Timeframe)
	fmt.Fprintf(out, "Confidence:  %.2f\n", stage.Signal.Confidence)
	printVerdict(out, stage.Verdict, stage.NeedsContext)
	printHints(out, stage.Extraction)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	options, err := loadOptions(analyzeFlags.optionsPath)
	if err != nil {
		return err
	}

	var db *store.Database
	var cache ai.ResponseCache = ai.NewMemoryCache()
	if analyzeFlags.save {
		var closeDB func()
		db, closeDB, err = openHistory()
		if err != nil {
			return err
		}
		defer closeDB()
		cache = db
	}

	eng, err := buildEngine(currentSettings, analyzeFlags.remote, cache)
	if err != nil {
		return err
	}
	cfg := engineConfig()
	result, err := eng.Analyze(ctx, engine.Request{Text: strings.Join(args, " "), Options: options, Config: cfg})
	gated := errors.Is(err, engine.ErrNotActionable)
	if err != nil && !gated {
		return err
	}
	if !gated && analyzeFlags.selected >= len(result.Options) {
		return fmt.Errorf("--selected %d out of range for %d options", analyzeFlags.selected, len(result.Options))
	}

	if db != nil {
		var selected *int
		if analyzeFlags.selected >= 0 {
			selected = &analyzeFlags.selected
		}
		if err := db.SaveAnalysis(ctx, store.NewAnalysis(result, cfg.Mode, selected)); err != nil {
			return fmt.Errorf("save analysis: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if rootFlags.jsonOut {
		return writeJSON(out, result)
	}
	fmt.Fprintf(out, "Context: %s importance, %s timeframe, confidence %.2f\n",
		result.Signal.Importance, result.Signal.Timeframe, result.Signal.Confidence)
	if gated {
		printVerdict(out, result.Verdict, result.NeedsContext)
		printHints(out, result.Extraction)
		return nil
	}
	if result.NeedsContext {
		fmt.Fprintln(out, "Hint: confidence is low; pass --importance and --timeframe to set the context yourself.")
	}
	fmt.Fprintln(out, "\nRanking:")
	for pos, ranked := range result.Ranked {
		fmt.Fprintf(out, "  %d. %s (score %.2f, %d pros, %d cons)\n",
			pos+1, ranked.Option.Name, ranked.Score, ranked.ValidPros, ranked.ValidCons)
	}
	fmt.Fprintf(out, "\n%s\n", strings.TrimSpace(result.Explanation))
	if analyzeFlags.selected >= 0 {
		if engine.Agrees(analyzeFlags.selected, result) {
			fmt.Fprintln(out, "\nYour choice matches the recommendation.")
		} else {
			fmt.Fprintln(out, "\nYour choice differs from the recommendation; review the trade-offs above.")
		}
	}
	if result.Degraded {
		fmt.Fprintln(out, "(remote provider unavailable; local inference was used)")
	}
	return nil
}

func printVerdict(out io.Writer, verdict scoring.Verdict, needsContext bool) {
	switch {
	case verdict.Valid && needsContext:
		fmt.Fprintln(out, "Status:      actionable, context uncertain")
	case verdict.Valid:
		fmt.Fprintln(out, "Status:      actionable")
	default:
		fmt.Fprintf(out, "Status:      %s\n", verdict.Reason)
	}
}

func printHints(out io.Writer, extraction scoring.Extraction) {
	if extraction.BetterPhrasing != "" {
		fmt.Fprintf(out, "Try:         %s\n", extraction.BetterPhrasing)
	}
	for _, q := range extraction.SuggestedQuestions {
		fmt.Fprintf(out, "  - %s\n", q)
	}
}

type optionsFile struct {
	Options []scoring.Option `yaml:"options"`
}

// loadOptions reads either a bare list of options or a document with an options key.
func loadOptions(path string) ([]scoring.Option, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options: %w", err)
	}
	var doc optionsFile
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Options) > 0 {
		return doc.Options, nil
	}
	var list []scoring.Option
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse options %s: %w", path, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no options in %s", path)
	}
	return list, nil
}
