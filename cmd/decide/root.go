package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"decision-engine/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	jsonOut    bool
	seed       uint64
}

var rootCmd = &cobra.Command{
	Use:   "decide",
	Short: "Score decisions and extract their context",
	Long: "decide infers importance, timeframe and confidence from a decision statement,\n" +
		"generates or accepts options and ranks them with a weighted pros/cons score.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Load(rootFlags.configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			settings.Log.Level, _ = cmd.Flags().GetString("log-level")
		} else {
			settings.Log.Level = "warn"
		}
		if err := config.ConfigureLogging(settings.Log); err != nil {
			return err
		}
		currentSettings = settings
		return nil
	},
}

// currentSettings is loaded once per invocation by the root pre-run hook.
var currentSettings config.Config

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Path to a YAML config file")
	pf.BoolVar(&rootFlags.jsonOut, "json", false, "Print JSON instead of text")
	pf.Uint64Var(&rootFlags.seed, "seed", 0, "Seed for random choices (0 picks one)")
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(flipCmd)
	rootCmd.AddCommand(yesNoCmd)
	rootCmd.AddCommand(numberCmd)
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRand() *rand.Rand {
	if rootFlags.seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(rootFlags.seed, rootFlags.seed^0x9e3779b97f4a7c15))
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
