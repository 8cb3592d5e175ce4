package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"decision-engine/internal/store"
)

var historyFlags struct {
	query     string
	validOnly bool
	sort      string
	limit     int
}

var pruneFlags struct {
	olderThan time.Duration
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analyses",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop cached provider responses older than --older-than",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

func init() {
	f := historyCmd.Flags()
	f.StringVarP(&historyFlags.query, "query", "q", "", "Only analyses whose text contains this")
	f.BoolVar(&historyFlags.validOnly, "valid", false, "Only actionable analyses")
	f.StringVar(&historyFlags.sort, "sort", "", "created_asc, confidence_desc or confidence_asc (default newest first)")
	f.IntVar(&historyFlags.limit, "limit", 20, "Maximum rows to print")

	pruneCmd.Flags().DurationVar(&pruneFlags.olderThan, "older-than", 0, "Age cutoff (defaults to ai.cache_ttl)")
}

// openHistory opens the configured database, creating its directory when missing.
func openHistory() (*store.Database, func(), error) {
	path := currentSettings.Server.DBPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}
	db, err := store.Open(path, true)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return db, func() {
		if cerr := db.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}, nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	db, closeDB, err := openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	rows, total, err := db.ListAnalyses(cmd.Context(), store.AnalysisQuery{
		Query:     historyFlags.query,
		ValidOnly: historyFlags.validOnly,
		Sort:      historyFlags.sort,
		Limit:     historyFlags.limit,
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if rootFlags.jsonOut {
		return writeJSON(out, map[string]interface{}{"items": rows, "total": total})
	}
	fmt.Fprintf(out, "%d of %d analyses\n", len(rows), total)
	for _, row := range rows {
		status := row.Recommended
		if !row.Valid {
			status = row.Reason
		}
		fmt.Fprintf(out, "%s  %-6s %-6s %.2f  %q -> %s\n",
			row.CreatedAt.Format(time.DateTime), row.Importance, row.Timeframe, row.Confidence, row.Text, status)
	}
	return nil
}

func runPrune(cmd *cobra.Command, _ []string) error {
	age := pruneFlags.olderThan
	if age <= 0 {
		age = currentSettings.AI.CacheTTL
	}
	if age <= 0 {
		return fmt.Errorf("no cutoff: pass --older-than or set ai.cache_ttl")
	}
	db, closeDB, err := openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	pruned, err := db.PruneResponses(cmd.Context(), time.Now().Add(-age))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d cached responses\n", pruned)
	return nil
}
