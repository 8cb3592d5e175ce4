package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"decision-engine/internal/quick"
)

var numberFlags struct {
	min int
	max int
}

var flipCmd = &cobra.Command{
	Use:   "flip",
	Short: "Flip a coin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printQuick(cmd, map[string]interface{}{"result": quick.New(newRand()).Flip()})
	},
}

var yesNoCmd = &cobra.Command{
	Use:   "yesno <question...>",
	Short: "Answer a yes/no question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		answer, err := quick.New(newRand()).YesNo(question)
		if err != nil {
			return err
		}
		return printQuick(cmd, map[string]interface{}{"question": question, "result": answer})
	},
}

var numberCmd = &cobra.Command{
	Use:   "number",
	Short: "Pick a whole number between --min and --max",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		n, err := quick.New(newRand()).Number(numberFlags.min, numberFlags.max)
		if err != nil {
			return err
		}
		return printQuick(cmd, map[string]interface{}{"min": numberFlags.min, "max": numberFlags.max, "result": n})
	},
}

var pickCmd = &cobra.Command{
	Use:   "pick <option> <option> [option...]",
	Short: "Pick one of several options at random",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		choice, idx, err := quick.New(newRand()).Pick(args)
		if err != nil {
			return err
		}
		return printQuick(cmd, map[string]interface{}{"result": choice, "index": idx})
	},
}

func init() {
	f := numberCmd.Flags()
	f.IntVar(&numberFlags.min, "min", 1, "Lowest number")
	f.IntVar(&numberFlags.max, "max", 10, "Highest number")
}

func printQuick(cmd *cobra.Command, payload map[string]interface{}) error {
	out := cmd.OutOrStdout()
	if rootFlags.jsonOut {
		return writeJSON(out, payload)
	}
	_, err := fmt.Fprintln(out, payload["result"])
	return err
}
