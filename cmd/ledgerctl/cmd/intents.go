package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgerbook/internal/core/id"
)

var intentsCmd = &cobra.Command{
	Use:   "intents",
	Short: "Inspect operation intents (document write step logs)",
}

var intentsStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List operations that started but never finished",
	Long: `Lists open intents older than INTENT_STALE_AFTER. Each shows the steps
that committed before the process stopped, for manual repair.`,
	Args: cobra.NoArgs,
	RunE: runIntentsStale,
}

var intentsShowCmd = &cobra.Command{
	Use:   "show <operation-id>",
	Short: "Print the step log of one operation",
	Args:  cobra.ExactArgs(1),
	RunE:  runIntentsShow,
}

func init() {
	rootCmd.AddCommand(intentsCmd)
	intentsCmd.AddCommand(intentsStaleCmd, intentsShowCmd)
}

func runIntentsStale(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	stale, err := a.SweepStaleIntents(commandContext(cmd))
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no stale operations")
		return nil
	}
	return printJSON(cmd, stale)
}

func runIntentsShow(cmd *cobra.Command, args []string) error {
	opID, err := id.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid operation id %q: %w", args[0], err)
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	op, err := a.Intents.Get(commandContext(cmd), opID)
	if err != nil {
		return err
	}
	return printJSON(cmd, op)
}
