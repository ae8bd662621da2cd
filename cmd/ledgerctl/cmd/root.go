// Package cmd holds the ledgerctl commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledgerbook/internal/app"
	"ledgerbook/internal/config"
	"ledgerbook/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate a ledgerbook store",
	Long: `ledgerctl reads the same environment as the server (STORAGE_DRIVER,
DATABASE_URL, REDIS_ADDR, ...) and runs one-off operations against it.`,
	Version:       app.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("business", "b", "", "business id to operate on")
	rootCmd.PersistentFlags().Bool("verbose", false, "log at debug level")
}

// openApp loads config and wires the application for one command.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	lcfg := cfg.LoggerConfig()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		lcfg.Level = "debug"
	} else {
		lcfg.Level = "warn"
	}
	log, err := logger.New(lcfg)
	if err != nil {
		return nil, err
	}
	return app.New(commandContext(cmd), cfg, log.WithComponent("ledgerctl"))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func requireBusiness(cmd *cobra.Command) (string, error) {
	biz, _ := cmd.Flags().GetString("business")
	if biz == "" {
		return "", fmt.Errorf("--business is required")
	}
	return biz, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
