package cmd

import (
	"github.com/spf13/cobra"

	"ledgerbook/internal/domain/registers/settlement"
	"ledgerbook/internal/infrastructure/http/v1/dto"
)

var balancesCmd = &cobra.Command{
	Use:   "balances [mode]",
	Short: "Print per-mode balances of a business",
	Example: `  ledgerctl balances -b shop-1
  ledgerctl balances -b shop-1 bank`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)
}

func runBalances(cmd *cobra.Command, args []string) error {
	biz, err := requireBusiness(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	if len(args) == 1 {
		mode := settlement.NormalizeMode(args[0])
		balance, err := a.Ledger.Balance(ctx, biz, mode)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"mode": mode, "balance": balance})
	}

	modes, err := a.Ledger.Balances(ctx, biz)
	if err != nil {
		return err
	}
	return printJSON(cmd, dto.NewBalancesResponse(modes))
}
