package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ledgerbook/internal/infrastructure/http/v1/dto"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Compute totals and status for a document without saving it",
	Long: `Reads a document in the API's create format and prints the totals,
payment status and outstanding balance it would get. Nothing is written.`,
	Example: `  ledgerctl preview -b shop-1 --file invoice.json
  cat invoice.json | ledgerctl preview -b shop-1`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringP("file", "f", "", "document JSON file (default: stdin)")
}

func runPreview(cmd *cobra.Command, _ []string) error {
	biz, err := requireBusiness(cmd)
	if err != nil {
		return err
	}

	var src io.Reader = cmd.InOrStdin()
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	var req dto.CreateDocumentRequest
	if err := json.NewDecoder(src).Decode(&req); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	in, err := req.ToInput()
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	preview, err := a.Documents.Preview(commandContext(cmd), biz, in)
	if err != nil {
		return err
	}
	return printJSON(cmd, preview)
}
