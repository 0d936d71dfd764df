package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/broker"
	"github.com/rustyeddy/tradelog/ledger"
	"github.com/rustyeddy/tradelog/trade"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import executions from a broker CSV export",
	Long: `Import a CSV export into the ledger. Rows already in the ledger are
skipped, so re-importing the same file is safe.

Recognised layouts: Trading212 exports, IB-style exports and a generic
symbol,side,quantity,price,timestamp,fees,source_id file. Use "-" to read
from stdin.

Example:
  tradelog import ~/Downloads/from_2024-01-01_to_2024-06-30.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull executed fills from the configured broker",
	Long: `Fetch every fill from the broker account and import it. Fills carry
the broker's own ids, so syncing repeatedly only adds new executions.

Alpaca credentials are read from APCA_API_KEY_ID and APCA_API_SECRET_KEY
(a .env file in the working directory is loaded first).`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var importSource string

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(syncCmd)

	importCmd.Flags().StringVarP(&importSource, "source", "s", "csv", "source tag for the rows: csv or api")
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	res, err := a.ledger.ImportCSV(cmd.Context(), r, trade.ParseSource(importSource))
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return printImport(cmd.OutOrStdout(), res)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	exp, err := broker.New(a.cfg.Broker.Provider, a.cfg.Broker.PageSize)
	if err != nil {
		return err
	}
	raws, err := exp.ExportData(cmd.Context())
	if err != nil {
		return fmt.Errorf("broker export: %w", err)
	}

	res, err := a.ledger.Import(cmd.Context(), ledger.Batch{Records: raws, Source: trade.SourceAPI})
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return printImport(cmd.OutOrStdout(), res)
}

func printImport(w io.Writer, res ledger.ImportResult) error {
	if jsonOutput {
		return printJSON(w, res)
	}
	fmt.Fprintf(w, "✓ Saved %d, skipped %d", res.Saved, res.Skipped)
	if res.Ignored > 0 {
		fmt.Fprintf(w, ", ignored %d non-trade rows", res.Ignored)
	}
	fmt.Fprintln(w)

	if len(res.Rejected) > 0 {
		fmt.Fprintf(w, "\nRejected %d rows:\n", len(res.Rejected))
		for _, e := range res.Rejected {
			fmt.Fprintf(w, "  %v\n", e)
		}
	}
	if len(res.Unmatched) > 0 {
		fmt.Fprintf(w, "\nUnmatched sells (import the earlier buys, then run rematch):\n")
		for _, e := range res.Unmatched {
			fmt.Fprintf(w, "  %v\n", e)
		}
	}
	return nil
}
