package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/trade"
)

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List ledger entries",
	Long: `List every trade in ledger order, or only one symbol's trades.

Examples:
  tradelog trades
  tradelog trades --symbol AAPL
  tradelog trades --overdue`,
	Args: cobra.NoArgs,
	RunE: runTrades,
}

var tradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Show one trade as an Org-mode entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrade,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <trade-id>",
	Short: "Delete a trade and rematch its symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var rematchCmd = &cobra.Command{
	Use:   "rematch [symbol]",
	Short: "Recompute FIFO matching for one symbol or the whole ledger",
	Long: `Replay the FIFO lot matcher. Run this after importing buys that
predate a previously unmatched sell.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRematch,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger as CSV, IB, Org or JSON",
	Long: `Write every trade to a file or stdout.

The ib layout (Symbol,Side,Qty,Fill Price,Commission,Closing Time) is the
one Interactive Brokers and TradingView portfolio imports accept.

Examples:
  tradelog export --format csv -o trades.csv
  tradelog export --format ib --exchange NASDAQ -o trades_ib.csv
  tradelog export --format org > trades.org`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	tradesSymbol  string
	tradesOverdue bool
	exportFormat   string
	exportOutput   string
	exportExchange string
)

func init() {
	rootCmd.AddCommand(tradesCmd)
	rootCmd.AddCommand(tradeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(rematchCmd)
	rootCmd.AddCommand(exportCmd)

	tradesCmd.Flags().StringVarP(&tradesSymbol, "symbol", "s", "", "only trades for this symbol")
	tradesCmd.Flags().BoolVar(&tradesOverdue, "overdue", false, "only open trades past their exit deadline")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "csv, ib, org or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportExchange, "exchange", "NASDAQ", "exchange prefix for ib symbols")
}

func runTrades(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var trades []trade.Trade
	switch {
	case tradesOverdue:
		trades, err = a.ledger.OverdueNow(cmd.Context())
	case tradesSymbol != "":
		trades, err = a.ledger.FindBySymbol(cmd.Context(), tradesSymbol)
	default:
		trades, err = a.ledger.ListTrades(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}
	return printTrades(cmd.OutOrStdout(), trades, a.ledger.Location())
}

func runTrade(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.ledger.GetTrade(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), t)
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatTradeOrg(t))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.ledger.DeleteTrade(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", args[0])
	for _, u := range res.Unmatched {
		fmt.Fprintf(cmd.OutOrStdout(), "  %v\n", u)
	}
	return nil
}

func runRematch(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var unmatched []*trade.UnmatchedSellError
	if len(args) == 1 {
		res, err := a.ledger.Rematch(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("rematch: %w", err)
		}
		unmatched = res.Unmatched
	} else {
		unmatched, err = a.ledger.RematchAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("rematch: %w", err)
		}
	}

	if len(unmatched) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ All sells matched")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d unmatched sells:\n", len(unmatched))
	for _, u := range unmatched {
		fmt.Fprintf(cmd.OutOrStdout(), "  %v\n", u)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	trades, err := a.ledger.ListTrades(cmd.Context())
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}

	if exportFormat == "csv" && exportOutput != "" {
		return recordCSV(exportOutput, trades)
	}

	w := cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	switch exportFormat {
	case "csv":
		err = journal.WriteCSV(w, trades)
	case "ib":
		err = journal.WriteIBCSV(w, trades, exportExchange, a.ledger.Location())
	case "org":
		_, err = fmt.Fprint(w, journal.FormatTradesOrg(trades))
	case "json":
		err = printJSON(w, trades)
	default:
		return fmt.Errorf("unknown export format %q", exportFormat)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// recordCSV streams trades into a new CSV journal file.
func recordCSV(path string, trades []trade.Trade) error {
	j, err := journal.NewCSV(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	for _, t := range trades {
		if err := j.RecordTrade(t); err != nil {
			_ = j.Close()
			return fmt.Errorf("export: %w", err)
		}
	}
	if err := j.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
