package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/journal"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show open positions from the remaining FIFO lots",
	Long: `Aggregate the unconsumed lots of every symbol into open positions with
a weighted average entry price.

Examples:
  tradelog positions
  tradelog positions --export ib --exchange NASDAQ -o open_positions.csv`,
	Args: cobra.NoArgs,
	RunE: runPositions,
}

var deadlineCmd = &cobra.Command{
	Use:   "deadline",
	Short: "Set or clear exit deadlines on open trades",
	Long: `Manage exit deadlines.

Subcommands:
  set   - Attach a deadline (and optional reason) to an open trade
  clear - Remove a deadline

Examples:
  tradelog deadline set 01HV... 2024-06-30 --reason "earnings on 07-01"
  tradelog deadline clear 01HV...`,
}

var deadlineSetCmd = &cobra.Command{
	Use:   "set <trade-id> <YYYY-MM-DD>",
	Short: "Attach an exit deadline to an open trade",
	Args:  cobra.ExactArgs(2),
	RunE:  runDeadlineSet,
}

var deadlineClearCmd = &cobra.Command{
	Use:   "clear <trade-id>",
	Short: "Remove an exit deadline",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeadlineClear,
}

var (
	positionsExport   string
	positionsExchange string
	positionsOutput   string
	deadlineReason    string
)

func init() {
	rootCmd.AddCommand(positionsCmd)
	rootCmd.AddCommand(deadlineCmd)
	deadlineCmd.AddCommand(deadlineSetCmd)
	deadlineCmd.AddCommand(deadlineClearCmd)

	positionsCmd.Flags().StringVar(&positionsExport, "export", "", "write a CSV in this layout instead of a table (ib)")
	positionsCmd.Flags().StringVar(&positionsExchange, "exchange", "NASDAQ", "exchange prefix for exported symbols")
	positionsCmd.Flags().StringVarP(&positionsOutput, "output", "o", "", "output file (default stdout)")
	deadlineSetCmd.Flags().StringVarP(&deadlineReason, "reason", "r", "", "why the position must be closed by then")
}

func runPositions(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	positions, err := a.ledger.OpenPositions(cmd.Context())
	if err != nil {
		return fmt.Errorf("open positions: %w", err)
	}

	w := cmd.OutOrStdout()
	if positionsOutput != "" {
		f, err := os.Create(positionsOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", positionsOutput, err)
		}
		defer f.Close()
		w = f
	}

	switch {
	case strings.EqualFold(positionsExport, "ib"):
		return journal.WriteOpenPositionsCSV(w, positions, positionsExchange)
	case positionsExport != "":
		return fmt.Errorf("unknown export layout %q", positionsExport)
	case jsonOutput:
		return printJSON(w, positions)
	}

	if len(positions) == 0 {
		fmt.Fprintln(w, "No open positions.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SYMBOL\tQTY\tAVG ENTRY\tCOST BASIS\tLOTS\tOPENED\tLAST ACTIVITY")
	for _, p := range positions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			p.Symbol,
			p.Quantity.String(),
			p.AvgEntryPrice.StringFixed(4),
			money(p.CostBasis),
			len(p.Lots),
			p.OpenedAt.Format("2006-01-02"),
			p.LastActivity.Format("2006-01-02"),
		)
	}
	return tw.Flush()
}

func runDeadlineSet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	deadline, err := time.ParseInLocation("2006-01-02", args[1], a.ledger.Location())
	if err != nil {
		return fmt.Errorf("deadline must be YYYY-MM-DD: %w", err)
	}
	t, err := a.ledger.SetDeadline(cmd.Context(), args[0], deadline, deadlineReason)
	if err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s must be closed by %s\n", t.Symbol, t.ID, deadlineString(t, a.ledger.Location()))
	return nil
}

func runDeadlineClear(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.ledger.ClearDeadline(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("clear deadline: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared deadline on %s %s\n", t.Symbol, t.ID)
	return nil
}
