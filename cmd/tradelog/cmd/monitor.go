package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/market"
	"github.com/rustyeddy/tradelog/risk"
	"github.com/rustyeddy/tradelog/scheduler"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch open positions for losses against live prices",
	Long: `Poll the latest price of every open position and raise an alert when the
loss from the average entry crosses the warning or critical threshold.
Each whole-percent loss band alerts once per session.

Prices come from Alpaca market data unless --prices points at a YAML file
of symbol: price pairs.

Examples:
  tradelog monitor
  tradelog monitor --once --prices prices.yaml`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

var (
	monitorPrices string
	monitorOnce   bool
)

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringVarP(&monitorPrices, "prices", "p", "", "YAML file of symbol prices instead of Alpaca")
	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "run a single check and print the result")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var prices market.PriceSource
	if monitorPrices != "" {
		prices, err = market.LoadPriceFile(monitorPrices)
		if err != nil {
			return err
		}
	} else {
		prices = market.NewAlpaca()
	}

	mc, err := a.cfg.Risk.Monitor()
	if err != nil {
		return err
	}
	mon := risk.NewMonitor(a.ledger, prices, risk.LogNotifier{Log: a.log}, mc, a.log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(a.log)
	if err := sched.RunNow(ctx, mon); err != nil {
		return err
	}
	if monitorOnce {
		return printMonitor(cmd.OutOrStdout(), mon)
	}

	if err := sched.AddJob("@every "+a.cfg.Risk.PollInterval, mon); err != nil {
		return fmt.Errorf("schedule monitor: %w", err)
	}
	sched.Start(ctx)
	<-ctx.Done()
	sched.Stop()

	return printMonitor(cmd.OutOrStdout(), mon)
}

func printMonitor(w io.Writer, mon *risk.Monitor) error {
	if jsonOutput {
		return printJSON(w, struct {
			Statuses []risk.Status `json:"statuses"`
			Alerts   []risk.Alert  `json:"alerts"`
		}{mon.Statuses(), mon.Alerts()})
	}

	statuses := mon.Statuses()
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No open positions.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SYMBOL\tPRICE\tCHANGE\tSEVERITY")
	for _, s := range statuses {
		if s.Unavailable {
			fmt.Fprintf(tw, "%s\t-\t-\tunavailable: %s\n", s.Symbol, s.Err)
			continue
		}
		sev := string(s.Severity)
		if sev == "" {
			sev = "ok"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t%s\n", s.Symbol, s.Price.StringFixed(2), s.LossPercent.StringFixed(2), sev)
	}
	return tw.Flush()
}
