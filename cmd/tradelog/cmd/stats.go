package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/analytics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Portfolio scorecard over all closed trades",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var monthlyCmd = &cobra.Command{
	Use:   "monthly <YYYY-MM>",
	Short: "Realized P&L for one month",
	Args:  cobra.ExactArgs(1),
	RunE:  runMonthly,
}

var yearlyCmd = &cobra.Command{
	Use:   "yearly <YYYY>",
	Short: "Month-by-month realized P&L for one year",
	Args:  cobra.ExactArgs(1),
	RunE:  runYearly,
}

var calendarCmd = &cobra.Command{
	Use:   "calendar <YYYY-MM>",
	Short: "Daily realized P&L for one month",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalendar,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Best and worst symbols and days, average hold time",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var rangeCmd = &cobra.Command{
	Use:   "range",
	Short: "First and last trade dates in the ledger",
	Args:  cobra.NoArgs,
	RunE:  runRange,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(monthlyCmd)
	rootCmd.AddCommand(yearlyCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(rangeCmd)
}

func parseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("month must be YYYY-MM: %w", err)
	}
	return t.Year(), t.Month(), nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.ledger.GetStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, s)
	}

	pf := strconv.FormatFloat(s.ProfitFactor, 'f', 2, 64)
	if math.IsInf(s.ProfitFactor, 1) {
		pf = "∞"
	}
	fmt.Fprintf(w, "Closed trades: %d (%d won, %d lost)\n", s.TotalTrades, s.ProfitableTrades, s.LosingTrades)
	fmt.Fprintf(w, "  Win Rate: %.1f%%\n", s.WinRate)
	fmt.Fprintf(w, "  Net Profit: %s\n", money(s.NetProfit))
	fmt.Fprintf(w, "  Profit Factor: %s\n", pf)
	fmt.Fprintf(w, "  Average Win: %s\n", money(s.AverageWin))
	fmt.Fprintf(w, "  Average Loss: %s\n", money(s.AverageLoss))
	fmt.Fprintf(w, "  Largest Win: %s\n", money(s.LargestWin))
	fmt.Fprintf(w, "  Largest Loss: %s\n", money(s.LargestLoss))
	return nil
}

func runMonthly(cmd *cobra.Command, args []string) error {
	year, month, err := parseMonth(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.ledger.GetMonthlyPnL(cmd.Context(), month, year)
	if err != nil {
		return fmt.Errorf("monthly: %w", err)
	}
	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, m)
	}
	fmt.Fprintf(w, "%s %d: %s over %d trades (%d won, %d lost, %.1f%%)\n",
		m.Month, m.Year, money(m.TotalPnL), m.TotalTrades, m.ProfitableTrades, m.LosingTrades, m.WinRate)
	return nil
}

func runYearly(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("year must be YYYY: %w", err)
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	y, err := a.ledger.GetYearlyPnL(cmd.Context(), year)
	if err != nil {
		return fmt.Errorf("yearly: %w", err)
	}
	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, y)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "MONTH\tP&L\tTRADES\tWIN RATE")
	for _, m := range y.Months {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f%%\n", m.Month, money(m.TotalPnL), m.TotalTrades, m.WinRate)
	}
	fmt.Fprintf(tw, "Total\t%s\t\t\n", money(y.NetProfit))
	return tw.Flush()
}

func runCalendar(cmd *cobra.Command, args []string) error {
	year, month, err := parseMonth(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	days, err := a.ledger.GetCalendar(cmd.Context(), year, month)
	if err != nil {
		return fmt.Errorf("calendar: %w", err)
	}
	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, days)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tP&L\tTRADES\tWIN RATE")
	for _, d := range days {
		if d.TradeCount == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f%%\n", d.Date.Format("Mon 2006-01-02"), money(d.TotalPnL), d.TradeCount, d.WinRate)
	}
	return tw.Flush()
}

func runSummary(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.ledger.GetSummary(cmd.Context())
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, s)
	}
	if s.TradeCount == 0 {
		fmt.Fprintln(w, "No closed trades.")
		return nil
	}

	fmt.Fprintf(w, "Closed trades: %d, win rate %.1f%%, average hold %.1f days\n", s.TradeCount, s.WinRate, s.AvgHoldTime)
	printStock(w, "Best stock", s.BestStock)
	printStock(w, "Worst stock", s.WorstStock)
	printDay(w, "Best day", s.BestDay)
	printDay(w, "Worst day", s.WorstDay)
	return nil
}

func printStock(w io.Writer, label string, p *analytics.StockPerformance) {
	if p == nil {
		return
	}
	fmt.Fprintf(w, "  %s: %s %s over %d trades (%.1f%%)\n", label, p.Symbol, money(p.TotalPnL), p.TradeCount, p.WinRate)
}

func printDay(w io.Writer, label string, p *analytics.DayPerformance) {
	if p == nil {
		return
	}
	fmt.Fprintf(w, "  %s: %s %s over %d trades\n", label, p.Date.Format("2006-01-02"), money(p.TotalPnL), p.TradeCount)
}

func runRange(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.ledger.GetTimeRange(cmd.Context())
	if err != nil {
		return fmt.Errorf("time range: %w", err)
	}
	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, struct {
			analytics.TimeRange
			Days int `json:"days"`
		}{r, r.Days()})
	}
	if r.Count == 0 {
		fmt.Fprintln(w, "No trades.")
		return nil
	}
	fmt.Fprintf(w, "%d trades from %s to %s (%d days)\n",
		r.Count, r.First.Format("2006-01-02"), r.Last.Format("2006-01-02"), r.Days())
	return nil
}
