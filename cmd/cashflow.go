package cmd

import (
	"fmt"

	"github.com/theirongolddev/feaso/internal/cli"
	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/pipeline"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagCashflowItems bool
	flagCashflowFrom  string
	flagCashflowTo    string
)

var cashflowCmd = &cobra.Command{
	Use:   "cashflow",
	Short: "Show the cashflow by period",
	Long:  "Shows project costs, revenue and cumulative net cashflow per month. With --items, shows the per-item grid.",
	RunE:  runCashflow,
}

func init() {
	cashflowCmd.Flags().BoolVar(&flagCashflowItems, "items", false, "Show the per-item period grid")
	cashflowCmd.Flags().StringVar(&flagCashflowFrom, "from", "", "First month shown (e.g. Jan 2025)")
	cashflowCmd.Flags().StringVar(&flagCashflowTo, "to", "", "Last month shown")
	rootCmd.AddCommand(cashflowCmd)
}

func runCashflow(cmd *cobra.Command, _ []string) (err error) {
	s, err := openSession(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	rows := s.engine.Rows()
	periods, err := clipPeriods(s.engine.Periods(), flagCashflowFrom, flagCashflowTo)
	if err != nil {
		return err
	}
	if len(periods) == 0 {
		fmt.Println("\n  No periods to show. Set a start and end month or load a schedule.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("CASHFLOW  %s  %s – %s", s.project, periods[0], periods[len(periods)-1])))
	fmt.Println()

	if flagCashflowItems {
		fmt.Print(cli.RenderTable(periodGrid(rows, periods)))
		return nil
	}

	flows := pipeline.AggregatePeriods(rows, periods)
	fmt.Print(cli.RenderTable(flowTable(flows)))
	fmt.Println()

	net := make([]float64, len(flows))
	peak := 0.0
	actual := decimal.Zero
	costs := decimal.Zero
	for i, f := range flows {
		net[i] = f.Cumulative.InexactFloat64()
		peak = max(peak, f.Costs.InexactFloat64())
		actual = actual.Add(f.Actual)
		costs = costs.Add(f.Costs)
	}
	fmt.Printf("  Cumulative  %s\n", cli.RenderSparkline(net))
	fmt.Printf("  Actuals     %s\n", cli.RenderProgressBar(actual.InexactFloat64(), costs.InexactFloat64(), 30))
	fmt.Println()
	for _, f := range flows {
		fmt.Println(cli.RenderHorizontalBar(cli.FormatPeriodShort(f.Period), 8,
			f.Costs.InexactFloat64(), peak, 40, cli.FormatCompact(f.Costs)))
	}
	return nil
}

func flowTable(flows []model.PeriodFlow) cli.Table {
	t := cli.Table{Headers: []string{"Period", "Costs", "Revenue", "Net", "Cumulative", "Actual"}}
	for _, f := range flows {
		t.Rows = append(t.Rows, []string{
			string(f.Period),
			cli.FormatCell(f.Costs),
			cli.FormatCell(f.Revenue),
			cli.FormatMoney(f.Net),
			cli.FormatMoney(f.Cumulative),
			cli.FormatCell(f.Actual),
		})
	}
	return t
}

// periodGrid lays out every item and total across the given months. Actual
// cells are marked with a trailing "*", overridden cells with "!".
func periodGrid(rows []model.Row, periods []model.Period) cli.Table {
	t := cli.Table{
		Headers: []string{"Item"},
		Strong:  make(map[int]bool),
	}
	for _, p := range periods {
		t.Headers = append(t.Headers, cli.FormatPeriodShort(p))
	}
	t.Headers = append(t.Headers, "Forecast")

	for _, r := range rows {
		if r.Kind == model.KindHeading {
			if len(t.Rows) > 0 {
				t.Rows = append(t.Rows, cli.Separator)
			}
			t.Strong[len(t.Rows)] = true
			t.Rows = append(t.Rows, []string{r.Name})
			continue
		}
		line := []string{"  " + r.Name}
		for _, p := range periods {
			cell := cli.FormatCell(r.Amount(p))
			switch {
			case r.ActualFlag.Has(p):
				cell += "*"
			case r.ManualOverride.Has(p):
				cell += "!"
			}
			line = append(line, cell)
		}
		line = append(line, cli.FormatNullMoney(r.CurrentForecast))
		if r.Kind == model.KindGroupTotal {
			t.Strong[len(t.Rows)] = true
		}
		t.Rows = append(t.Rows, line)
	}
	return t
}

// clipPeriods returns the periods between from and to inclusive. Empty
// bounds are open.
func clipPeriods(periods []model.Period, from, to string) ([]model.Period, error) {
	var lo, hi model.Period
	if from != "" {
		t, err := parseMonth(from)
		if err != nil {
			return nil, err
		}
		lo = model.PeriodOf(t)
	}
	if to != "" {
		t, err := parseMonth(to)
		if err != nil {
			return nil, err
		}
		hi = model.PeriodOf(t)
	}

	var out []model.Period
	for _, p := range periods {
		if lo != "" && p.Before(lo) {
			continue
		}
		if hi != "" && hi.Before(p) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
