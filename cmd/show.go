package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/feaso/internal/cli"
	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagShowFilter string
	flagShowIDs    bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the ledger with budgets, forecasts and variations",
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVarP(&flagShowFilter, "filter", "f", "", "Only items whose name contains this")
	showCmd.Flags().BoolVar(&flagShowIDs, "ids", false, "Show row ids")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, _ []string) (err error) {
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
	periods := s.engine.Periods()

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("FEASIBILITY  %s", s.project)))
	fmt.Println()
	fmt.Print(cli.RenderTable(ledgerTable(pipeline.FilterByName(rows, flagShowFilter), flagShowIDs)))
	fmt.Println()
	fmt.Print(cli.RenderKeyValues(summaryPairs(pipeline.Aggregate(rows, periods))))
	return nil
}

func ledgerTable(rows []model.Row, ids bool) cli.Table {
	t := cli.Table{
		Headers:  []string{"Item", "Basis", "Budget", "Incl GST", "Forecast", "Previous", "Variation"},
		LeftCols: 2,
		Strong:   make(map[int]bool),
	}
	if ids {
		t.Headers = append([]string{"Id"}, t.Headers...)
		t.LeftCols = 3
	}

	for i, r := range rows {
		if r.Kind == model.KindHeading && i > 0 {
			t.Rows = append(t.Rows, cli.Separator)
		}
		var line []string
		switch r.Kind {
		case model.KindHeading:
			line = []string{strings.ToUpper(r.Name), "", "", "", "", "", ""}
			t.Strong[len(t.Rows)] = true
		case model.KindGroupTotal:
			line = []string{"  " + r.Name,
				"",
				cli.FormatNullMoney(r.BudgetExcludingTax),
				cli.FormatNullMoney(r.BudgetIncludingTax),
				cli.FormatNullMoney(r.CurrentForecast),
				cli.FormatNullMoney(r.PreviousForecast),
				cli.FormatNullMoney(r.VariationToOriginal),
			}
			t.Strong[len(t.Rows)] = true
		default:
			line = []string{"  " + r.Name,
				cli.FormatBasis(r.Basis),
				cli.FormatNullMoney(r.BudgetExcludingTax),
				cli.FormatNullMoney(r.BudgetIncludingTax),
				cli.FormatNullMoney(r.CurrentForecast),
				cli.FormatNullMoney(r.PreviousForecast),
				cli.FormatNullMoney(r.VariationToOriginal),
			}
		}
		if ids {
			line = append([]string{r.ID}, line...)
		}
		t.Rows = append(t.Rows, line)
	}
	return t
}

func summaryPairs(st model.SummaryStats) [][2]string {
	pairs := [][2]string{
		{"Budget (excl GST)", cli.FormatMoney(st.Budget)},
		{"Budget (incl GST)", cli.FormatMoney(st.BudgetInclTax)},
		{"Forecast", cli.FormatMoney(st.Forecast)},
		{"Variation", cli.FormatDelta(st.Variation)},
		{"Revenue", cli.FormatMoney(st.Revenue)},
		{"Margin", fmt.Sprintf("%s (%s)", cli.FormatMoney(st.Margin), cli.FormatPercent(st.MarginPercent))},
	}
	if st.PeakOutflowPeriod != "" {
		pairs = append(pairs, [2]string{"Peak outflow",
			fmt.Sprintf("%s in %s", cli.FormatMoney(st.PeakOutflow), st.PeakOutflowPeriod)})
	}
	pairs = append(pairs, [2]string{"Overrides / actuals",
		fmt.Sprintf("%d / %d periods", st.ManualPeriods, st.ActualPeriods)})
	return pairs
}
