package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/theirongolddev/feaso/internal/cli"
	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/pipeline"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	flagEditPeriod string
	flagRmYes      bool
)

var editCmd = &cobra.Command{
	Use:   "edit ROW_ID FIELD [VALUE]",
	Short: "Change one field of a ledger row",
	Long: "Fields: " + fieldList() + ".\n" +
		"period and actual take --period; leaving VALUE out clears that month.",
	Args: cobra.RangeArgs(2, 3),
	RunE: runEdit,
}

var addCmd = &cobra.Command{
	Use:   "add GROUP NAME",
	Short: "Add an item to a group",
	Long:  "GROUP is the group number shown by `feaso show` (0 first) or the start of its heading.",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAdd,
}

var rmCmd = &cobra.Command{
	Use:   "rm ROW_ID",
	Short: "Delete an item row",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Record the current forecast as the previous forecast",
	RunE:  runSnapshot,
}

func init() {
	editCmd.Flags().StringVar(&flagEditPeriod, "period", "", "Month for period and actual edits (e.g. Mar 2025)")
	rmCmd.Flags().BoolVarP(&flagRmYes, "yes", "y", false, "Delete without asking")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func fieldList() string {
	names := make([]string, len(pipeline.Fields))
	for i, f := range pipeline.Fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func runEdit(cmd *cobra.Command, args []string) (err error) {
	field, err := pipeline.ParseField(args[1])
	if err != nil {
		return err
	}
	value := ""
	if len(args) == 3 {
		value = args[2]
	}

	s, err := openSession(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	rows, err := s.engine.OnEdit(s.ctx, pipeline.Edit{
		RowID:  args[0],
		Field:  field,
		Period: model.Period(flagEditPeriod),
		Value:  value,
	})
	if err != nil {
		return err
	}
	return printRow(rows, args[0])
}

func runAdd(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	group, err := resolveGroup(s.engine.Rows(), args[0])
	if err != nil {
		return err
	}
	row, rows, err := s.engine.AddRow(s.ctx, group, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Printf("  Added %s (%s)\n", row.Name, row.ID)
	return printRow(rows, row.ID)
}

func runRm(cmd *cobra.Command, args []string) (err error) {
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
	idx, ok := model.IndexByID(rows)[args[0]]
	if !ok {
		return fmt.Errorf("%w: %s", pipeline.ErrRowNotFound, args[0])
	}

	if !flagRmYes {
		if !isTerminal() {
			return errors.New("refusing to delete without --yes when not attached to a terminal")
		}
		confirmed, err := confirm(fmt.Sprintf("Delete %q?", rows[idx].Name))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("  Cancelled")
			return nil
		}
	}

	if _, err := s.engine.DeleteRow(s.ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("  Deleted %s\n", rows[idx].Name)
	return nil
}

func runSnapshot(cmd *cobra.Command, _ []string) (err error) {
	s, err := openSession(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	rows := s.engine.Snapshot(s.ctx)
	st := pipeline.Aggregate(rows, s.engine.Periods())
	fmt.Printf("  Previous forecast set to %s\n", cli.FormatMoney(st.Previous))
	return nil
}

// resolveGroup accepts a group index or a case-insensitive heading prefix.
func resolveGroup(rows []model.Row, arg string) (int, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		for _, g := range model.Groups(rows) {
			if g.Index == n {
				return n, nil
			}
		}
		return 0, fmt.Errorf("no group %d", n)
	}
	want := strings.ToLower(strings.TrimSpace(arg))
	for _, r := range rows {
		if r.Kind == model.KindHeading && strings.HasPrefix(strings.ToLower(r.Name), want) {
			return r.GroupIndex, nil
		}
	}
	return 0, fmt.Errorf("no group matches %q", arg)
}

func printRow(rows []model.Row, id string) error {
	idx, ok := model.IndexByID(rows)[id]
	if !ok {
		return fmt.Errorf("%w: %s", pipeline.ErrRowNotFound, id)
	}
	r := rows[idx]
	pairs := [][2]string{
		{"Row", fmt.Sprintf("%s (%s)", r.Name, r.ID)},
		{"Budget (excl GST)", cli.FormatNullMoney(r.BudgetExcludingTax)},
		{"Budget (incl GST)", cli.FormatNullMoney(r.BudgetIncludingTax)},
		{"Forecast", cli.FormatNullMoney(r.CurrentForecast)},
		{"Variation", cli.FormatNullMoney(r.VariationToOriginal)},
	}
	fmt.Print(cli.RenderKeyValues(pairs))
	return nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
}

func confirm(question string) (bool, error) {
	var ok bool
	form := huh.NewConfirm().
		Title(question).
		Affirmative("Delete").
		Negative("Cancel").
		WithButtonAlignment(lipgloss.Left).
		Value(&ok)
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}
