package cashflow

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
)

var (
	hundred     = decimal.NewFromInt(100)
	daysPerWeek = decimal.NewFromInt(7)
)

// RecalcBudgets derives BudgetExcludingTax for every item row from its
// BudgetInput and Basis. Percentage bases read other rows' derived budgets;
// a reference that loops back to a row still being resolved contributes
// zero. Headings are cleared; group totals are left to RecalcTotals.
func RecalcBudgets(rows []model.Row, periods []model.Period, tasks []model.ScheduleTask) []model.Row {
	out := model.CloneRows(rows)
	r := &budgetResolver{
		rows:    out,
		periods: periods,
		tasks:   tasks,
		byID:    model.IndexByID(out),
		groups:  make(map[int][]int),
		done:    make(map[int]decimal.Decimal),
		active:  make(map[int]bool),
	}
	for i, row := range out {
		if row.Kind == model.KindItem {
			r.groups[row.GroupIndex] = append(r.groups[row.GroupIndex], i)
		}
	}
	for i := range out {
		switch out[i].Kind {
		case model.KindItem:
			out[i].BudgetExcludingTax = model.Set(r.resolve(i))
		case model.KindHeading:
			out[i].BudgetExcludingTax = model.Unset
			out[i].BudgetIncludingTax = model.Unset
		}
	}
	return out
}

type budgetResolver struct {
	rows    []model.Row
	periods []model.Period
	tasks   []model.ScheduleTask
	byID    map[string]int
	groups  map[int][]int
	done    map[int]decimal.Decimal
	active  map[int]bool
}

func (b *budgetResolver) resolve(i int) decimal.Decimal {
	if v, ok := b.done[i]; ok {
		return v
	}
	if b.active[i] {
		return decimal.Zero
	}
	b.active[i] = true
	v := b.compute(b.rows[i], i)
	delete(b.active, i)
	b.done[i] = v
	return v
}

func (b *budgetResolver) compute(row model.Row, self int) decimal.Decimal {
	in := row.BudgetInput
	switch row.Basis {
	case model.BasisPercentOfRow:
		j, ok := b.byID[strings.TrimSpace(row.BasisRef)]
		if !ok || j == self || b.rows[j].Kind != model.KindItem {
			return decimal.Zero
		}
		return in.Div(hundred).Mul(b.resolve(j))
	case model.BasisPercentOfGroup:
		g, err := strconv.Atoi(strings.TrimSpace(row.BasisRef))
		if err != nil {
			return decimal.Zero
		}
		sum := decimal.Zero
		for _, j := range b.groups[g] {
			if j == self {
				continue
			}
			sum = sum.Add(b.resolve(j))
		}
		return in.Div(hundred).Mul(sum)
	case model.BasisPerUnit:
		return in.Mul(row.Quantity)
	case model.BasisPerMonth:
		w, _, _ := resolveWindow(row, b.periods, b.tasks)
		return in.Mul(decimal.NewFromInt(int64(w.months())))
	case model.BasisPerWeek:
		w, s, e := resolveWindow(row, b.periods, b.tasks)
		if !w.ok {
			return decimal.Zero
		}
		days := int64(e.Sub(s).Hours()/24) + 1
		return in.Mul(decimal.NewFromInt(days)).Div(daysPerWeek)
	default:
		return in
	}
}
