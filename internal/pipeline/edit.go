package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/feaso/internal/model"
)

// Field names an editable column of a ledger row.
type Field string

const (
	FieldName           Field = "name"
	FieldBudgetInput    Field = "budget_input"
	FieldBasis          Field = "basis"
	FieldBasisRef       Field = "basis_ref"
	FieldQuantity       Field = "quantity"
	FieldTax            Field = "tax"
	FieldScheduleTask   Field = "schedule_task"
	FieldProfile        Field = "profile"
	FieldPeriod         Field = "period"
	FieldActual         Field = "actual"
	FieldClearOverrides Field = "clear_overrides"
)

// Fields lists every editable field in display order.
var Fields = []Field{
	FieldName, FieldBudgetInput, FieldBasis, FieldBasisRef, FieldQuantity, FieldTax,
	FieldScheduleTask, FieldProfile, FieldPeriod, FieldActual, FieldClearOverrides,
}

// Edit is one user change to one row. Period is only read by the period
// and actual fields. An empty Value on those fields clears the entry.
type Edit struct {
	RowID  string       `json:"row_id"`
	Field  Field        `json:"field"`
	Period model.Period `json:"period,omitempty"`
	Value  string       `json:"value"`
}

var (
	ErrRowNotFound   = errors.New("row not found")
	ErrUnknownField  = errors.New("unknown field")
	ErrNotEditable   = errors.New("field not editable on this row")
	ErrInvalidPeriod = errors.New("invalid period")
	ErrInvalidValue  = errors.New("invalid value")
)

// ParseField maps a user-supplied field name to a Field. Dashes and case
// are ignored.
func ParseField(s string) (Field, error) {
	f := Field(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// applyEdit mutates row in place. It reports whether the change needs every
// row's forecast redistributed rather than just this one.
func applyEdit(row *model.Row, e Edit) (allRows bool, err error) {
	if row.Kind == model.KindGroupTotal {
		return false, fmt.Errorf("%w: %s on total row %s", ErrNotEditable, e.Field, row.ID)
	}
	if row.Kind == model.KindHeading && e.Field != FieldName {
		return false, fmt.Errorf("%w: %s on heading %s", ErrNotEditable, e.Field, row.ID)
	}

	switch e.Field {
	case FieldName:
		row.Name = strings.TrimSpace(e.Value)
	case FieldBudgetInput:
		row.BudgetInput = model.ParseAmount(e.Value)
	case FieldBasis:
		row.Basis = model.ParseBasis(e.Value)
	case FieldBasisRef:
		row.BasisRef = strings.TrimSpace(e.Value)
	case FieldQuantity:
		row.Quantity = model.ParseAmount(e.Value)
	case FieldTax:
		v, perr := strconv.ParseBool(strings.TrimSpace(e.Value))
		if perr != nil {
			return false, fmt.Errorf("%w: tax %q", ErrInvalidValue, e.Value)
		}
		row.TaxApplicable = v
	case FieldScheduleTask:
		row.ScheduleTask = strings.TrimSpace(e.Value)
	case FieldProfile:
		row.Profile = model.ParseProfile(e.Value)
	case FieldPeriod:
		p, perr := checkPeriod(e.Period)
		if perr != nil {
			return false, perr
		}
		if strings.TrimSpace(e.Value) == "" {
			delete(row.ManualOverride, p)
			if !row.ActualFlag.Has(p) {
				delete(row.PeriodAmounts, p)
			}
			break
		}
		if row.ManualOverride == nil {
			row.ManualOverride = make(model.PeriodSet)
		}
		row.ManualOverride[p] = true
		row.SetAmount(p, model.ParseAmount(e.Value))
	case FieldActual:
		p, perr := checkPeriod(e.Period)
		if perr != nil {
			return false, perr
		}
		if strings.TrimSpace(e.Value) == "" {
			delete(row.ActualFlag, p)
			if !row.ManualOverride.Has(p) {
				delete(row.PeriodAmounts, p)
			}
			return true, nil
		}
		if row.ActualFlag == nil {
			row.ActualFlag = make(model.PeriodSet)
		}
		row.ActualFlag[p] = true
		row.SetAmount(p, model.ParseAmount(e.Value))
		return true, nil
	case FieldClearOverrides:
		row.ManualOverride = nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownField, e.Field)
	}
	return false, nil
}

func checkPeriod(p model.Period) (model.Period, error) {
	t, ok := p.Time()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
	}
	return model.PeriodOf(t), nil
}
