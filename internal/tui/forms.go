package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/feaso/internal/config"
	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/pipeline"
	"github.com/theirongolddev/feaso/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

type formKind int

const (
	formEdit formKind = iota
	formAdd
	formDelete
)

// formValues is bound to the active huh form. It lives behind a pointer
// so the App value copies made by Update keep writing to the same fields.
type formValues struct {
	kind    formKind
	rowID   string
	rowName string
	group   int

	field   string
	period  string
	value   string
	confirm bool
}

func (a App) openEditForm() (tea.Model, tea.Cmd) {
	row, ok := a.selected()
	if !ok {
		return a, nil
	}
	if row.Kind == model.KindGroupTotal {
		a.message = "total rows are computed"
		a.messageErr = true
		return a, nil
	}

	vals := &formValues{
		kind:    formEdit,
		rowID:   row.ID,
		rowName: row.Name,
		field:   string(pipeline.FieldBudgetInput),
		period:  string(a.selectedPeriod()),
	}
	if a.activeTab == tabCashflow {
		vals.field = string(pipeline.FieldPeriod)
	}

	fields := editableFields(row)
	if row.Kind == model.KindHeading {
		vals.field = string(pipeline.FieldName)
		vals.value = row.Name
	}

	a.formVals = vals
	a.form = newEditForm(row, fields, vals).WithWidth(min(a.width, 72))
	return a, a.form.Init()
}

func (a App) openAddForm() (tea.Model, tea.Cmd) {
	row, ok := a.selected()
	if !ok {
		return a, nil
	}
	vals := &formValues{kind: formAdd, group: row.GroupIndex}
	a.formVals = vals
	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Item name").
				Placeholder("e.g. Site survey").
				Value(&vals.value).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
		).Title(fmt.Sprintf("Add item to %s", a.groupName(row.GroupIndex))),
	).WithShowHelp(false).WithWidth(min(a.width, 72))
	return a, a.form.Init()
}

func (a App) openDeleteForm() (tea.Model, tea.Cmd) {
	row, ok := a.selected()
	if !ok {
		return a, nil
	}
	if row.Kind != model.KindItem {
		a.message = "only items can be deleted"
		a.messageErr = true
		return a, nil
	}
	vals := &formValues{kind: formDelete, rowID: row.ID, rowName: row.Name}
	a.formVals = vals
	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", row.Name)).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&vals.confirm),
		),
	).WithShowHelp(false).WithWidth(min(a.width, 72))
	return a, a.form.Init()
}

func newEditForm(row model.Row, fields []string, vals *formValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Field").
				Options(huh.NewOptions(fields...)...).
				Value(&vals.field),
			huh.NewInput().
				Title("Period").
				Description("Used by period and actual; e.g. Mar 2025").
				Value(&vals.period),
			huh.NewInput().
				Title("Value").
				Description("Blank clears a period or actual").
				Value(&vals.value),
		).Title("Edit " + row.Name),
	).WithShowHelp(false)
}

func editableFields(row model.Row) []string {
	if row.Kind == model.KindHeading {
		return []string{string(pipeline.FieldName)}
	}
	out := make([]string, len(pipeline.Fields))
	for i, f := range pipeline.Fields {
		out[i] = string(f)
	}
	return out
}

func (a App) groupName(idx int) string {
	for _, r := range a.rows {
		if r.GroupIndex == idx && r.Kind == model.KindHeading {
			return r.Name
		}
	}
	return fmt.Sprintf("group %d", idx)
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		vals := a.formVals
		a.form = nil
		a.formVals = nil
		return a, a.submit(vals)
	case huh.StateAborted:
		a.form = nil
		a.formVals = nil
		a.message = "cancelled"
		a.messageErr = false
		return a, nil
	}
	return a, cmd
}

// submit turns a completed form into the engine command it describes.
func (a App) submit(vals *formValues) tea.Cmd {
	switch vals.kind {
	case formEdit:
		return editCmd(a.engine, pipeline.Edit{
			RowID:  vals.rowID,
			Field:  pipeline.Field(vals.field),
			Period: model.Period(strings.TrimSpace(vals.period)),
			Value:  vals.value,
		})
	case formAdd:
		return addCmd(a.engine, vals.group, strings.TrimSpace(vals.value))
	case formDelete:
		if !vals.confirm {
			return nil
		}
		return deleteCmd(a.engine, vals.rowID, vals.rowName)
	}
	return nil
}

// SetupValues holds the answers collected by the setup form.
type SetupValues struct {
	ProjectID    string
	StartMonth   string
	EndMonth     string
	Driver       string
	SchedulePath string
	Theme        string
}

// SetupValuesFrom pre-fills the setup form from an existing config.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		ProjectID:    cfg.General.ProjectID,
		StartMonth:   cfg.General.StartMonth,
		EndMonth:     cfg.General.EndMonth,
		Driver:       cfg.Store.Driver,
		SchedulePath: cfg.Schedule.Path,
		Theme:        cfg.Appearance.Theme,
	}
}

// Apply writes the answers back onto cfg.
func (v SetupValues) Apply(cfg *config.Config) {
	cfg.General.ProjectID = strings.TrimSpace(v.ProjectID)
	cfg.General.StartMonth = strings.TrimSpace(v.StartMonth)
	cfg.General.EndMonth = strings.TrimSpace(v.EndMonth)
	cfg.Store.Driver = v.Driver
	cfg.Schedule.Path = strings.TrimSpace(v.SchedulePath)
	cfg.Appearance.Theme = v.Theme
}

// NewSetupForm builds the first-run configuration form.
func NewSetupForm(vals *SetupValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project id").
				Value(&vals.ProjectID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("project id is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("First month").
				Description("e.g. Jan 2025; blank follows the schedule").
				Value(&vals.StartMonth).
				Validate(validMonth),
			huh.NewInput().
				Title("Last month").
				Value(&vals.EndMonth).
				Validate(validMonth),
		).Title("Project"),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Ledger store").
				Options(huh.NewOptions("sqlite", "postgres")...).
				Value(&vals.Driver),
			huh.NewInput().
				Title("Schedule file or directory").
				Description("YAML or JSON; blank to skip").
				Value(&vals.SchedulePath),
			huh.NewSelect[string]().
				Title("Theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&vals.Theme),
		).Title("Storage and appearance"),
	)
}

func validMonth(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, ok := model.Period(s).Time(); !ok {
		return fmt.Errorf("want a month like Jan 2025")
	}
	return nil
}
