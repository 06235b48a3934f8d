package model

import "github.com/shopspring/decimal"

type seedItem struct {
	id    string
	name  string
	basis Basis
	ref   string
	tax   bool
	prof  Profile
}

type seedGroup struct {
	key   string
	name  string
	items []seedItem
}

var seedGroups = []seedGroup{
	{key: "land", name: "Land Acquisition", items: []seedItem{
		{id: "land-purchase", name: "Land Purchase", basis: BasisLumpSum},
		{id: "land-stamp-duty", name: "Stamp Duty", basis: BasisPercentOfRow, ref: "seed-land-purchase"},
		{id: "land-legal", name: "Legal Fees", basis: BasisLumpSum, tax: true},
	}},
	{key: "construction", name: "Construction", items: []seedItem{
		{id: "construction-build", name: "Construction Costs", basis: BasisLumpSum, tax: true, prof: ProfileSCurve},
		{id: "construction-contingency", name: "Contingency", basis: BasisPercentOfRow, ref: "seed-construction-build", tax: true, prof: ProfileSCurve},
	}},
	{key: "fees", name: "Professional Fees", items: []seedItem{
		{id: "fees-architect", name: "Architect", basis: BasisPercentOfGroup, ref: "1", tax: true},
		{id: "fees-engineer", name: "Engineering", basis: BasisLumpSum, tax: true},
		{id: "fees-pm", name: "Project Management", basis: BasisPerMonth, tax: true},
	}},
	{key: "statutory", name: "Statutory & Authority", items: []seedItem{
		{id: "statutory-da", name: "Development Application", basis: BasisLumpSum},
		{id: "statutory-contributions", name: "Infrastructure Contributions", basis: BasisPerUnit},
	}},
	{key: "finance", name: "Finance", items: []seedItem{
		{id: "finance-establishment", name: "Loan Establishment", basis: BasisLumpSum},
		{id: "finance-interest", name: "Interest", basis: BasisPerMonth},
	}},
	{key: "revenue", name: "Revenue", items: []seedItem{
		{id: "revenue-sales", name: "Sales", basis: BasisPerUnit, tax: true},
	}},
}

// Seed returns the default ledger every project starts from: one heading,
// a set of items and a total row per group. Seed ids are stable.
func Seed() []Row {
	var rows []Row
	for gi, g := range seedGroups {
		rows = append(rows, Row{
			ID:         "seed-" + g.key + "-heading",
			GroupIndex: gi,
			Kind:       KindHeading,
			Name:       g.name,
		})
		for ii, it := range g.items {
			prof := it.prof
			if prof == "" {
				prof = ProfileLinear
			}
			rows = append(rows, Row{
				ID:            "seed-" + it.id,
				GroupIndex:    gi,
				Kind:          KindItem,
				Name:          it.name,
				SortOrder:     ii + 1,
				BudgetInput:   decimal.Zero,
				Basis:         it.basis,
				BasisRef:      it.ref,
				TaxApplicable: it.tax,
				Profile:       prof,
			})
		}
		rows = append(rows, Row{
			ID:         "seed-" + g.key + "-total",
			GroupIndex: gi,
			Kind:       KindGroupTotal,
			Name:       "Total " + g.name,
			SortOrder:  len(g.items) + 1,
		})
	}
	return rows
}
