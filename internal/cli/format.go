// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/feaso/internal/model"
)

// FormatMoney formats an amount with two decimals and comma separators.
// e.g., 1234567.891 -> "1,234,567.89", -50 -> "-50.00"
func FormatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return d.StringFixed(2)
	}
	out := FormatNumber(n) + "." + frac
	if neg && out != "0.00" {
		return "-" + out
	}
	return out
}

// FormatNullMoney formats a derived amount, blank when unset.
func FormatNullMoney(n decimal.NullDecimal) string {
	if !n.Valid {
		return ""
	}
	return FormatMoney(n.Decimal)
}

// FormatCell formats a period cell: blank for zero, the amount otherwise.
func FormatCell(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return FormatMoney(d)
}

// FormatCompact formats an amount with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M", 1234567890 -> "1.2B"
func FormatCompact(d decimal.Decimal) string {
	v := d.InexactFloat64()
	abs := v
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a value already scaled to percent.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f)
}

// FormatDelta formats a variation with an explicit sign.
func FormatDelta(d decimal.Decimal) string {
	if d.IsNegative() {
		return FormatMoney(d)
	}
	return "+" + FormatMoney(d)
}

// FormatPeriodShort abbreviates a month label: "Jan 2025" -> "Jan 25".
func FormatPeriodShort(p model.Period) string {
	t, ok := p.Time()
	if !ok {
		return string(p)
	}
	return t.Format("Jan 06")
}

// FormatBasis returns a display label for a basis.
func FormatBasis(b model.Basis) string {
	switch b {
	case model.BasisPercentOfRow:
		return "% of row"
	case model.BasisPercentOfGroup:
		return "% of group"
	case model.BasisPerUnit:
		return "per unit"
	case model.BasisPerMonth:
		return "per month"
	case model.BasisPerWeek:
		return "per week"
	default:
		return "lump sum"
	}
}
