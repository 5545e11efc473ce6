package export

import (
	"fmt"
	"math"
	"strings"

	"profit-dashboard/internal/models"
)

// FormatMoney renders 1234.5 as "$1,234.50".
func FormatMoney(v float64) string {
	return "$" + groupThousands(fmt.Sprintf("%.2f", v))
}

// FormatUnits renders a count with thousands separators and no decimals.
func FormatUnits(v float64) string {
	return groupThousands(fmt.Sprintf("%.0f", math.Round(v)))
}

func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func FormatR2(reg models.Regression) string {
	if !reg.R2Defined {
		return "undefined"
	}
	return fmt.Sprintf("%.2f", reg.R2)
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + frac
}
