package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	keyLayout   = "2006-01"
	labelLayout = "January 2006"
)

// YearMonth is a calendar month. Ordering is lexicographic on (Year, Month).
type YearMonth struct {
	Year  int
	Month int
}

// DefaultWindow is the April 2024 to March 2025 reporting window.
var DefaultWindow = Window{
	Start: YearMonth{Year: 2024, Month: 4},
	End:   YearMonth{Year: 2025, Month: 3},
}

func (ym YearMonth) Compare(other YearMonth) int {
	switch {
	case ym.Year < other.Year:
		return -1
	case ym.Year > other.Year:
		return 1
	case ym.Month < other.Month:
		return -1
	case ym.Month > other.Month:
		return 1
	default:
		return 0
	}
}

func (ym YearMonth) Before(other YearMonth) bool {
	return ym.Compare(other) < 0
}

func (ym YearMonth) Valid() bool {
	return ym.Month >= 1 && ym.Month <= 12
}

func (ym YearMonth) Date() time.Time {
	return time.Date(ym.Year, time.Month(ym.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Key formats as "2024-04".
func (ym YearMonth) Key() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// Label formats as "April 2024".
func (ym YearMonth) Label() string {
	return ym.Date().Format(labelLayout)
}

func (ym YearMonth) Next() YearMonth {
	if ym.Month == 12 {
		return YearMonth{Year: ym.Year + 1, Month: 1}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

func (ym YearMonth) String() string {
	return ym.Key()
}

func (ym YearMonth) MarshalJSON() ([]byte, error) {
	return json.Marshal(ym.Key())
}

func (ym *YearMonth) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseYearMonth(s)
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}

// ParseYearMonth accepts "2024-04" or a label such as "April 2024".
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{keyLayout, labelLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return YearMonth{Year: t.Year(), Month: int(t.Month())}, nil
		}
	}
	return YearMonth{}, fmt.Errorf("invalid month %q", s)
}

type Window struct {
	Start YearMonth
	End   YearMonth
}

func (w Window) Contains(ym YearMonth) bool {
	return w.Start.Compare(ym) <= 0 && ym.Compare(w.End) <= 0
}

// Months lists every month of the window in ascending order.
func (w Window) Months() []YearMonth {
	var months []YearMonth
	for ym := w.Start; ym.Compare(w.End) <= 0; ym = ym.Next() {
		months = append(months, ym)
	}
	return months
}

func (w Window) Labels() []string {
	months := w.Months()
	labels := make([]string, len(months))
	for i, ym := range months {
		labels[i] = ym.Label()
	}
	return labels
}
