package services

import (
	"errors"

	"profit-dashboard/internal/models"
)

var (
	ErrRangeOrder    = errors.New("end month before start month")
	ErrOutsideWindow = errors.New("month outside reporting window")
	ErrNoProductData = errors.New("no data for product")
	ErrNoRangeData   = errors.New("no data in month range")
	ErrUnknownMode   = errors.New("unknown search mode")
)

var haltMessages = map[error]string{
	ErrRangeOrder:    "End month must be same or after start month.",
	ErrOutsideWindow: "Selected months must fall inside the reporting window.",
	ErrNoProductData: "No data for selected product.",
	ErrNoRangeData:   "No data in selected range.",
	ErrUnknownMode:   "Search mode must be Description or Code.",
}

// HaltMessage returns the user-facing text for a selection halt, or "" when
// err is not one.
func HaltMessage(err error) string {
	for sentinel, msg := range haltMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return ""
}

// IsEmptySelection reports whether err is one of the two no-data halts.
func IsEmptySelection(err error) bool {
	return errors.Is(err, ErrNoProductData) || errors.Is(err, ErrNoRangeData)
}

// filterStep narrows rows or halts the chain with an error.
type filterStep func(rows []models.Row, sel models.Selection) ([]models.Row, error)

// Filter runs the selection checks in order and returns the rows of the
// chosen product inside [sel.Start, sel.End]. The month order check runs
// before any row is looked at.
func Filter(rows []models.Row, sel models.Selection, window models.Window) ([]models.Row, error) {
	chain := []filterStep{
		checkRangeOrder,
		checkWindow(window),
		matchProduct,
		matchRange,
	}

	current := rows
	for _, step := range chain {
		next, err := step(current, sel)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func checkRangeOrder(rows []models.Row, sel models.Selection) ([]models.Row, error) {
	if sel.End.Before(sel.Start) {
		return nil, ErrRangeOrder
	}
	return rows, nil
}

func checkWindow(window models.Window) filterStep {
	return func(rows []models.Row, sel models.Selection) ([]models.Row, error) {
		if !window.Contains(sel.Start) || !window.Contains(sel.End) {
			return nil, ErrOutsideWindow
		}
		return rows, nil
	}
}

func matchProduct(rows []models.Row, sel models.Selection) ([]models.Row, error) {
	var key func(models.Row) string
	switch sel.Mode {
	case models.ModeDescription, "":
		key = func(r models.Row) string { return r.Description }
	case models.ModeCode:
		key = func(r models.Row) string { return r.Code }
	default:
		return nil, ErrUnknownMode
	}

	var matched []models.Row
	for _, r := range rows {
		if key(r) == sel.Product {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, ErrNoProductData
	}
	return matched, nil
}

func matchRange(rows []models.Row, sel models.Selection) ([]models.Row, error) {
	window := models.Window{Start: sel.Start, End: sel.End}

	var matched []models.Row
	for _, r := range rows {
		if window.Contains(r.Period()) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, ErrNoRangeData
	}
	return matched, nil
}

// InWindow keeps the rows whose month lies inside window.
func InWindow(rows []models.Row, window models.Window) []models.Row {
	kept := make([]models.Row, 0, len(rows))
	for _, r := range rows {
		if window.Contains(r.Period()) {
			kept = append(kept, r)
		}
	}
	return kept
}
