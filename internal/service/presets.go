package service

import (
	"time"

	"github.com/imranbb88/chalet-manager/internal/domain"
)

// Preset names a predefined dashboard range.
type Preset string

const (
	PresetThisMonth   Preset = "thisMonth"
	PresetLastMonth   Preset = "lastMonth"
	PresetLast3Months Preset = "last3Months"
	PresetThisYear    Preset = "thisYear"
	PresetAll         Preset = "all"
	PresetReset       Preset = "reset"
)

// ResolvePreset maps a preset to a concrete range ending today. earliest
// is only consulted for PresetAll/PresetReset; a zero earliest means both
// collections are empty and the range collapses to today.
func ResolvePreset(p Preset, now time.Time, earliest domain.Date) (domain.DateRange, error) {
	today := domain.DateOf(now)
	y, m, _ := now.Date()

	var start domain.Date
	switch p {
	case PresetThisMonth:
		start = domain.NewDate(y, m, 1)
	case PresetLastMonth:
		start = domain.DateOf(time.Date(y, m-1, 1, 0, 0, 0, 0, time.UTC))
	case PresetLast3Months:
		// Calendar overflow normalizes forward: May 31 minus three months is Mar 3.
		start = domain.DateOf(time.Date(y, m-3, now.Day(), 0, 0, 0, 0, time.UTC))
	case PresetThisYear:
		start = domain.NewDate(y, time.January, 1)
	case PresetAll, PresetReset:
		start = today
		if !earliest.IsZero() && earliest.Before(today) {
			start = earliest
		}
	default:
		return domain.DateRange{}, &domain.ErrValidation{Field: "preset", Message: "unknown preset " + string(p)}
	}

	return domain.DateRange{Start: start, End: today}, nil
}

// NeedsEarliest reports whether resolving p requires the earliest record date.
func NeedsEarliest(p Preset) bool {
	return p == PresetAll || p == PresetReset
}

// RangeEdit is a manual change to one or both bounds.
type RangeEdit struct {
	Start *domain.Date
	End   *domain.Date
}

// Empty reports whether the edit changes nothing.
func (e RangeEdit) Empty() bool {
	return e.Start == nil && e.End == nil
}

// ApplyRangeEdit merges edit into previous. An edit that would put the end
// before the start is rejected and previous stays in effect.
func ApplyRangeEdit(previous domain.DateRange, edit RangeEdit) (domain.DateRange, error) {
	next := previous
	if edit.Start != nil {
		next.Start = *edit.Start
	}
	if edit.End != nil {
		next.End = *edit.End
	}
	if err := next.Validate(); err != nil {
		if _, ok := err.(*domain.ErrInvalidRange); ok {
			return previous, &domain.ErrInvalidRange{Previous: previous}
		}
		return previous, err
	}
	return next, nil
}
