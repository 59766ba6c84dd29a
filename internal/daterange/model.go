// Package daterange owns the [start, end] interval the attendance
// statistics are filtered by. Three input channels mutate it: the
// widget's date inputs, direct clicks on lesson elements (shift-click
// extends), and the reset action. Normalize reconciles them into one
// consistent interval after every mutation.
package daterange

import (
	"time"
)

const inputLayout = "2006-01-02"

// Interval is a closed date interval. Nil endpoints mean the interval
// is unset and filters nothing out.
type Interval struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t falls inside the interval, inclusive on
// both ends.
func (i Interval) Contains(t time.Time) bool {
	if i.Start != nil && t.Before(*i.Start) {
		return false
	}
	if i.End != nil && t.After(*i.End) {
		return false
	}
	return true
}

type Model struct {
	now   func() time.Time
	start *time.Time
	end   *time.Time
}

func NewModel(now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	m := &Model{now: now}
	m.ResetToDefaultMonth()
	return m
}

// SetFromInput parses a YYYY-MM-DD value from the widget's "from" input
// as local midnight. An empty value clears the start.
func (m *Model) SetFromInput(value string) {
	if value == "" {
		m.start = nil
		m.Normalize()
		return
	}
	t, err := time.ParseInLocation(inputLayout, value, time.Local)
	if err != nil {
		return
	}
	start := startOfDay(t)
	m.start = &start
	m.Normalize()
}

// SetToInput parses a YYYY-MM-DD value from the widget's "to" input as
// local end of day. An empty value clears the end.
func (m *Model) SetToInput(value string) {
	if value == "" {
		m.end = nil
		m.Normalize()
		return
	}
	t, err := time.ParseInLocation(inputLayout, value, time.Local)
	if err != nil {
		return
	}
	end := endOfDay(t)
	m.end = &end
	m.Normalize()
}

// SelectByClick applies a click on a lesson dated date. With the extend
// modifier held and a start already present it moves the end; otherwise
// it restarts the selection at a single day. Restarting discards a
// previously extended range on purpose.
func (m *Model) SelectByClick(date time.Time, extend bool) {
	if extend && m.start != nil {
		end := endOfDay(date)
		m.end = &end
	} else {
		start := startOfDay(date)
		m.start = &start
		m.end = nil
	}
	m.Normalize()
}

// Normalize is the single point enforcing start <= end. It must run
// before every read of the interval.
func (m *Model) Normalize() {
	if m.start == nil {
		m.end = nil
		return
	}
	if m.end == nil {
		end := endOfDay(*m.start)
		m.end = &end
		start := startOfDay(*m.start)
		m.start = &start
		return
	}
	if m.end.Before(*m.start) {
		m.start, m.end = m.end, m.start
	}
	start := startOfDay(*m.start)
	end := endOfDay(*m.end)
	m.start = &start
	m.end = &end
}

// ResetToDefaultMonth sets the interval to [first day of the current
// month, today].
func (m *Model) ResetToDefaultMonth() {
	now := m.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := endOfDay(now)
	m.start = &start
	m.end = &end
}

// Interval returns the normalized interval.
func (m *Model) Interval() Interval {
	m.Normalize()
	return Interval{Start: m.start, End: m.end}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
