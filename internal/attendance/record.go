// Package attendance aggregates lesson-attendance records visible in
// the journal's progress page over the selected date range, renders the
// result into the overlay widget, and highlights in-range lessons.
package attendance

import (
	"time"

	"github.com/topacademybot/internal/dom"
)

type Status int

const (
	StatusPresent Status = iota
	StatusLate
	StatusAbsent
)

// Record is one lesson with a parsed date and a classified status. It
// is recomputed from the DOM on every query, never stored.
type Record struct {
	Index  int
	Date   time.Time
	Status Status
}

const lessonDateLayout = "02.01.2006"

// ParseRecord classifies a raw lesson projection. Lessons without a
// parsable DD.MM.YYYY date are excluded from all calculations, so the
// second return is false for them. The date is placed at local midday
// to keep day-boundary comparisons immune to DST shifts.
func ParseRecord(lesson dom.Lesson) (Record, bool) {
	t, err := time.ParseInLocation(lessonDateLayout, lesson.DateText, time.Local)
	if err != nil {
		return Record{}, false
	}
	status := StatusPresent
	switch {
	case lesson.Late:
		status = StatusLate
	case lesson.Absent:
		status = StatusAbsent
	}
	return Record{
		Index:  lesson.Index,
		Date:   time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.Local),
		Status: status,
	}, true
}

// ParseRecords drops unparsable lessons silently.
func ParseRecords(lessons []dom.Lesson) []Record {
	records := make([]Record, 0, len(lessons))
	for _, lesson := range lessons {
		if record, ok := ParseRecord(lesson); ok {
			records = append(records, record)
		}
	}
	return records
}
