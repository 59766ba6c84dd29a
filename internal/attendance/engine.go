package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/topacademybot/internal/daterange"
	"github.com/topacademybot/internal/dom"
	"github.com/topacademybot/internal/widget"
)

// StatsView is the slice of the overlay widget the engine writes to.
type StatsView interface {
	Mount(ctx context.Context) error
	Remove(ctx context.Context)
	SetDates(ctx context.Context, from, to string)
	ShowStats(ctx context.Context, data widget.StatsData)
}

// Engine reads lessons from the page, aggregates them over the current
// interval, and writes the result back into the widget and the lesson
// highlighting. All failures are absorbed with a log line: a widget
// that disappeared mid-operation must degrade, not crash.
type Engine struct {
	journal dom.Journal
	view    StatsView
	model   *daterange.Model
	logger  *slog.Logger
}

func NewEngine(journal dom.Journal, view StatsView, model *daterange.Model, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		journal: journal,
		view:    view,
		model:   model,
		logger:  logger,
	}
}

// Refresh recomputes the summary for the current interval and renders
// it, then re-highlights the in-range lessons.
func (e *Engine) Refresh(ctx context.Context) {
	lessons, err := e.journal.Lessons(ctx)
	if err != nil {
		e.logger.Warn("attendance: query lessons", "error", err)
		return
	}
	records := ParseRecords(lessons)
	interval := e.model.Interval()

	summary := Summarize(records, interval)
	e.view.ShowStats(ctx, widget.StatsData{
		Total:      summary.Total,
		Present:    summary.Present,
		Late:       summary.Late,
		Absent:     summary.Absent,
		Percentage: summary.FormatPercentage(),
	})

	e.highlight(ctx, records, interval)
}

// highlight applies clear-before-set marks: boundary styling on lessons
// dated exactly at an interval endpoint, regular styling strictly
// inside.
func (e *Engine) highlight(ctx context.Context, records []Record, interval daterange.Interval) {
	marks := Marks(records, interval)
	if err := e.journal.HighlightLessons(ctx, marks); err != nil {
		e.logger.Warn("attendance: highlight", "error", err)
	}
}

// Marks computes the highlight marks for the records inside interval.
func Marks(records []Record, interval daterange.Interval) []dom.LessonMark {
	marks := make([]dom.LessonMark, 0, len(records))
	for _, record := range records {
		if !interval.Contains(record.Date) {
			continue
		}
		marks = append(marks, dom.LessonMark{
			Index:    record.Index,
			Boundary: onBoundary(record.Date, interval),
		})
	}
	return marks
}

func onBoundary(date time.Time, interval daterange.Interval) bool {
	if interval.Start != nil && sameDay(date, *interval.Start) {
		return true
	}
	if interval.End != nil && sameDay(date, *interval.End) {
		return true
	}
	return false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
