package attendance

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/topacademybot/internal/daterange"
)

// Controller gates the attendance subsystem on the progress page and
// routes widget/lesson events into the date-range model. Page-changed
// notifications are level-triggered: the controller re-evaluates the
// URL and converges to mounted or removed without assuming any prior
// state.
type Controller struct {
	engine *Engine
	view   StatsView
	model  modelAPI
	logger *slog.Logger

	mu      sync.Mutex
	pattern *regexp.Regexp
	active  bool
}

// modelAPI is the part of daterange.Model the controller drives.
type modelAPI interface {
	SetFromInput(value string)
	SetToInput(value string)
	SelectByClick(date time.Time, extend bool)
	ResetToDefaultMonth()
	Interval() daterange.Interval
}

func NewController(engine *Engine, view StatsView, model modelAPI, pattern *regexp.Regexp, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		engine:  engine,
		view:    view,
		model:   model,
		logger:  logger,
		pattern: pattern,
	}
}

// SetPattern swaps the progress-page pattern after a configuration
// update.
func (c *Controller) SetPattern(pattern *regexp.Regexp) {
	c.mu.Lock()
	c.pattern = pattern
	c.mu.Unlock()
}

// HandlePageChanged mounts or removes the widget for the given URL.
func (c *Controller) HandlePageChanged(ctx context.Context, url string) {
	c.mu.Lock()
	pattern := c.pattern
	wasActive := c.active
	onProgress := pattern.MatchString(url)
	c.active = onProgress
	c.mu.Unlock()

	if !onProgress {
		if wasActive {
			c.logger.Info("attendance: leaving progress page, removing widget")
		}
		c.view.Remove(ctx)
		return
	}

	if !wasActive {
		// Fresh init: the interval does not survive page changes.
		c.model.ResetToDefaultMonth()
	}
	if err := c.view.Mount(ctx); err != nil {
		c.logger.Warn("attendance: mount widget", "error", err)
		return
	}
	c.syncDates(ctx)
	c.engine.Refresh(ctx)
}

// HandleDateFrom applies an edit of the "from" input.
func (c *Controller) HandleDateFrom(ctx context.Context, value string) {
	c.model.SetFromInput(value)
	c.syncDates(ctx)
	c.engine.Refresh(ctx)
}

// HandleDateTo applies an edit of the "to" input.
func (c *Controller) HandleDateTo(ctx context.Context, value string) {
	c.model.SetToInput(value)
	c.syncDates(ctx)
	c.engine.Refresh(ctx)
}

// HandleReset restores the default month interval.
func (c *Controller) HandleReset(ctx context.Context) {
	c.model.ResetToDefaultMonth()
	c.syncDates(ctx)
	c.engine.Refresh(ctx)
}

// HandleRefresh recomputes without touching the interval.
func (c *Controller) HandleRefresh(ctx context.Context) {
	c.engine.Refresh(ctx)
}

// HandleLessonClick applies a direct click on a lesson element. A
// lesson without a parsable date is ignored.
func (c *Controller) HandleLessonClick(ctx context.Context, dateText string, extend bool) {
	t, err := time.ParseInLocation(lessonDateLayout, dateText, time.Local)
	if err != nil {
		return
	}
	c.model.SelectByClick(t, extend)
	c.syncDates(ctx)
	c.engine.Refresh(ctx)
}

// syncDates mirrors the model's interval back into the widget inputs.
func (c *Controller) syncDates(ctx context.Context) {
	interval := c.model.Interval()
	from, to := "", ""
	if interval.Start != nil {
		from = interval.Start.Format("2006-01-02")
	}
	if interval.End != nil {
		to = interval.End.Format("2006-01-02")
	}
	c.view.SetDates(ctx, from, to)
}
