// Package widget owns the floating attendance overlay: construction,
// teardown, and writes into its stats region. It holds no business
// state; the date-range model and the attendance engine drive it.
package widget

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/topacademybot/internal/browser"
)

//go:embed widget.js widget.css stats.html.template
var fs embed.FS

var widgetJS = mustRead("widget.js")
var widgetCSS = mustRead("widget.css")

var statsTemplate = template.Must(template.ParseFS(fs, "stats.html.template"))

func mustRead(name string) string {
	data, err := fs.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// StatsData is the rendered stats region's content. Percentage is
// preformatted to one decimal place.
type StatsData struct {
	Total      int
	Present    int
	Late       int
	Absent     int
	Percentage string
}

// RenderStats produces the stats region markup.
func RenderStats(data StatsData) (string, error) {
	var buf bytes.Buffer
	if err := statsTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("widget: render stats: %w", err)
	}
	return buf.String(), nil
}

type Widget struct {
	tab    *browser.Tab
	logger *slog.Logger
}

func New(tab *browser.Tab, logger *slog.Logger) *Widget {
	if logger == nil {
		logger = slog.Default()
	}
	return &Widget{tab: tab, logger: logger}
}

// Mount injects the overlay. Idempotent: an already mounted widget is
// left in place, so check-and-create cannot race itself within one
// event-loop turn.
func (w *Widget) Mount(ctx context.Context) error {
	if err := w.tab.InjectCSS(ctx, "attendance-stats-style", widgetCSS); err != nil {
		return fmt.Errorf("widget: inject css: %w", err)
	}
	if err := w.tab.Eval(ctx, widgetJS); err != nil {
		return fmt.Errorf("widget: mount: %w", err)
	}
	return nil
}

// Remove tears the overlay down. Removing an absent widget is a no-op.
func (w *Widget) Remove(ctx context.Context) {
	err := w.tab.Eval(ctx, `() => {
		const widget = document.getElementById('attendance-stats');
		if (widget) widget.remove();
	}`)
	if err != nil {
		w.logger.Warn("widget: remove", "error", err)
	}
}

// SetDates syncs the date inputs with the model. Empty strings clear
// the inputs. No-ops when the widget is gone.
func (w *Widget) SetDates(ctx context.Context, from, to string) {
	err := w.tab.Eval(ctx, `(from, to) => {
		const widget = document.getElementById('attendance-stats');
		if (!widget) return;
		widget.querySelector('#date-from').value = from;
		widget.querySelector('#date-to').value = to;
	}`, from, to)
	if err != nil {
		w.logger.Warn("widget: set dates", "error", err)
	}
}

// ShowStats writes the rendered stats markup into the stats region.
// No-ops when the widget is gone.
func (w *Widget) ShowStats(ctx context.Context, data StatsData) {
	markup, err := RenderStats(data)
	if err != nil {
		w.logger.Warn("widget: render stats", "error", err)
		return
	}
	err = w.tab.Eval(ctx, `markup => {
		const content = document.querySelector('#attendance-stats #stats-content');
		if (content) content.innerHTML = markup;
	}`, markup)
	if err != nil {
		w.logger.Warn("widget: show stats", "error", err)
	}
}
