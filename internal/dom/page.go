package dom

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/topacademybot/internal/browser"
)

//go:embed script.js
var bootstrapJS string

// BindingName is the Runtime binding the injected scripts call to reach
// Go.
const BindingName = "__ta_emit"

// Page implements Journal and Homework against the live tab.
type Page struct {
	tab    *browser.Tab
	logger *slog.Logger
}

func NewPage(tab *browser.Tab, logger *slog.Logger) *Page {
	if logger == nil {
		logger = slog.Default()
	}
	return &Page{tab: tab, logger: logger}
}

// Ensure re-injects the bootstrap script. Safe to call on every page
// change: the script guards itself against double evaluation, but a
// full reload wipes it.
func (p *Page) Ensure(ctx context.Context) error {
	if err := p.tab.Eval(ctx, bootstrapJS); err != nil {
		return fmt.Errorf("dom: inject bootstrap: %w", err)
	}
	return nil
}

// Location returns the page's current URL.
func (p *Page) Location(ctx context.Context) (string, error) {
	return p.tab.Location(ctx)
}

// SetZoom applies the configured page zoom.
func (p *Page) SetZoom(ctx context.Context, level string) error {
	return p.tab.Eval(ctx, `level => {
		document.documentElement.style.zoom = level;
	}`, level)
}

func (p *Page) Lessons(ctx context.Context) ([]Lesson, error) {
	var lessons []Lesson
	err := p.tab.EvalJSON(ctx, `() => {
		const out = [];
		document.querySelectorAll('.lessons').forEach((el, i) => {
			const dateEl = el.querySelector('.date');
			out.push({
				i: i,
				date: dateEl ? dateEl.textContent.trim() : '',
				late: el.classList.contains('lateness'),
				absent: el.classList.contains('pass'),
			});
		});
		return JSON.stringify(out);
	}`, &lessons)
	if err != nil {
		return nil, fmt.Errorf("dom: query lessons: %w", err)
	}
	return lessons, nil
}

// HighlightLessons clears every previous border first, then restyles
// the marked lessons in chunks yielded through requestAnimationFrame so
// long lists do not jank the host page. Each pass carries a generation
// number; chunks queued by a superseded pass stop instead of repainting
// stale marks over the newer pass's clear.
func (p *Page) HighlightLessons(ctx context.Context, marks []LessonMark) error {
	err := p.tab.Eval(ctx, highlightJS, marks)
	if err != nil {
		return fmt.Errorf("dom: highlight lessons: %w", err)
	}
	return nil
}

const highlightJS = `marks => {
		const gen = (window.__taHighlightGen = (window.__taHighlightGen || 0) + 1);
		const lessons = document.querySelectorAll('.lessons');
		lessons.forEach(el => {
			el.style.border = '';
			el.style.boxShadow = '';
		});
		const byIndex = {};
		marks.forEach(m => { byIndex[m.i] = m; });
		const apply = start => {
			if (gen !== window.__taHighlightGen) return;
			const end = Math.min(start + 200, lessons.length);
			for (let i = start; i < end; i++) {
				const m = byIndex[i];
				if (!m) continue;
				const el = lessons[i];
				el.style.boxSizing = 'border-box';
				el.style.border = m.boundary ? '2px solid #14532d' : '2px solid #16a34a';
				if (m.boundary) el.style.boxShadow = '0 0 4px rgba(20,83,45,0.8)';
			}
			if (end < lessons.length) requestAnimationFrame(() => apply(end));
		};
		apply(0);
	}`

func (p *Page) DetectModal(ctx context.Context) (string, bool, error) {
	id, err := p.tab.EvalString(ctx, `() => {
		const modal = document.querySelector('hw-upload-homework');
		if (!modal) return '';
		return window.__ta.idFor(modal, 'modal');
	}`)
	if err != nil {
		return "", false, fmt.Errorf("dom: detect modal: %w", err)
	}
	return id, id != "", nil
}

func (p *Page) FillTimeInputs(ctx context.Context, hours, minutes int) (bool, error) {
	ok, err := p.tab.EvalBool(ctx, `(hours, minutes) => {
		const inputs = document.querySelectorAll('.text-homework-time-spent-wrap input');
		if (inputs.length < 2) return false;
		const set = (input, value) => {
			input.value = String(value);
			input.dispatchEvent(new Event('input', { bubbles: true }));
			input.dispatchEvent(new Event('change', { bubbles: true }));
		};
		set(inputs[0], hours);
		set(inputs[1], minutes);
		return true;
	}`, hours, minutes)
	if err != nil {
		return false, fmt.Errorf("dom: fill time inputs: %w", err)
	}
	return ok, nil
}

func (p *Page) RatingContainers(ctx context.Context) ([]RatingContainer, error) {
	var containers []RatingContainer
	err := p.tab.EvalJSON(ctx, `() => {
		const out = [];
		document.querySelectorAll('.emoji-evaluation').forEach(el => {
			const stars = el.querySelectorAll('.bs-rating-star');
			out.push({
				id: window.__ta.idFor(el, 'rating'),
				stars: stars.length,
				top_active: stars.length > 0 &&
					stars[stars.length - 1].classList.contains('active'),
			});
		});
		return JSON.stringify(out);
	}`, &containers)
	if err != nil {
		return nil, fmt.Errorf("dom: query rating containers: %w", err)
	}
	return containers, nil
}

func (p *Page) ClickTopStar(ctx context.Context, containerID string) (bool, error) {
	result, err := p.tab.EvalString(ctx, `id => {
		const el = document.querySelector('.emoji-evaluation[data-ta-id="' + id + '"]');
		if (!el) return 'gone';
		const stars = el.querySelectorAll('.bs-rating-star');
		if (stars.length === 0) return 'gone';
		const star = stars[stars.length - 1];
		if (!window.__ta.visible(star) || !window.__ta.clickable(star)) return 'rejected';
		const button = star.querySelector('button.rating-star');
		(button || star).click();
		return 'clicked';
	}`, containerID)
	if err != nil {
		return false, fmt.Errorf("dom: click top star: %w", err)
	}
	switch result {
	case "clicked":
		return true, nil
	case "rejected":
		return false, nil
	default:
		return false, ErrGone
	}
}

func (p *Page) TopStarActive(ctx context.Context, containerID string) (bool, error) {
	result, err := p.tab.EvalString(ctx, `id => {
		const el = document.querySelector('.emoji-evaluation[data-ta-id="' + id + '"]');
		if (!el) return 'gone';
		const stars = el.querySelectorAll('.bs-rating-star');
		if (stars.length === 0) return 'gone';
		return stars[stars.length - 1].classList.contains('active') ? 'active' : 'inactive';
	}`, containerID)
	if err != nil {
		return false, fmt.Errorf("dom: check top star: %w", err)
	}
	switch result {
	case "active":
		return true, nil
	case "inactive":
		return false, nil
	default:
		return false, ErrGone
	}
}

func (p *Page) FeedbackTags(ctx context.Context) ([]FeedbackTag, error) {
	var tags []FeedbackTag
	err := p.tab.EvalJSON(ctx, `() => {
		const out = [];
		document.querySelectorAll('.evaluation-tags-item').forEach(el => {
			const span = el.querySelector('span');
			out.push({
				id: window.__ta.idFor(el, 'tag'),
				text: span ? span.textContent.trim() : '',
				visible: window.__ta.visible(el),
				selected: el.classList.contains('selected'),
			});
		});
		return JSON.stringify(out);
	}`, &tags)
	if err != nil {
		return nil, fmt.Errorf("dom: query feedback tags: %w", err)
	}
	return tags, nil
}

func (p *Page) SelectTag(ctx context.Context, tagID string) (bool, error) {
	ok, err := p.tab.EvalBool(ctx, `id => {
		const el = document.querySelector('.evaluation-tags-item[data-ta-id="' + id + '"]');
		if (!el || !window.__ta.visible(el)) return false;
		el.click();
		return true;
	}`, tagID)
	if err != nil {
		return false, fmt.Errorf("dom: select tag: %w", err)
	}
	return ok, nil
}

// LoginFormPresent reports whether the journal is showing its login
// form instead of the application.
func (p *Page) LoginFormPresent(ctx context.Context) (bool, error) {
	ok, err := p.tab.EvalBool(ctx, `() => {
		const field = document.querySelector('form input[type="password"]');
		return !!field && window.__ta.visible(field);
	}`)
	if err != nil {
		return false, fmt.Errorf("dom: detect login form: %w", err)
	}
	return ok, nil
}

// SubmitLogin fills and submits the login form.
func (p *Page) SubmitLogin(ctx context.Context, login, password string) error {
	err := p.tab.Eval(ctx, `(login, password) => {
		const form = document.querySelector('form input[type="password"]').closest('form');
		const user = form.querySelector('input[type="text"], input[type="email"]');
		const pass = form.querySelector('input[type="password"]');
		const set = (input, value) => {
			input.value = value;
			input.dispatchEvent(new Event('input', { bubbles: true }));
		};
		set(user, login);
		set(pass, password);
		const button = form.querySelector('button[type="submit"], button');
		if (button) button.click();
		else form.submit();
	}`, login, password)
	if err != nil {
		return fmt.Errorf("dom: submit login: %w", err)
	}
	return nil
}
