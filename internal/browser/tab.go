package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps a Rod page with the helpers the bot needs: JS evaluation
// with JSON results, style injection, and JS-to-Go bindings.
type Tab struct {
	Page   *rod.Page
	logger *slog.Logger
}

// OpenTab creates a stealth page and navigates it to the journal.
func OpenTab(ctx context.Context, b *rod.Browser, pageURL string, logger *slog.Logger) (*Tab, error) {
	if logger == nil {
		logger = slog.Default()
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, logger: logger}, nil
}

// Eval runs js in the page, discarding the result.
func (t *Tab) Eval(ctx context.Context, js string, args ...interface{}) error {
	_, err := t.Page.Context(ctx).Eval(js, args...)
	return err
}

// EvalString runs js and returns its string result.
func (t *Tab) EvalString(ctx context.Context, js string, args ...interface{}) (string, error) {
	res, err := t.Page.Context(ctx).Eval(js, args...)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// EvalBool runs js and returns its boolean result.
func (t *Tab) EvalBool(ctx context.Context, js string, args ...interface{}) (bool, error) {
	res, err := t.Page.Context(ctx).Eval(js, args...)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// EvalJSON runs js, which must return a JSON string, and unmarshals the
// result into out.
func (t *Tab) EvalJSON(ctx context.Context, js string, out interface{}, args ...interface{}) error {
	raw, err := t.EvalString(ctx, js, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("browser: decode eval result: %w", err)
	}
	return nil
}

// Location returns the page's current URL as the page itself sees it.
// The SPA rewrites it without emitting navigation events, so this is
// polled rather than cached.
func (t *Tab) Location(ctx context.Context) (string, error) {
	return t.EvalString(ctx, `() => location.href`)
}

// InjectCSS adds a style tag with the given rules. Re-injecting under
// the same id replaces the previous rules.
func (t *Tab) InjectCSS(ctx context.Context, id, css string) error {
	return t.Eval(ctx, `(id, css) => {
		let tag = document.getElementById(id);
		if (!tag) {
			tag = document.createElement('style');
			tag.id = id;
			document.head.appendChild(tag);
		}
		tag.textContent = css;
	}`, id, css)
}

// Bind exposes a binding the injected scripts call to reach Go. Every
// call's payload string is passed to fn on a dedicated goroutine until
// ctx is cancelled.
func (t *Tab) Bind(ctx context.Context, name string, fn func(payload string)) error {
	if err := (proto.RuntimeAddBinding{Name: name}).Call(t.Page); err != nil {
		return fmt.Errorf("browser: add binding: %w", err)
	}

	go t.Page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != name {
			return
		}
		fn(e.Payload)
	})()

	return nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
