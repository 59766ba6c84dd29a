// Package navwatch detects single-page-application route changes in the
// driven page. The journal swaps content without reliable navigation
// events, so three redundant signals feed one URL comparison: debounced
// DOM mutation pings, popstate events, and a periodic fallback poll.
// Redundant checks are cheap string comparisons; a missed transition is
// not.
package navwatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/topacademybot/internal/bus"
)

const (
	// DefaultDebounce collapses mutation bursts into one check.
	DefaultDebounce = 300 * time.Millisecond
	// DefaultPollInterval is the fallback for transitions that produce
	// neither mutations nor popstate.
	DefaultPollInterval = 3 * time.Second
)

type ping int

const (
	pingMutation ping = iota
	pingPopstate
)

// Watcher raises bus.PageChanged exactly once per actual URL change.
type Watcher struct {
	location func(context.Context) (string, error)
	bus      *bus.Bus
	logger   *slog.Logger

	debounce     time.Duration
	pollInterval time.Duration

	pings chan ping

	mu      sync.Mutex
	lastURL string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Config for a Watcher. Location reads the page's current URL.
type Config struct {
	Location     func(context.Context) (string, error)
	Bus          *bus.Bus
	Debounce     time.Duration
	PollInterval time.Duration
	Logger       *slog.Logger
}

func New(cfg Config) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Watcher{
		location:     cfg.Location,
		bus:          cfg.Bus,
		logger:       cfg.Logger,
		debounce:     cfg.Debounce,
		pollInterval: cfg.PollInterval,
		pings:        make(chan ping, 64),
	}
}

// Start records the current URL as the baseline and begins watching.
func (w *Watcher) Start(ctx context.Context) {
	url, err := w.location(ctx)
	if err != nil {
		w.logger.Warn("navwatch: initial location", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	w.lastURL = url
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx)
}

// Stop cancels the loop and its timers. Pings arriving afterwards are
// dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// MutationPing reports that nodes were added or removed somewhere in
// the document. Attribute-only churn must not be reported.
func (w *Watcher) MutationPing() {
	select {
	case w.pings <- pingMutation:
	default:
	}
}

// Popstate reports a history navigation. Checked without debounce.
func (w *Watcher) Popstate() {
	select {
	case w.pings <- pingPopstate:
	default:
	}
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	poll := time.NewTicker(w.pollInterval)
	defer poll.Stop()

	// The debounce timer is armed only while a mutation burst is
	// pending.
	debounce := time.NewTimer(w.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()
	armed := false

	for {
		select {
		case <-ctx.Done():
			return

		case p := <-w.pings:
			if p == pingPopstate {
				w.check(ctx)
				continue
			}
			if armed && !debounce.Stop() {
				<-debounce.C
			}
			debounce.Reset(w.debounce)
			armed = true

		case <-debounce.C:
			armed = false
			w.check(ctx)

		case <-poll.C:
			w.check(ctx)
		}
	}
}

// check compares the live URL against the last known one and publishes
// at most one PageChanged per actual change.
func (w *Watcher) check(ctx context.Context) {
	url, err := w.location(ctx)
	if err != nil {
		w.logger.Warn("navwatch: read location", "error", err)
		return
	}

	w.mu.Lock()
	changed := url != "" && url != w.lastURL
	if changed {
		w.lastURL = url
	}
	w.mu.Unlock()

	if changed {
		w.logger.Info("navwatch: page changed", "url", url)
		w.bus.Publish(bus.PageChanged{URL: url})
	}
}
