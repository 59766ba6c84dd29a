// Package autorate automates the homework-review modal: once a new
// modal appears it fills the elapsed-time fields with plausible values,
// clicks the maximum star rating with a bounded verify/retry cycle per
// rating container, and selects up to two positive feedback tags. Every
// failure is soft: exhausted retries or vanished elements are logged
// and abandoned, never fatal.
package autorate

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/topacademybot/internal/dom"
)

const (
	// starsPerContainer is the host app's rating widget shape.
	starsPerContainer = 5
	maxTagsToSelect   = 2
)

// positiveTags is the allow-list of feedback labels worth selecting.
var positiveTags = map[string]bool{
	"Все круто!":   true,
	"Все понятно!": true,
	"Мне нравится": true,
}

// Options tune the automation delays. Zero values get defaults.
type Options struct {
	// SettleDelay lets the modal finish its own render before the bot
	// touches it.
	SettleDelay time.Duration
	// RetryDelay separates a star click from its verification.
	RetryDelay time.Duration
	// MaxAttempts bounds clicks per rating container.
	MaxAttempts int
	// PollInterval re-checks for a modal missed by mutations.
	PollInterval time.Duration

	Scheduler Scheduler
	// Intn is the randomness source for the time-spent fields.
	Intn   func(n int) int
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = time.Second
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.Scheduler == nil {
		o.Scheduler = NewScheduler()
	}
	if o.Intn == nil {
		o.Intn = rand.Intn
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Automator watches for the homework modal and processes each instance
// at most once.
type Automator struct {
	hw     dom.Homework
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	enabled    bool
	autoSubmit bool
	processing bool
	seen       map[string]struct{}
	retries    map[string]*containerRetry
	cancelPoll context.CancelFunc
}

func New(hw dom.Homework, opts Options) *Automator {
	opts.defaults()
	return &Automator{
		hw:      hw,
		opts:    opts,
		logger:  opts.Logger,
		seen:    make(map[string]struct{}),
		retries: make(map[string]*containerRetry),
	}
}

// SetConfig applies the feature flags from a configuration snapshot.
func (a *Automator) SetConfig(autoRate, autoSubmit bool) {
	a.mu.Lock()
	a.enabled = autoRate
	a.autoSubmit = autoSubmit
	a.mu.Unlock()
}

// Start begins the fallback modal poll. Mutation pings arrive through
// MutationPing independently.
func (a *Automator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.cancelPoll = cancel
	a.mu.Unlock()

	go func() {
		ticker := time.NewTicker(a.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.CheckModal(ctx)
			}
		}
	}()
}

// Stop cancels the poll and every pending retry timer so no stale
// callback fires against a torn-down page.
func (a *Automator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancelPoll != nil {
		a.cancelPoll()
		a.cancelPoll = nil
	}
	for id, retry := range a.retries {
		if retry.cancel != nil {
			retry.cancel()
		}
		delete(a.retries, id)
	}
}

// MutationPing re-checks for a modal after DOM churn.
func (a *Automator) MutationPing(ctx context.Context) {
	a.CheckModal(ctx)
}

// CheckModal detects an unseen modal and schedules its processing after
// the settle delay. Only one modal is processed at a time.
func (a *Automator) CheckModal(ctx context.Context) {
	a.mu.Lock()
	if !a.enabled || a.processing {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	id, found, err := a.hw.DetectModal(ctx)
	if err != nil {
		a.logger.Warn("autorate: detect modal", "error", err)
		return
	}
	if !found {
		return
	}

	a.mu.Lock()
	if a.processing {
		a.mu.Unlock()
		return
	}
	if _, done := a.seen[id]; done {
		a.mu.Unlock()
		return
	}
	a.seen[id] = struct{}{}
	a.processing = true
	a.mu.Unlock()

	a.logger.Info("autorate: homework modal detected", "modal", id)
	a.opts.Scheduler.AfterFunc(a.opts.SettleDelay, func() {
		a.process(ctx, id)
	})
}

// process runs the pipeline in strict sequence: time fill, the first
// rating pass, then tag selection. Retry sub-cycles spawned by the
// rating pass continue independently afterwards.
func (a *Automator) process(ctx context.Context, modalID string) {
	defer func() {
		a.mu.Lock()
		a.processing = false
		a.mu.Unlock()
	}()

	a.fillTimeSpent(ctx)
	a.rateMaximum(ctx)
	a.selectPositiveTags(ctx)

	a.mu.Lock()
	autoSubmit := a.autoSubmit
	a.mu.Unlock()
	if autoSubmit {
		// Submission stays a manual checkpoint: the flag is honoured
		// for everything up to it, but the final click is left to the
		// user.
		a.logger.Info("autorate: auto-submit is enabled but submission is left to the user", "modal", modalID)
	}

	a.logger.Info("autorate: modal processed", "modal", modalID)
}

func (a *Automator) fillTimeSpent(ctx context.Context) {
	// Plausible effort: 1..2 hours, 15..45 minutes.
	hours := 1 + a.opts.Intn(2)
	minutes := 15 + a.opts.Intn(31)

	ok, err := a.hw.FillTimeInputs(ctx, hours, minutes)
	if err != nil {
		a.logger.Warn("autorate: fill time spent", "error", err)
		return
	}
	if !ok {
		a.logger.Info("autorate: time-spent fields not found, skipping")
		return
	}
	a.logger.Info("autorate: time spent filled", "hours", hours, "minutes", minutes)
}

// rateMaximum clicks the top star in every container that is not
// already at maximum and not mid-retry, then starts an independent
// verification cycle per accepted click.
func (a *Automator) rateMaximum(ctx context.Context) {
	containers, err := a.hw.RatingContainers(ctx)
	if err != nil {
		a.logger.Warn("autorate: query rating containers", "error", err)
		return
	}

	for _, container := range containers {
		if container.Stars != starsPerContainer {
			continue
		}
		if container.TopActive {
			a.logger.Info("autorate: rating already at maximum", "container", container.ID)
			continue
		}

		a.mu.Lock()
		if retry, pending := a.retries[container.ID]; pending && !retry.terminal() {
			a.mu.Unlock()
			continue
		}
		a.mu.Unlock()

		clicked, err := a.hw.ClickTopStar(ctx, container.ID)
		if err != nil || !clicked {
			a.logger.Warn("autorate: top star click rejected",
				"container", container.ID, "error", err)
			continue
		}
		a.startVerification(ctx, container.ID)
	}
}

func (a *Automator) startVerification(ctx context.Context, containerID string) {
	retry := &containerRetry{state: retryVerifying, attempts: 1}

	a.mu.Lock()
	a.retries[containerID] = retry
	a.mu.Unlock()

	a.scheduleVerify(ctx, containerID, retry)
}

func (a *Automator) scheduleVerify(ctx context.Context, containerID string, retry *containerRetry) {
	cancel := a.opts.Scheduler.AfterFunc(a.opts.RetryDelay, func() {
		a.verify(ctx, containerID)
	})

	a.mu.Lock()
	current, ok := a.retries[containerID]
	if !ok || current != retry || retry.terminal() {
		// Stop or a terminal transition won the race; the timer we just
		// armed must not outlive it.
		a.mu.Unlock()
		cancel()
		return
	}
	retry.cancel = cancel
	a.mu.Unlock()
}

// verify re-checks a container after the retry delay and either
// terminates the cycle or re-clicks and schedules the next check.
func (a *Automator) verify(ctx context.Context, containerID string) {
	a.mu.Lock()
	retry, ok := a.retries[containerID]
	if !ok || retry.terminal() {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	active, err := a.hw.TopStarActive(ctx, containerID)
	switch {
	case errors.Is(err, dom.ErrGone):
		a.finishRetry(containerID, retry, retryAbandoned, "rating elements vanished")
		return
	case err != nil:
		a.logger.Warn("autorate: verify rating", "container", containerID, "error", err)
		a.finishRetry(containerID, retry, retryAbandoned, "verification failed")
		return
	}

	if active {
		a.finishRetry(containerID, retry, retryVerified, "")
		return
	}

	if retry.attempts >= a.opts.MaxAttempts {
		a.finishRetry(containerID, retry, retryAbandoned, "attempts exhausted")
		return
	}

	clicked, err := a.hw.ClickTopStar(ctx, containerID)
	if errors.Is(err, dom.ErrGone) {
		a.finishRetry(containerID, retry, retryAbandoned, "rating elements vanished")
		return
	}
	if err != nil || !clicked {
		a.finishRetry(containerID, retry, retryAbandoned, "re-click rejected")
		return
	}

	a.mu.Lock()
	retry.attempts++
	attempts := retry.attempts
	a.mu.Unlock()

	a.logger.Info("autorate: rating not confirmed, retrying",
		"container", containerID, "attempt", attempts, "max", a.opts.MaxAttempts)
	a.scheduleVerify(ctx, containerID, retry)
}

func (a *Automator) finishRetry(containerID string, retry *containerRetry, state retryState, reason string) {
	a.mu.Lock()
	retry.state = state
	retry.cancel = nil
	a.mu.Unlock()

	if state == retryVerified {
		a.logger.Info("autorate: rating verified", "container", containerID)
		return
	}
	// Soft failure: other containers and later modals continue.
	a.logger.Warn("autorate: rating abandoned", "container", containerID, "reason", reason)
}

// selectPositiveTags picks up to two visible allow-listed tags that are
// not already selected.
func (a *Automator) selectPositiveTags(ctx context.Context) {
	tags, err := a.hw.FeedbackTags(ctx)
	if err != nil {
		a.logger.Warn("autorate: query feedback tags", "error", err)
		return
	}

	selected := 0
	for _, tag := range tags {
		if selected >= maxTagsToSelect {
			break
		}
		if !tag.Visible || tag.Selected || !positiveTags[tag.Text] {
			continue
		}
		ok, err := a.hw.SelectTag(ctx, tag.ID)
		if err != nil || !ok {
			a.logger.Warn("autorate: select tag", "tag", tag.Text, "error", err)
			continue
		}
		a.logger.Info("autorate: tag selected", "tag", tag.Text)
		selected++
	}
	if selected == 0 {
		a.logger.Info("autorate: no suitable feedback tags found")
	}
}
