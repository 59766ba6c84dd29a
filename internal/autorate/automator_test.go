package autorate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topacademybot/internal/dom"
)

// manualScheduler queues callbacks and fires them only when the test
// says so, making the settle/retry timing deterministic.
type manualScheduler struct {
	queue []*scheduledTask
}

type scheduledTask struct {
	fn func()
}

func (s *manualScheduler) AfterFunc(_ time.Duration, fn func()) func() {
	task := &scheduledTask{fn: fn}
	s.queue = append(s.queue, task)
	return func() { task.fn = nil }
}

// fire runs every queued callback, including ones queued by the
// callbacks themselves, until the queue drains or maxRounds is hit.
func (s *manualScheduler) fire(maxRounds int) {
	for round := 0; round < maxRounds; round++ {
		pending := s.queue
		s.queue = nil
		if len(pending) == 0 {
			return
		}
		for _, task := range pending {
			if task.fn != nil {
				task.fn()
			}
		}
	}
}

func (s *manualScheduler) pending() int {
	n := 0
	for _, task := range s.queue {
		if task.fn != nil {
			n++
		}
	}
	return n
}

type fakeHomework struct {
	mu sync.Mutex

	modalID    string
	modalFound bool

	containers []dom.RatingContainer
	tags       []dom.FeedbackTag

	// starActiveAfter makes TopStarActive report true once the
	// container received that many clicks. Zero means never.
	starActiveAfter map[string]int
	clicks          map[string]int
	gone            map[string]bool

	filledHours   int
	filledMinutes int
	fillCalls     int
	selectedTags  []string
}

func newFakeHomework() *fakeHomework {
	return &fakeHomework{
		starActiveAfter: map[string]int{},
		clicks:          map[string]int{},
		gone:            map[string]bool{},
	}
}

func (f *fakeHomework) DetectModal(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modalID, f.modalFound, nil
}

func (f *fakeHomework) FillTimeInputs(_ context.Context, hours, minutes int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fillCalls++
	f.filledHours = hours
	f.filledMinutes = minutes
	return true, nil
}

func (f *fakeHomework) RatingContainers(context.Context) ([]dom.RatingContainer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.containers, nil
}

func (f *fakeHomework) ClickTopStar(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[id] {
		return false, dom.ErrGone
	}
	f.clicks[id]++
	return true, nil
}

func (f *fakeHomework) TopStarActive(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[id] {
		return false, dom.ErrGone
	}
	after := f.starActiveAfter[id]
	return after > 0 && f.clicks[id] >= after, nil
}

func (f *fakeHomework) FeedbackTags(context.Context) ([]dom.FeedbackTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags, nil
}

func (f *fakeHomework) SelectTag(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectedTags = append(f.selectedTags, id)
	return true, nil
}

func (f *fakeHomework) totalClicks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.clicks {
		total += n
	}
	return total
}

func newTestAutomator(hw dom.Homework, sched Scheduler) *Automator {
	a := New(hw, Options{
		Scheduler: sched,
		Intn:      func(int) int { return 0 },
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	a.SetConfig(true, false)
	return a
}

func TestProcessesModalOnce(t *testing.T) {
	hw := newFakeHomework()
	hw.modalID, hw.modalFound = "modal-1", true
	hw.containers = []dom.RatingContainer{{ID: "r1", Stars: 5}}
	hw.starActiveAfter["r1"] = 1

	sched := &manualScheduler{}
	a := newTestAutomator(hw, sched)

	ctx := context.Background()
	a.CheckModal(ctx)
	sched.fire(10)

	require.Equal(t, 1, hw.fillCalls)
	assert.Equal(t, 1, hw.filledHours)
	assert.Equal(t, 15, hw.filledMinutes)
	assert.Equal(t, 1, hw.clicks["r1"])

	// The same modal never gets processed again.
	a.CheckModal(ctx)
	sched.fire(10)
	assert.Equal(t, 1, hw.fillCalls)
}

func TestDisabledSkipsModal(t *testing.T) {
	hw := newFakeHomework()
	hw.modalID, hw.modalFound = "modal-1", true

	sched := &manualScheduler{}
	a := newTestAutomator(hw, sched)
	a.SetConfig(false, false)

	a.CheckModal(context.Background())
	sched.fire(10)

	assert.Zero(t, hw.fillCalls)
}

func TestRetryUntilVerified(t *testing.T) {
	hw := newFakeHomework()
	hw.modalID, hw.modalFound = "modal-1", true
	hw.containers = []dom.RatingContainer{{ID: "r1", Stars: 5}}
	// First click does not stick, the second does.
	hw.starActiveAfter["r1"] = 2

	sched := &manualScheduler{}
	a := newTestAutomator(hw, sched)

	a.CheckModal(context.Background())
	sched.fire(10)

	assert.Equal(t, 2, hw.clicks["r1"])
	a.mu.Lock()
	defer a.mu.Unlock()
	require.Contains(t, a.retries, "r1")
	assert.Equal(t, retryVerified, a.retries["r1"].state)
}

func TestRetryExhaustionAbandons(t *testing.T) {
	hw := newFakeHomework()
	hw.modalID, hw.modalFound = "modal-1", true
	hw.containers = []dom.RatingContainer{{ID: "r1", Stars: 5}}
	// The star never activates.

	sched := &manualScheduler{}
	a := newTestAutomator(hw, sched)

	a.CheckModal(context.Background())
	sched.fire(10)

	assert.Equal(t, 3, hw.clicks["r1"])
	assert.Zero(t, sched.pending(), "no retry may remain scheduled after abandonment")

	a.mu.Lock()
	defer a.mu.Unlock()
	require.Contains(t, a.retries, "r1")
	assert.Equal(t, retryAbandoned, a.retries["r1"].state)
}

func TestVanishedContainerAbandons(t *testing.T) {
	hw := newFakeHomework()
	hw.modalID, hw.modalFound = "modal-1", true
	hw.containers = []dom.RatingContainer{{ID: "r1", Stars: 5}}

	sched := &manualScheduler{}
	a := newTestAutomator(hw, sched)

	a.CheckModal(context.Background())
	// Run the settle callback only, then remove the container before
	// verification fires.
	sched.fire(1)
	hw.gone["r1"] = true
	sched.fire(10)

	a.mu.Lock()
	defer a.mu.Unlock()
	require.Contains(t, a.retries, "r1")
	assert.Equal(t, retryAbandoned, a.retries["r1"].state)
}

func TestSkipsNonFiveStarAndAlreadyActive(t *testing.T) {
	hw := newFakeHomework()
	hw.modalID, hw.modalFound = "modal-1", true
	hw.containers = []dom.RatingContainer{
		{ID: "r1", Stars: 3},
		{ID: "r2", Stars: 5, TopActive: true},
		{ID: "r3", Stars: 5},
	}
	hw.starActiveAfter["r3"] = 1

	sched := &manualScheduler{}
	a := newTestAutomator(hw, sched)

	a.CheckModal(context.Background())
	sched.fire(10)

	assert.Zero(t, hw.clicks["r1"])
	assert.Zero(t, hw.clicks["r2"])
	assert.Equal(t, 1, hw.clicks["r3"])
}

func TestSelectsAtMostTwoAllowedTags(t *testing.T) {
	hw := newFakeHomework()
	hw.modalID, hw.modalFound = "modal-1", true
	hw.tags = []dom.FeedbackTag{
		{ID: "t1", Text: "Слишком сложно", Visible: true},
		{ID: "t2", Text: "Все круто!", Visible: true},
		{ID: "t3", Text: "Все понятно!", Visible: false},
		{ID: "t4", Text: "Мне нравится", Visible: true, Selected: true},
		{ID: "t5", Text: "Все понятно!", Visible: true},
		{ID: "t6", Text: "Все круто!", Visible: true},
	}

	sched := &manualScheduler{}
	a := newTestAutomator(hw, sched)

	a.CheckModal(context.Background())
	sched.fire(10)

	// t1 is off the allow-list, t3 hidden, t4 already selected; then
	// the two-tag cap stops before t6.
	assert.Equal(t, []string{"t2", "t5"}, hw.selectedTags)
}

// Exercises Stop against wall-clock retry timers for many containers
// at once. Run with the race detector: the retry cancel handle is
// shared between the scheduling path and Stop.
func TestStopWhileRetriesInFlight(t *testing.T) {
	hw := newFakeHomework()
	hw.modalID, hw.modalFound = "modal-1", true
	for i := 0; i < 50; i++ {
		hw.containers = append(hw.containers, dom.RatingContainer{
			ID:    fmt.Sprintf("r%d", i),
			Stars: 5,
		})
		// The stars never activate, so every container keeps retrying
		// until Stop.
	}

	a := New(hw, Options{
		SettleDelay:  time.Millisecond,
		RetryDelay:   time.Millisecond,
		PollInterval: time.Hour,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Intn:         func(int) int { return 0 },
	})
	a.SetConfig(true, false)

	a.CheckModal(context.Background())
	time.Sleep(5 * time.Millisecond)
	a.Stop()

	// A verify that was already past its retry lookup may still finish;
	// give it a moment to drain, then nothing else may click: Stop
	// cleared the retry table, so any timer that still fires finds
	// nothing to act on and no new timer may be armed.
	time.Sleep(5 * time.Millisecond)
	before := hw.totalClicks()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, before, hw.totalClicks())

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Empty(t, a.retries)
}

func TestStopCancelsPendingRetries(t *testing.T) {
	hw := newFakeHomework()
	hw.modalID, hw.modalFound = "modal-1", true
	hw.containers = []dom.RatingContainer{{ID: "r1", Stars: 5}}

	sched := &manualScheduler{}
	a := newTestAutomator(hw, sched)
	a.Start(context.Background())

	a.CheckModal(context.Background())
	sched.fire(2) // settle + first verify, leaving a retry scheduled
	require.Equal(t, 1, sched.pending())

	a.Stop()
	assert.Zero(t, sched.pending())

	clicksBefore := hw.clicks["r1"]
	sched.fire(10)
	assert.Equal(t, clicksBefore, hw.clicks["r1"])
}
