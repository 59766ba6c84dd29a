// Package dom is the only place that reads or mutates the host page.
// It projects live DOM structure into plain structs so everything above
// it can be tested against fixtures instead of a browser. The host page
// is the source of truth; nothing here caches element state across
// calls.
package dom

import (
	"context"
	"errors"
)

// ErrGone reports that the queried elements have disappeared from the
// document between two calls.
var ErrGone = errors.New("element gone from document")

// Lesson is a raw projection of one lesson element, in document order.
type Lesson struct {
	Index    int    `json:"i"`
	DateText string `json:"date"`
	Late     bool   `json:"late"`
	Absent   bool   `json:"absent"`
}

// LessonMark tells the highlighter how to style one in-range lesson.
// Boundary marks the interval's exact endpoints.
type LessonMark struct {
	Index    int  `json:"i"`
	Boundary bool `json:"boundary"`
}

// Journal is the attendance subsystem's view of the page.
type Journal interface {
	// Lessons returns every lesson element currently in the document.
	Lessons(ctx context.Context) ([]Lesson, error)
	// HighlightLessons clears all previous highlight styling, then
	// applies the given marks. Calling it with no marks just clears.
	HighlightLessons(ctx context.Context, marks []LessonMark) error
}

// RatingContainer is a raw projection of one star-rating group.
type RatingContainer struct {
	ID        string `json:"id"`
	Stars     int    `json:"stars"`
	TopActive bool   `json:"top_active"`
}

// FeedbackTag is a raw projection of one feedback tag element.
type FeedbackTag struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Visible  bool   `json:"visible"`
	Selected bool   `json:"selected"`
}

// Homework is the automator's view of the page.
type Homework interface {
	// DetectModal returns a stable identity for the homework modal
	// currently in the document, or found=false when there is none.
	DetectModal(ctx context.Context) (id string, found bool, err error)
	// FillTimeInputs writes the elapsed-time fields. Returns false when
	// the modal does not carry at least two time inputs.
	FillTimeInputs(ctx context.Context, hours, minutes int) (bool, error)
	// RatingContainers lists the modal's star-rating groups.
	RatingContainers(ctx context.Context) ([]RatingContainer, error)
	// ClickTopStar simulates a click on the container's highest star.
	// Returns false when the star is not visible or not clickable, and
	// ErrGone when the container has left the document.
	ClickTopStar(ctx context.Context, containerID string) (bool, error)
	// TopStarActive reports whether the container's highest star shows
	// the active marker. ErrGone when the container has left the
	// document.
	TopStarActive(ctx context.Context, containerID string) (bool, error)
	// FeedbackTags lists the modal's feedback tag elements.
	FeedbackTags(ctx context.Context) ([]FeedbackTag, error)
	// SelectTag simulates a click on a tag. Returns false when the tag
	// is not visible or already gone.
	SelectTag(ctx context.Context, tagID string) (bool, error)
}
