package attendance

import (
	"math"
	"strconv"

	"github.com/topacademybot/internal/daterange"
)

// Summary aggregates the records inside an interval. Invariant:
// Present + Late + Absent == Total. Percentage counts present and late
// lessons as attended, rounded to one decimal place.
type Summary struct {
	Total      int
	Present    int
	Late       int
	Absent     int
	Percentage float64
}

// Summarize is a pure function of the records and the interval.
func Summarize(records []Record, interval daterange.Interval) Summary {
	var s Summary
	for _, record := range records {
		if !interval.Contains(record.Date) {
			continue
		}
		s.Total++
		switch record.Status {
		case StatusLate:
			s.Late++
		case StatusAbsent:
			s.Absent++
		default:
			s.Present++
		}
	}
	if s.Total > 0 {
		s.Percentage = math.Round(float64(s.Present+s.Late)/float64(s.Total)*1000) / 10
	}
	return s
}

// FormatPercentage renders the percentage with one decimal place, the
// way the widget displays it.
func (s Summary) FormatPercentage() string {
	return strconv.FormatFloat(s.Percentage, 'f', 1, 64)
}
