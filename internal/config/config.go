package config

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultProgressPagePattern matches the journal view that renders
	// the lesson list.
	DefaultProgressPagePattern = `https://journal\.top-academy\.ru/.*/main/progress/.*`
	// DefaultZoomLevel is applied to the page on every navigation.
	DefaultZoomLevel = "80%"
)

// Config is the persisted runtime configuration. The progress page
// pattern is stored as its source text so it survives storage round
// trips.
type Config struct {
	ZoomLevel           string `json:"zoom_level"`
	ProgressPagePattern string `json:"progress_page_pattern"`
	AutoRateEnabled     bool   `json:"auto_rate_enabled"`
	AutoSubmitEnabled   bool   `json:"auto_submit_enabled"`
}

func Default() Config {
	return Config{
		ZoomLevel:           DefaultZoomLevel,
		ProgressPagePattern: DefaultProgressPagePattern,
		AutoRateEnabled:     true,
		AutoSubmitEnabled:   false,
	}
}

// ProgressPageRegexp compiles the stored pattern. An invalid pattern
// falls back to the default instead of failing.
func (c Config) ProgressPageRegexp() *regexp.Regexp {
	re, err := regexp.Compile(c.ProgressPagePattern)
	if err != nil {
		slog.Warn("config: invalid progress page pattern, using default",
			"pattern", c.ProgressPagePattern, "error", err)
		return regexp.MustCompile(DefaultProgressPagePattern)
	}
	return re
}

// Zoom returns the zoom level as a percentage string. Malformed values
// fall back to the default.
func (c Config) Zoom() string {
	value := strings.TrimSuffix(strings.TrimSpace(c.ZoomLevel), "%")
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 || n > 500 {
		slog.Warn("config: invalid zoom level, using default",
			"zoom_level", c.ZoomLevel)
		return DefaultZoomLevel
	}
	return strconv.Itoa(n) + "%"
}
