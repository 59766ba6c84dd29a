package dom

import (
	"encoding/json"
	"fmt"
)

// Event kinds emitted by the injected scripts.
const (
	KindMutation     = "mutation"
	KindPopstate     = "popstate"
	KindLessonClick  = "lesson_click"
	KindDateFrom     = "date_from"
	KindDateTo       = "date_to"
	KindReset        = "reset"
	KindRefresh      = "refresh"
	KindMenu         = "menu"
	KindSettingsSave = "settings_save"
)

// PageEvent is one decoded binding payload. Fields beyond Kind are
// populated per kind: Date/Shift for lesson clicks, Value for date
// inputs, Settings for the settings dialog's save action.
type PageEvent struct {
	Kind     string          `json:"kind"`
	Date     string          `json:"date,omitempty"`
	Shift    bool            `json:"shift,omitempty"`
	Value    string          `json:"value,omitempty"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// DecodePageEvent parses a binding payload.
func DecodePageEvent(payload string) (PageEvent, error) {
	var event PageEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return PageEvent{}, fmt.Errorf("dom: decode page event: %w", err)
	}
	if event.Kind == "" {
		return PageEvent{}, fmt.Errorf("dom: page event without kind")
	}
	return event, nil
}
