// Package settings exposes the bot's configuration through the host
// page: a menu entry opens an injected dialog, and saving it persists
// the new snapshot and broadcasts it to the running components.
package settings

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/topacademybot/internal/browser"
	"github.com/topacademybot/internal/bus"
	"github.com/topacademybot/internal/config"
)

//go:embed menu.js dialog.js settings.css
var fs embed.FS

var menuJS = mustRead("menu.js")
var dialogJS = mustRead("dialog.js")
var dialogCSS = mustRead("settings.css")

func mustRead(name string) string {
	data, err := fs.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

type Service struct {
	store  *config.Store
	bus    *bus.Bus
	tab    *browser.Tab
	logger *slog.Logger
}

func NewService(store *config.Store, b *bus.Bus, tab *browser.Tab, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		bus:    b,
		tab:    tab,
		logger: logger,
	}
}

// RegisterMenu adds the bot's entry to the host navigation. When the
// host layout offers no recognizable menu the entry is skipped with a
// warning; the bot works without it.
func (s *Service) RegisterMenu(ctx context.Context) {
	result, err := s.tab.EvalString(ctx, menuJS)
	if err != nil {
		s.logger.Warn("settings: register menu entry", "error", err)
		return
	}
	if result != "ok" {
		s.logger.Warn("settings: no host menu found, settings entry skipped")
	}
}

// OpenDialog shows the settings form prefilled with the stored
// configuration.
func (s *Service) OpenDialog(ctx context.Context) {
	cfg, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("settings: load config for dialog", "error", err)
		cfg = config.Default()
	}

	if err := s.tab.InjectCSS(ctx, "ta-settings-style", dialogCSS); err != nil {
		s.logger.Warn("settings: inject dialog css", "error", err)
		return
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		s.logger.Warn("settings: encode config for dialog", "error", err)
		return
	}
	if err := s.tab.Eval(ctx, dialogJS, string(payload)); err != nil {
		s.logger.Warn("settings: open dialog", "error", err)
	}
}

// HandleSave applies a dialog submission: the payload is merged over
// the stored snapshot, persisted, and broadcast as ConfigUpdated.
func (s *Service) HandleSave(ctx context.Context, raw json.RawMessage) error {
	current, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("settings: load current config: %w", err)
	}

	cfg, err := MergeSubmission(current, raw)
	if err != nil {
		return err
	}

	if err := s.store.Save(ctx, cfg); err != nil {
		return fmt.Errorf("settings: save config: %w", err)
	}
	s.logger.Info("settings: configuration saved",
		"zoom_level", cfg.ZoomLevel,
		"auto_rate_enabled", cfg.AutoRateEnabled,
		"auto_submit_enabled", cfg.AutoSubmitEnabled)

	s.bus.Publish(bus.ConfigUpdated{Config: cfg})
	return nil
}

// MergeSubmission validates a dialog payload against the current
// snapshot. Invalid fields keep their current values rather than
// failing the whole save; only an undecodable payload is an error.
func MergeSubmission(current config.Config, raw json.RawMessage) (config.Config, error) {
	var submitted struct {
		ZoomLevel           *string `json:"zoom_level"`
		ProgressPagePattern *string `json:"progress_page_pattern"`
		AutoRateEnabled     *bool   `json:"auto_rate_enabled"`
		AutoSubmitEnabled   *bool   `json:"auto_submit_enabled"`
	}
	if err := json.Unmarshal(raw, &submitted); err != nil {
		return current, fmt.Errorf("settings: decode submission: %w", err)
	}

	cfg := current
	if submitted.ZoomLevel != nil && *submitted.ZoomLevel != "" {
		cfg.ZoomLevel = *submitted.ZoomLevel
	}
	if submitted.ProgressPagePattern != nil && *submitted.ProgressPagePattern != "" {
		if _, err := regexp.Compile(*submitted.ProgressPagePattern); err != nil {
			slog.Warn("settings: submitted pattern does not compile, keeping current",
				"pattern", *submitted.ProgressPagePattern, "error", err)
		} else {
			cfg.ProgressPagePattern = *submitted.ProgressPagePattern
		}
	}
	if submitted.AutoRateEnabled != nil {
		cfg.AutoRateEnabled = *submitted.AutoRateEnabled
	}
	if submitted.AutoSubmitEnabled != nil {
		cfg.AutoSubmitEnabled = *submitted.AutoSubmitEnabled
	}
	return cfg, nil
}
