// Package app assembles the bot: it owns the browser session, wires
// the page observers to the attendance and auto-rating subsystems
// through the event bus, and routes injected-script events to their
// handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/topacademybot/internal/attendance"
	"github.com/topacademybot/internal/autorate"
	"github.com/topacademybot/internal/browser"
	"github.com/topacademybot/internal/bus"
	"github.com/topacademybot/internal/config"
	"github.com/topacademybot/internal/credentials"
	"github.com/topacademybot/internal/daterange"
	"github.com/topacademybot/internal/dom"
	"github.com/topacademybot/internal/navwatch"
	"github.com/topacademybot/internal/settings"
	"github.com/topacademybot/internal/widget"
)

// Config for an App.
type Config struct {
	// JournalURL is where the initial tab navigates.
	JournalURL string
	Browser    browser.Config

	DB            *badger.DB
	EncryptionKey credentials.Key

	Logger *slog.Logger
}

type App struct {
	cfg    Config
	logger *slog.Logger

	configs *config.Store
	creds   *credentials.Store
	bus     *bus.Bus

	manager    *browser.Manager
	tab        *browser.Tab
	page       *dom.Page
	controller *attendance.Controller
	watcher    *navwatch.Watcher
	automator  *autorate.Automator
	settings   *settings.Service

	mu   sync.Mutex
	zoom string
}

func New(cfg Config) *App {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &App{
		cfg:     cfg,
		logger:  cfg.Logger,
		configs: config.NewStore(cfg.DB),
		creds:   credentials.NewStore(cfg.DB, cfg.EncryptionKey),
		bus:     bus.New(cfg.Logger),
	}
}

// Run starts the browser session and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	cfg, err := a.configs.Load(ctx)
	if err != nil {
		return fmt.Errorf("app: load config: %w", err)
	}
	a.mu.Lock()
	a.zoom = cfg.Zoom()
	a.mu.Unlock()

	a.manager = browser.NewManager(a.cfg.Browser)
	b, err := a.manager.Start(ctx)
	if err != nil {
		return fmt.Errorf("app: start browser: %w", err)
	}
	defer a.manager.Close()

	a.tab, err = browser.OpenTab(ctx, b, a.cfg.JournalURL, a.logger)
	if err != nil {
		return fmt.Errorf("app: open journal tab: %w", err)
	}
	defer a.tab.Close()

	a.page = dom.NewPage(a.tab, a.logger)
	if err := a.page.Ensure(ctx); err != nil {
		return fmt.Errorf("app: bootstrap page: %w", err)
	}
	a.applyZoom(ctx)
	a.maybeLogin(ctx)

	model := daterange.NewModel(time.Now)
	view := widget.New(a.tab, a.logger)
	engine := attendance.NewEngine(a.page, view, model, a.logger)
	a.controller = attendance.NewController(engine, view, model, cfg.ProgressPageRegexp(), a.logger)

	a.watcher = navwatch.New(navwatch.Config{
		Location: a.page.Location,
		Bus:      a.bus,
		Logger:   a.logger,
	})
	a.automator = autorate.New(a.page, autorate.Options{Logger: a.logger})
	a.automator.SetConfig(cfg.AutoRateEnabled, cfg.AutoSubmitEnabled)
	a.settings = settings.NewService(a.configs, a.bus, a.tab, a.logger)

	unsubscribe := a.bus.Subscribe(func(event bus.Event) { a.onEvent(ctx, event) })
	defer unsubscribe()

	if err := a.tab.Bind(ctx, dom.BindingName, func(payload string) {
		a.onPageEvent(ctx, payload)
	}); err != nil {
		return fmt.Errorf("app: bind page events: %w", err)
	}

	a.watcher.Start(ctx)
	defer a.watcher.Stop()
	a.automator.Start(ctx)
	defer a.automator.Stop()

	a.settings.RegisterMenu(ctx)

	// Converge on whatever page the tab landed on.
	if url, err := a.page.Location(ctx); err == nil {
		a.controller.HandlePageChanged(ctx, url)
	}

	a.logger.Info("app: running", "journal_url", a.cfg.JournalURL)
	<-ctx.Done()
	return nil
}

// maybeLogin submits stored credentials when the journal shows its
// login form. Missing credentials leave the form to the user.
func (a *App) maybeLogin(ctx context.Context) {
	present, err := a.page.LoginFormPresent(ctx)
	if err != nil || !present {
		return
	}

	creds, err := a.creds.Current(ctx)
	if errors.Is(err, credentials.ErrNotFound) {
		a.logger.Info("app: login form shown but no credentials stored, waiting for manual login")
		return
	}
	if err != nil {
		a.logger.Warn("app: load credentials", "error", err)
		return
	}

	if err := a.page.SubmitLogin(ctx, creds.Login, creds.Password); err != nil {
		a.logger.Warn("app: submit login", "error", err)
		return
	}
	a.logger.Info("app: login submitted", "login", creds.Login)
}

// onPageEvent routes one injected-script event.
func (a *App) onPageEvent(ctx context.Context, payload string) {
	event, err := dom.DecodePageEvent(payload)
	if err != nil {
		a.logger.Warn("app: bad page event", "error", err)
		return
	}

	switch event.Kind {
	case dom.KindMutation:
		a.watcher.MutationPing()
		a.automator.MutationPing(ctx)
	case dom.KindPopstate:
		a.watcher.Popstate()
	case dom.KindLessonClick:
		a.controller.HandleLessonClick(ctx, event.Date, event.Shift)
	case dom.KindDateFrom:
		a.controller.HandleDateFrom(ctx, event.Value)
	case dom.KindDateTo:
		a.controller.HandleDateTo(ctx, event.Value)
	case dom.KindReset:
		a.controller.HandleReset(ctx)
	case dom.KindRefresh:
		a.controller.HandleRefresh(ctx)
	case dom.KindMenu:
		a.settings.OpenDialog(ctx)
	case dom.KindSettingsSave:
		if err := a.settings.HandleSave(ctx, event.Settings); err != nil {
			a.logger.Warn("app: save settings", "error", err)
		}
	default:
		a.logger.Warn("app: unknown page event", "kind", event.Kind)
	}
}

// onEvent reacts to bus events.
func (a *App) onEvent(ctx context.Context, event bus.Event) {
	switch e := event.(type) {
	case bus.PageChanged:
		// A full reload wipes the injected scripts, so re-ensure before
		// anything touches the page.
		if err := a.page.Ensure(ctx); err != nil {
			a.logger.Warn("app: re-bootstrap page", "error", err)
			return
		}
		a.applyZoom(ctx)
		a.maybeLogin(ctx)
		a.settings.RegisterMenu(ctx)
		a.controller.HandlePageChanged(ctx, e.URL)
	case bus.ConfigUpdated:
		a.mu.Lock()
		a.zoom = e.Config.Zoom()
		a.mu.Unlock()

		a.applyZoom(ctx)
		a.controller.SetPattern(e.Config.ProgressPageRegexp())
		a.automator.SetConfig(e.Config.AutoRateEnabled, e.Config.AutoSubmitEnabled)
	}
}

func (a *App) applyZoom(ctx context.Context) {
	a.mu.Lock()
	zoom := a.zoom
	a.mu.Unlock()

	if err := a.page.SetZoom(ctx, zoom); err != nil {
		a.logger.Warn("app: apply zoom", "error", err)
	}
}
