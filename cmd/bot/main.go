package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"github.com/topacademybot/internal/app"
	"github.com/topacademybot/internal/browser"
	"github.com/topacademybot/internal/credentials"
	"github.com/topacademybot/internal/migrations"
)

func main() {
	journalURL := flag.String("journal-url", "https://journal.top-academy.ru/", "journal address to open")
	dbPath := flag.String("database-path", "topacademybot.db", "path to the database")
	key := flag.String("encryption-key", "please-change-me", "encryption key for the database")
	browserURL := flag.String("browser-url", "", "devtools url of a running chrome, empty launches one")
	headless := flag.Bool("headless", false, "run the launched chrome headless")
	login := flag.String("login", "", "journal login to store before starting")
	password := flag.String("password", "", "journal password to store before starting")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] .env: %s", err)
	}
	if envKey := os.Getenv("ENCRYPTION_KEY"); envKey != "" {
		key = &envKey
	}
	if envURL := os.Getenv("BROWSER_URL"); envURL != "" {
		browserURL = &envURL
	}

	encryptionKey, err := credentials.ParseKey([]byte(*key))
	if err != nil {
		log.Fatalf("[ERROR] encryption-key: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: new(slog.LevelVar),
	}))

	db, err := badger.Open(badger.DefaultOptions(*dbPath))
	if err != nil {
		log.Fatalf("[ERROR] db: %s", err)
	}
	defer db.Close()

	if err := migrations.Run(logger, db); err != nil {
		log.Fatalf("[ERROR] db migrations: %s", err)
	}

	if *login != "" && *password != "" {
		store := credentials.NewStore(db, encryptionKey)
		if err := store.Save(ctx, &credentials.Credentials{
			ID:       credentials.NewID(),
			Login:    *login,
			Password: *password,
		}); err != nil {
			log.Fatalf("[ERROR] store credentials: %s", err)
		}
		logger.Info("credentials stored", "login", *login)
	}

	bot := app.New(app.Config{
		JournalURL: *journalURL,
		Browser: browser.Config{
			RemoteURL: *browserURL,
			Headless:  *headless,
			Logger:    logger,
		},
		DB:            db,
		EncryptionKey: encryptionKey,
		Logger:        logger,
	})

	go func() {
		shutdownCh := make(chan os.Signal, 1)
		signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
		sig := <-shutdownCh

		log.Printf("[INFO] received %s, shutting down", sig)
		cancel()
	}()

	if err := bot.Run(ctx); err != nil {
		log.Fatalf("[ERROR] run: %s", err)
	}
}
