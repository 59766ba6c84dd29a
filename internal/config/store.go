package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/dgraph-io/badger/v4"
)

var configKey = []byte("config/current")

type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		db: db,
	}
}

// Load returns the stored configuration, or the defaults when nothing
// has been saved yet. A stored pattern that no longer compiles is
// replaced by the default pattern rather than surfaced as an error.
func (s *Store) Load(_ context.Context) (Config, error) {
	cfg := Default()
	if err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(configKey)
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &cfg)
		})
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("load config: %w", err)
	}
	if _, err := regexp.Compile(cfg.ProgressPagePattern); err != nil {
		cfg.ProgressPagePattern = DefaultProgressPagePattern
	}
	if cfg.ZoomLevel == "" {
		cfg.ZoomLevel = DefaultZoomLevel
	}
	return cfg, nil
}

func (s *Store) Save(_ context.Context, cfg Config) error {
	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		return txn.Set(configKey, data)
	})
}
