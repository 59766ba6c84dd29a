package migrations

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

func Run(logger *slog.Logger, db *badger.DB) error {
	if err := namespaceConfigKey(logger, db); err != nil {
		return fmt.Errorf("namespace config key: %w", err)
	}
	return nil
}

// namespaceConfigKey moves the flat "config" record written by early
// versions under the "config/" prefix the stores use now.
func namespaceConfigKey(logger *slog.Logger, db *badger.DB) error {
	return db.Update(func(txn *badger.Txn) error {
		oldKey := []byte("config")
		item, err := txn.Get(oldKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		if err := item.Value(func(value []byte) error {
			return txn.Set([]byte("config/current"), value)
		}); err != nil {
			return fmt.Errorf("set new key: %w", err)
		}
		if err := txn.Delete(oldKey); err != nil {
			return fmt.Errorf("delete old key: %w", err)
		}
		logger.Info("config record migrated", "new_key", "config/current")
		return nil
	})
}
