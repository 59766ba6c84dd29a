package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

var ErrNotFound = errors.New("not found")

var currentKey = []byte("credentials/current")

type Store struct {
	db            *badger.DB
	encryptionKey Key
}

func NewStore(db *badger.DB, encryptionKey Key) *Store {
	return &Store{
		db:            db,
		encryptionKey: encryptionKey,
	}
}

// Current returns the stored journal account, or ErrNotFound when the
// bot has never been given one.
func (s *Store) Current(_ context.Context) (*Credentials, error) {
	var encoded encodedCredentials
	if err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(currentKey)
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &encoded)
		})
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find credentials: %w", err)
	}
	return encoded.decode(s.encryptionKey)
}

func (s *Store) Save(_ context.Context, credentials *Credentials) error {
	encoded, err := credentials.encode(s.encryptionKey)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(encoded)
		if err != nil {
			return err
		}
		return txn.Set(currentKey, data)
	})
}
