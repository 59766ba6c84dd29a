package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func Test(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	key, err := ParseKey([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}

	store := NewStore(db, key)
	ctx := context.Background()

	if _, err := store.Current(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	saved := Credentials{
		ID:       NewID(),
		Login:    "student@example.com",
		Password: "password",
	}
	if err := store.Save(ctx, &saved); err != nil {
		t.Fatal(err)
	}

	found, err := store.Current(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if saved != *found {
		t.Fatal("saved != found")
	}
}

func TestEncryptionRoundTrip(t *testing.T) {
	key, err := ParseKey([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}

	encrypted, err := key.encrypt([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if string(encrypted) == "secret" {
		t.Fatal("password stored in the clear")
	}

	decrypted, err := key.decrypt(encrypted)
	if err != nil {
		t.Fatal(err)
	}
	if string(decrypted) != "secret" {
		t.Fatal("decrypt(encrypt(x)) != x")
	}
}

func TestParseKeyRejectsBadSizes(t *testing.T) {
	if _, err := ParseKey([]byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}
