package config

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func Test(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != Default() {
		t.Fatal("empty store should load defaults")
	}

	saved := Config{
		ZoomLevel:           "90%",
		ProgressPagePattern: `https://example\.com/progress/.*`,
		AutoRateEnabled:     false,
		AutoSubmitEnabled:   true,
	}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatal(err)
	}

	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != saved {
		t.Fatal("saved != loaded")
	}
}

func TestInvalidPatternFallsBack(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()

	if err := store.Save(ctx, Config{
		ZoomLevel:           "80%",
		ProgressPagePattern: `https://journal(.*`,
	}); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ProgressPagePattern != DefaultProgressPagePattern {
		t.Fatalf("unparsable pattern should fall back to default, got %q", loaded.ProgressPagePattern)
	}
	if loaded.ProgressPageRegexp() == nil {
		t.Fatal("regexp should never be nil")
	}
}

func TestZoomFallback(t *testing.T) {
	for value, want := range map[string]string{
		"80%":       "80%",
		" 75% ":     "75%",
		"banana":    DefaultZoomLevel,
		"":          DefaultZoomLevel,
		"-20%":      DefaultZoomLevel,
		"100000000": DefaultZoomLevel,
	} {
		got := Config{ZoomLevel: value}.Zoom()
		if got != want {
			t.Fatalf("Zoom(%q) = %q, want %q", value, got, want)
		}
	}
}
