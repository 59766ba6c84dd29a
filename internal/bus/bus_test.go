package bus

import (
	"testing"
)

func Test(t *testing.T) {
	b := New(nil)

	var got []string
	unsubscribe := b.Subscribe(func(event Event) {
		if changed, ok := event.(PageChanged); ok {
			got = append(got, changed.URL)
		}
	})

	b.Publish(PageChanged{URL: "https://example.com/a"})
	b.Publish(PageChanged{URL: "https://example.com/b"})
	unsubscribe()
	b.Publish(PageChanged{URL: "https://example.com/c"})

	if len(got) != 2 || got[0] != "https://example.com/a" || got[1] != "https://example.com/b" {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestPanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	b := New(nil)

	b.Subscribe(func(Event) {
		panic("boom")
	})

	delivered := false
	b.Subscribe(func(Event) {
		delivered = true
	})

	b.Publish(PageChanged{URL: "https://example.com"})

	if !delivered {
		t.Fatal("second subscriber should still receive the event")
	}
}
