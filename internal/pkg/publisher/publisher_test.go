package publisher

import (
	"testing"
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

func event(matchID string) models.Event {
	return models.Event{
		Kind:       models.EventArbitrageNew,
		MatchID:    matchID,
		BetTypeID:  enums.BetType1X2,
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublish_FansOutToEverySubscriber(t *testing.T) {
	p := New(4, nil)
	a := p.Subscribe("a")
	b := p.Subscribe("b")

	p.Publish(event("m1"))

	for name, ch := range map[string]<-chan models.Event{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.MatchID != "m1" {
				t.Errorf("subscriber %s: match id = %q, want m1", name, got.MatchID)
			}
		default:
			t.Errorf("subscriber %s received nothing", name)
		}
	}
}

// A slow consumer's full buffer drops the oldest queued event to make room,
// never blocking Publish, and the drop is counted.
func TestPublish_DropOldestOnOverflow(t *testing.T) {
	p := New(2, nil)
	ch := p.Subscribe("slow")

	p.Publish(event("m1"))
	p.Publish(event("m2"))
	p.Publish(event("m3")) // buffer full: m1 is dropped

	if got := p.DroppedCount("slow"); got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}

	var delivered []string
	for {
		select {
		case e := <-ch:
			delivered = append(delivered, e.MatchID)
			continue
		default:
		}
		break
	}
	if len(delivered) != 2 || delivered[0] != "m2" || delivered[1] != "m3" {
		t.Errorf("delivered = %v, want [m2 m3]", delivered)
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	p := New(2, nil)
	ch := p.Subscribe("gone")
	p.Unsubscribe("gone")

	if _, ok := <-ch; ok {
		t.Error("channel still open after Unsubscribe")
	}

	// Publishing after removal must not panic or deliver anywhere.
	p.Publish(event("m1"))
	if got := p.DroppedCount("gone"); got != 0 {
		t.Errorf("dropped for removed subscriber = %d, want 0", got)
	}
}
