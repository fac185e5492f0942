package progress

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dohr-michael/mathfarm/internal/events"
)

func badgeIDs(bs []Badge) []string {
	ids := make([]string, len(bs))
	for i, b := range bs {
		ids[i] = b.ID
	}
	return ids
}

func TestRecordAwardsBadgesOnce(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), nil, map[string]int{"arithmetic": 2})

	earned, err := tr.Record(ctx, Attempt{ClientID: "c1", ProblemID: "a1", TopicID: "arithmetic", Correct: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := badgeIDs(earned); len(got) != 1 || got[0] != "first-steps" {
		t.Fatalf("earned %v, want [first-steps]", got)
	}

	earned, _ = tr.Record(ctx, Attempt{ClientID: "c1", ProblemID: "a1", TopicID: "arithmetic", Correct: true})
	if len(earned) != 0 {
		t.Fatalf("re-solving awarded %v", badgeIDs(earned))
	}

	earned, _ = tr.Record(ctx, Attempt{ClientID: "c1", ProblemID: "a2", TopicID: "arithmetic", Correct: true})
	got := badgeIDs(earned)
	if len(got) != 2 || got[0] != "streak-3" || got[1] != "topic-master:arithmetic" {
		t.Fatalf("earned %v, want [streak-3 topic-master:arithmetic]", got)
	}
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tr := NewTracker(store, nil, nil)

	results := []bool{true, true, false, true, true, true, true}
	for i, ok := range results {
		tr.Record(ctx, Attempt{ClientID: "c1", ProblemID: fmt.Sprintf("p%d", i), TopicID: "t", Correct: ok})
	}
	tr.Record(ctx, Attempt{ClientID: "c2", ProblemID: "p0", TopicID: "t", Correct: true})

	s, err := tr.Summary(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Attempted != 7 || s.Tried != 7 || s.Solved != 6 || s.Streak != 4 || s.BestStreak != 4 {
		t.Fatalf("unexpected summary %+v", s)
	}
	want := []string{"first-steps", "sprout", "streak-3"}
	if got := badgeIDs(s.Badges); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("badges %v, want %v", got, want)
	}
}

func TestSummaryCountsRepeatedAttempts(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), nil, nil)

	for _, ok := range []bool{false, true, true} {
		if _, err := tr.Record(ctx, Attempt{ClientID: "kid", ProblemID: "lines-1", TopicID: "lines", Correct: ok}); err != nil {
			t.Fatal(err)
		}
	}
	tr.Record(ctx, Attempt{ClientID: "kid", ProblemID: "lines-2", TopicID: "lines", Correct: false})

	s, err := tr.Summary(ctx, "kid")
	if err != nil {
		t.Fatal(err)
	}
	if s.Attempted != 4 || s.Tried != 2 || s.Solved != 1 {
		t.Fatalf("summary = %+v, want 4 attempts over 2 problems with 1 solved", s)
	}
}

func TestSummaryEmpty(t *testing.T) {
	s, err := NewTracker(NewMemoryStore(), nil, nil).Summary(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if s.Attempted != 0 || s.Badges == nil || len(s.Badges) != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestRecordPublishesBadges(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	ch, unsub := bus.SubscribeChan(4, events.EventBadgeAwarded)
	defer unsub()

	tr := NewTracker(NewMemoryStore(), bus, nil)
	if _, err := tr.Record(context.Background(), Attempt{ClientID: "c1", ProblemID: "p", Correct: true}); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-ch:
		p, ok := events.ExtractPayload[events.BadgeAwardedPayload](e)
		if !ok || p.Badge != "first-steps" || e.ClientID != "c1" {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for badge event")
	}
}
