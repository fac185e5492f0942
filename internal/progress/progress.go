// Package progress records practice attempts and awards badges.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dohr-michael/mathfarm/internal/events"
)

// Attempt is one checked answer.
type Attempt struct {
	ClientID  string    `json:"client_id"`
	ProblemID string    `json:"problem_id"`
	TopicID   string    `json:"topic_id"`
	Correct   bool      `json:"correct"`
	At        time.Time `json:"at"`
}

// Badge is an award for reaching a milestone.
type Badge struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Summary is the progress of one client.
type Summary struct {
	ClientID   string  `json:"client_id"`
	Attempted  int     `json:"attempted"` // checks submitted, repeats included
	Tried      int     `json:"tried"`     // distinct problems checked
	Solved     int     `json:"solved"`    // distinct problems answered correctly
	Streak     int     `json:"streak"`
	BestStreak int     `json:"best_streak"`
	Badges     []Badge `json:"badges"`
}

// Store persists attempts.
type Store interface {
	AddAttempt(ctx context.Context, a Attempt) error
	// Attempts returns the attempts of a client, oldest first.
	Attempts(ctx context.Context, clientID string) ([]Attempt, error)
}

type milestone struct {
	badge Badge
	met   func(s Summary) bool
}

var milestones = []milestone{
	{Badge{"first-steps", "First steps"}, func(s Summary) bool { return s.Solved >= 1 }},
	{Badge{"sprout", "Sprout"}, func(s Summary) bool { return s.Solved >= 5 }},
	{Badge{"harvest", "Harvest"}, func(s Summary) bool { return s.Solved >= 20 }},
	{Badge{"streak-3", "Three in a row"}, func(s Summary) bool { return s.BestStreak >= 3 }},
	{Badge{"streak-10", "Ten in a row"}, func(s Summary) bool { return s.BestStreak >= 10 }},
}

// Tracker records attempts and computes summaries.
type Tracker struct {
	store  Store
	bus    *events.Bus
	totals map[string]int

	mu sync.Mutex
}

// NewTracker creates a Tracker. totals maps topic IDs to their problem count
// and drives the topic-master badges. bus may be nil.
func NewTracker(store Store, bus *events.Bus, totals map[string]int) *Tracker {
	return &Tracker{store: store, bus: bus, totals: totals}
}

// Record stores a and returns the badges it earned.
func (t *Tracker) Record(ctx context.Context, a Attempt) ([]Badge, error) {
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	before, err := t.Summary(ctx, a.ClientID)
	if err != nil {
		return nil, err
	}
	if err := t.store.AddAttempt(ctx, a); err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}
	after, err := t.Summary(ctx, a.ClientID)
	if err != nil {
		return nil, err
	}

	had := make(map[string]bool, len(before.Badges))
	for _, b := range before.Badges {
		had[b.ID] = true
	}
	var earned []Badge
	for _, b := range after.Badges {
		if had[b.ID] {
			continue
		}
		earned = append(earned, b)
		slog.Info("badge awarded", "client_id", a.ClientID, "badge", b.ID)
		if t.bus != nil {
			t.bus.Publish(events.NewTypedEventForClient(events.SourcePractice,
				events.BadgeAwardedPayload{Badge: b.ID, Title: b.Title}, a.ClientID))
		}
	}
	return earned, nil
}

// Summary computes the progress of a client from its attempts.
func (t *Tracker) Summary(ctx context.Context, clientID string) (Summary, error) {
	attempts, err := t.store.Attempts(ctx, clientID)
	if err != nil {
		return Summary{}, fmt.Errorf("load attempts: %w", err)
	}
	return summarize(clientID, attempts, t.totals), nil
}

func summarize(clientID string, attempts []Attempt, totals map[string]int) Summary {
	s := Summary{ClientID: clientID, Badges: []Badge{}}

	tried := make(map[string]bool)
	solved := make(map[string]string)
	for _, a := range attempts {
		tried[a.ProblemID] = true
		if a.Correct {
			solved[a.ProblemID] = a.TopicID
			s.Streak++
			if s.Streak > s.BestStreak {
				s.BestStreak = s.Streak
			}
		} else {
			s.Streak = 0
		}
	}
	s.Attempted = len(attempts)
	s.Tried = len(tried)
	s.Solved = len(solved)

	for _, m := range milestones {
		if m.met(s) {
			s.Badges = append(s.Badges, m.badge)
		}
	}

	perTopic := make(map[string]int)
	for _, topic := range solved {
		perTopic[topic]++
	}
	var mastered []string
	for topic, n := range perTopic {
		if total, ok := totals[topic]; ok && total > 0 && n >= total {
			mastered = append(mastered, topic)
		}
	}
	sort.Strings(mastered)
	for _, topic := range mastered {
		s.Badges = append(s.Badges, Badge{ID: "topic-master:" + topic, Title: "Master of " + topic})
	}
	return s
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	attempts map[string][]Attempt
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string][]Attempt)}
}

func (s *MemoryStore) AddAttempt(_ context.Context, a Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[a.ClientID] = append(s.attempts[a.ClientID], a)
	return nil
}

func (s *MemoryStore) Attempts(_ context.Context, clientID string) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Attempt(nil), s.attempts[clientID]...), nil
}
