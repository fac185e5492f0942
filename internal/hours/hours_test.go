package hours

import (
	"testing"
	"time"
)

func TestStatus(t *testing.T) {
	s, err := New("UTC", DefaultWindows)
	if err != nil {
		t.Fatal(err)
	}

	// 2026-03-02 is a Monday.
	tests := []struct {
		name     string
		now      time.Time
		open     bool
		until    time.Time
		nextOpen time.Time
	}{
		{"monday morning", time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), true, time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC), time.Time{}},
		{"opening minute", time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), true, time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC), time.Time{}},
		{"closing instant", time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC), false, time.Time{}, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)},
		{"before opening", time.Date(2026, 3, 2, 7, 59, 0, 0, time.UTC), false, time.Time{}, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)},
		{"friday night", time.Date(2026, 3, 6, 20, 0, 0, 0, time.UTC), false, time.Time{}, time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)},
		{"saturday", time.Date(2026, 3, 7, 13, 0, 0, 0, time.UTC), true, time.Date(2026, 3, 7, 14, 0, 0, 0, time.UTC), time.Time{}},
		{"sunday", time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC), false, time.Time{}, time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := s.Status(tt.now)
			if st.Open != tt.open {
				t.Fatalf("open = %v, want %v", st.Open, tt.open)
			}
			if !st.Until.Equal(tt.until) {
				t.Errorf("until = %v, want %v", st.Until, tt.until)
			}
			if !st.NextOpen.Equal(tt.nextOpen) {
				t.Errorf("next open = %v, want %v", st.NextOpen, tt.nextOpen)
			}
		})
	}
}

func TestStatusOverlappingWindowsTakesLatestClose(t *testing.T) {
	s, err := New("", []Window{
		{Open: "0 9 * * *", Duration: 2 * time.Hour},
		{Open: "0 10 * * *", Duration: 3 * time.Hour},
	})
	if err != nil {
		t.Fatal(err)
	}
	st := s.Status(time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC))
	if !st.Open || st.Until.Hour() != 13 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestStatusFollowsChainedWindows(t *testing.T) {
	s, err := New("", []Window{
		{Open: "0 9 * * *", Duration: 2 * time.Hour},
		{Open: "30 10 * * *", Duration: 2 * time.Hour},
		{Open: "0 12 * * *", Duration: 3 * time.Hour},
		{Open: "0 16 * * *", Duration: time.Hour},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		now   time.Time
		until time.Time
	}{
		// 09-11, 10:30-12:30 and 12-15 chain; 16-17 starts after the gap.
		{"first window", time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC), time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)},
		{"inside the chain", time.Date(2026, 3, 2, 12, 10, 0, 0, time.UTC), time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)},
		{"after the gap", time.Date(2026, 3, 2, 16, 5, 0, 0, time.UTC), time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := s.Status(tt.now)
			if !st.Open || !st.Until.Equal(tt.until) {
				t.Fatalf("status = %+v, want open until %v", st, tt.until)
			}
		})
	}
}

func TestStatusChainIsBounded(t *testing.T) {
	s, err := New("", []Window{{Open: "* * * * *", Duration: 2 * time.Minute}})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 2, 9, 0, 30, 0, time.UTC)
	st := s.Status(now)
	if !st.Open {
		t.Fatalf("expected open, got %+v", st)
	}
	if limit := now.Add(maxChain + 2*time.Minute); st.Until.After(limit) || st.Until.Before(now.Add(maxChain)) {
		t.Fatalf("until = %v, want about a week after %v", st.Until, now)
	}
}

func TestStatusUsesLocation(t *testing.T) {
	s, err := New("Europe/Paris", []Window{{Open: "0 9 * * *", Duration: time.Hour}})
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	// 08:30 UTC is 09:30 in Paris in March (UTC+1).
	st := s.Status(time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC))
	if !st.Open {
		t.Fatalf("expected open, got %+v", st)
	}
	if st.Timezone != "Europe/Paris" {
		t.Errorf("timezone = %q", st.Timezone)
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name    string
		tz      string
		windows []Window
	}{
		{"no windows", "", nil},
		{"bad cron", "", []Window{{Open: "not a cron", Duration: time.Hour}}},
		{"zero duration", "", []Window{{Open: "0 9 * * *"}}},
		{"bad timezone", "Mars/Olympus", DefaultWindows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.tz, tt.windows); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
