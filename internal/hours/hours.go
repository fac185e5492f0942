// Package hours computes whether the help desk is open from cron windows.
package hours

import (
	"errors"
	"fmt"
	"time"

	"github.com/netresearch/go-cron"
)

var ErrNoWindows = errors.New("no opening windows")

// Window opens at every activation of a 5-field cron expression and stays
// open for Duration.
type Window struct {
	Open     string        `json:"open"`
	Duration time.Duration `json:"duration"`
}

// DefaultWindows are weekdays 08:00-18:00 and Saturday 10:00-14:00.
var DefaultWindows = []Window{
	{Open: "0 8 * * 1-5", Duration: 10 * time.Hour},
	{Open: "0 10 * * 6", Duration: 4 * time.Hour},
}

type window struct {
	raw      string
	schedule cron.Schedule
	duration time.Duration
}

// Schedule is a parsed set of windows in one time zone.
type Schedule struct {
	loc     *time.Location
	windows []window
}

// Status is the state of the schedule at an instant.
type Status struct {
	Open     bool      `json:"open"`
	Until    time.Time `json:"until,omitzero"`
	NextOpen time.Time `json:"next_open,omitzero"`
	Timezone string    `json:"timezone"`
}

// New parses windows. An empty timezone means UTC.
func New(timezone string, windows []Window) (*Schedule, error) {
	if len(windows) == 0 {
		return nil, ErrNoWindows
	}
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
		}
		loc = l
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s := &Schedule{loc: loc}
	for _, w := range windows {
		if w.Duration <= 0 {
			return nil, fmt.Errorf("window %q: duration must be positive", w.Open)
		}
		sched, err := parser.Parse(w.Open)
		if err != nil {
			return nil, fmt.Errorf("parse cron %q: %w", w.Open, err)
		}
		s.windows = append(s.windows, window{raw: w.Open, schedule: sched, duration: w.Duration})
	}
	return s, nil
}

// Location returns the schedule time zone.
func (s *Schedule) Location() *time.Location { return s.loc }

// maxChain bounds how far ahead Until follows windows that open before the
// previous one closes.
const maxChain = 7 * 24 * time.Hour

// Status reports whether now falls inside a window. A window is open when its
// latest activation t <= now satisfies now < t + duration. Until is the close
// of the chain of windows that each open before the previous one closes.
func (s *Schedule) Status(now time.Time) Status {
	now = now.In(s.loc)
	st := Status{Timezone: s.loc.String()}

	for _, w := range s.windows {
		if until, ok := w.openUntil(now); ok {
			st.Open = true
			if until.After(st.Until) {
				st.Until = until
			}
		}
	}
	if st.Open {
		st.Until = s.chain(now, st.Until)
		return st
	}

	for _, w := range s.windows {
		next := w.schedule.Next(now)
		if next.IsZero() {
			continue
		}
		if st.NextOpen.IsZero() || next.Before(st.NextOpen) {
			st.NextOpen = next
		}
	}
	return st
}

// chain extends until through every activation at or before it.
func (s *Schedule) chain(now, until time.Time) time.Time {
	horizon := now.Add(maxChain)
	next := make([]time.Time, len(s.windows))
	for i, w := range s.windows {
		next[i] = w.schedule.Next(now)
	}
	for {
		first := -1
		for i, t := range next {
			if !t.IsZero() && (first < 0 || t.Before(next[first])) {
				first = i
			}
		}
		if first < 0 || next[first].After(until) || next[first].After(horizon) {
			return until
		}
		w := s.windows[first]
		if end := next[first].Add(w.duration); end.After(until) {
			until = end
		}
		next[first] = w.schedule.Next(next[first])
	}
}

func (w window) openUntil(now time.Time) (time.Time, bool) {
	var latest time.Time
	for t := w.schedule.Next(now.Add(-w.duration)); !t.IsZero() && !t.After(now); t = w.schedule.Next(t) {
		latest = t
	}
	if latest.IsZero() {
		return time.Time{}, false
	}
	return latest.Add(w.duration), true
}

// String lists the raw window expressions.
func (s *Schedule) String() string {
	out := ""
	for i, w := range s.windows {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s for %s", w.raw, w.duration)
	}
	return out
}
