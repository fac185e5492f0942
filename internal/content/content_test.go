package content

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	topics := c.Topics()
	if len(topics) == 0 {
		t.Fatal("expected embedded topics")
	}
	for i := 1; i < len(topics); i++ {
		if topics[i-1].Level > topics[i].Level {
			t.Fatalf("topics not sorted by level: %s before %s", topics[i-1].ID, topics[i].ID)
		}
	}
	for _, tp := range topics {
		problems, err := c.Problems(tp.ID)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range problems {
			if p.TopicID != tp.ID {
				t.Errorf("problem %s has topic %q, want %q", p.ID, p.TopicID, tp.ID)
			}
		}
	}
}

func TestLookupNotFound(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Topic("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Topic: expected ErrNotFound, got %v", err)
	}
	if _, err := c.Problem("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Problem: expected ErrNotFound, got %v", err)
	}
	if _, err := c.Problems("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Problems: expected ErrNotFound, got %v", err)
	}
}

func TestLoadFSValidation(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
	}{
		{"duplicate problem", fstest.MapFS{
			"a.yaml": {Data: []byte("id: a\nproblems:\n  - id: p\n    answer: \"1\"\n")},
			"b.yaml": {Data: []byte("id: b\nproblems:\n  - id: p\n    answer: \"2\"\n")},
		}},
		{"bad answer", fstest.MapFS{
			"a.yaml": {Data: []byte("id: a\nproblems:\n  - id: p\n    answer: \"2 +\"\n")},
		}},
		{"implicit answer", fstest.MapFS{
			"a.yaml": {Data: []byte("id: a\nproblems:\n  - id: p\n    answer: \"x^2 + y^2 = 1\"\n")},
		}},
		{"bad yaml", fstest.MapFS{
			"a.yaml": {Data: []byte("id: [")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFS(tt.files); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadFSDefaultsIDToFileName(t *testing.T) {
	c, err := LoadFS(fstest.MapFS{
		"fractions.yaml": {Data: []byte("title: Fractions\n")},
		"notes.txt":      {Data: []byte("ignored")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Topic("fractions"); err != nil {
		t.Fatal(err)
	}
	if len(c.Topics()) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(c.Topics()))
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		answer    string
		submitted string
		correct   bool
	}{
		{"14", "2 + 3*4", true},
		{"14", "14.0", true},
		{"14", "20", false},
		{"5x", "2x + 3x", true},
		{"5x", "x*5", true},
		{"5x", "5", false},
		{"y = 2x - 1", "2x - 1", true},
		{"y = 2x - 1", "y = -1 + 2x", true},
		{"x^3", "x*x*x", true},
		{"2", "2sin(3*pi/6)", true},
		{"14", "2 +", false},
		{"14", "x^2 + y^2 = 1", false},
		{"sqrt(x)", "x^0.5", true},
	}
	for _, tt := range tests {
		v, err := Check(Problem{ID: "p", Answer: tt.answer, Hint: "h"}, tt.submitted)
		if err != nil {
			t.Fatalf("Check(%q, %q): %v", tt.answer, tt.submitted, err)
		}
		if v.Correct != tt.correct {
			t.Errorf("Check(%q, %q) = %v (%s), want %v", tt.answer, tt.submitted, v.Correct, v.Message, tt.correct)
		}
		if !v.Correct && v.Hint != "h" {
			t.Errorf("Check(%q, %q): expected hint on wrong answer", tt.answer, tt.submitted)
		}
	}
}

func TestCheckTolerance(t *testing.T) {
	p := Problem{ID: "p", Answer: "pi", Tolerance: 1e-3}
	v, err := Check(p, "3.1416")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Correct {
		t.Fatalf("expected 3.1416 within 1e-3 of pi: %s", v.Message)
	}
	p.Tolerance = 0
	if v, _ := Check(p, "3.1416"); v.Correct {
		t.Fatal("expected default tolerance to reject 3.1416")
	}
}

func TestCheckEmbeddedAnswers(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	for _, tp := range c.Topics() {
		problems, _ := c.Problems(tp.ID)
		for _, p := range problems {
			v, err := Check(p, p.Answer)
			if err != nil || !v.Correct {
				t.Errorf("%s: reference answer rejected: %v %s", p.ID, err, v.Message)
			}
		}
	}
}
