// Package content loads the topic cards and practice problems.
package content

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/mathfarm/internal/graph"
)

//go:embed data/*.yaml
var embedded embed.FS

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate id")
)

// Topic is one lesson card.
type Topic struct {
	ID       string    `yaml:"id" json:"id"`
	Title    string    `yaml:"title" json:"title"`
	Summary  string    `yaml:"summary" json:"summary"`
	Body     string    `yaml:"body" json:"body,omitempty"`
	Level    int       `yaml:"level" json:"level"`
	Tags     []string  `yaml:"tags" json:"tags,omitempty"`
	Examples []string  `yaml:"examples" json:"examples,omitempty"`
	Problems []Problem `yaml:"problems" json:"-"`
}

// Problem is a practice question with a reference answer expression.
type Problem struct {
	ID        string  `yaml:"id" json:"id"`
	TopicID   string  `yaml:"-" json:"topic_id"`
	Prompt    string  `yaml:"prompt" json:"prompt"`
	Answer    string  `yaml:"answer" json:"-"`
	Hint      string  `yaml:"hint" json:"hint,omitempty"`
	Tolerance float64 `yaml:"tolerance" json:"-"`
}

// Catalog indexes topics and problems by ID.
type Catalog struct {
	topics   map[string]*Topic
	problems map[string]*Problem
}

// Load reads the catalog shipped with the binary.
func Load() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadFS reads every *.yaml file at the root of fsys. Each file holds one topic.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read content dir: %w", err)
	}

	c := &Catalog{
		topics:   make(map[string]*Topic),
		problems: make(map[string]*Problem),
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		var t Topic
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if t.ID == "" {
			t.ID = strings.TrimSuffix(path.Base(entry.Name()), ".yaml")
		}
		if err := c.add(&t); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
	}
	slog.Debug("content loaded", "topics", len(c.topics), "problems", len(c.problems))
	return c, nil
}

func (c *Catalog) add(t *Topic) error {
	if _, exists := c.topics[t.ID]; exists {
		return fmt.Errorf("%w: topic %q", ErrDuplicate, t.ID)
	}
	for i := range t.Problems {
		p := &t.Problems[i]
		p.TopicID = t.ID
		if _, exists := c.problems[p.ID]; exists {
			return fmt.Errorf("%w: problem %q", ErrDuplicate, p.ID)
		}
		if _, err := reference(*p); err != nil {
			return fmt.Errorf("problem %q: %w", p.ID, err)
		}
		c.problems[p.ID] = p
	}
	c.topics[t.ID] = t
	return nil
}

// Topics returns all topics sorted by level then ID.
func (c *Catalog) Topics() []Topic {
	result := make([]Topic, 0, len(c.topics))
	for _, t := range c.topics {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Level != result[j].Level {
			return result[i].Level < result[j].Level
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Topic returns the topic with the given ID.
func (c *Catalog) Topic(id string) (Topic, error) {
	t, ok := c.topics[id]
	if !ok {
		return Topic{}, fmt.Errorf("topic %q: %w", id, ErrNotFound)
	}
	return *t, nil
}

// Problems returns the problems of a topic in file order.
func (c *Catalog) Problems(topicID string) ([]Problem, error) {
	t, ok := c.topics[topicID]
	if !ok {
		return nil, fmt.Errorf("topic %q: %w", topicID, ErrNotFound)
	}
	return append([]Problem(nil), t.Problems...), nil
}

// Problem returns the problem with the given ID.
func (c *Catalog) Problem(id string) (Problem, error) {
	p, ok := c.problems[id]
	if !ok {
		return Problem{}, fmt.Errorf("problem %q: %w", id, ErrNotFound)
	}
	return *p, nil
}

// ProblemCount returns the number of problems per topic.
func (c *Catalog) ProblemCount() map[string]int {
	out := make(map[string]int, len(c.topics))
	for id, t := range c.topics {
		out[id] = len(t.Problems)
	}
	return out
}

func reference(p Problem) (graph.Func, error) {
	eq, err := graph.Classify(p.Answer)
	if err != nil {
		return nil, err
	}
	if eq.Kind != graph.KindExplicit {
		return nil, fmt.Errorf("answer %q is not a single expression", p.Answer)
	}
	return eq.Func(), nil
}
