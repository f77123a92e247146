// Package catalog holds the practice content served to the web client: the
// practice categories with their prompt questions, the AI conversation
// topics, and the interviewer roles that shape the voice agent and the
// real-time interruption policy.
//
// A compiled-in catalog is always available via [Default]. Deployments may
// replace it with a YAML file loaded through [Load].
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Category is a practice category such as interview or elevator pitch.
type Category struct {
	ID          string `yaml:"id"          json:"id"`
	Name        string `yaml:"name"        json:"name"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon"        json:"icon"`
}

// Question is a recorded prompt the user answers.
type Question struct {
	ID         string `yaml:"id"          json:"id"`
	Question   string `yaml:"question"    json:"question"`
	AudioURL   string `yaml:"audio_url"   json:"audioUrl"`
	Duration   int    `yaml:"duration"    json:"duration"` // seconds
	Tips       string `yaml:"tips"        json:"tips"`
	CategoryID string `yaml:"category_id" json:"categoryId"`
}

// Topic is a subject for a live AI conversation.
type Topic struct {
	ID          string `yaml:"id"          json:"id"`
	Title       string `yaml:"title"       json:"title"`
	Description string `yaml:"description" json:"description"`
	Difficulty  string `yaml:"difficulty"  json:"difficulty"`
	Context     string `yaml:"context"     json:"context,omitempty"`
	Category    string `yaml:"category"    json:"category"`

	// Keywords feed the off-topic detector of the real-time analyzer.
	Keywords []string `yaml:"keywords" json:"keywords,omitempty"`
}

// InterviewerRole configures the voice agent persona and how eagerly it
// interrupts.
type InterviewerRole struct {
	ID          string `yaml:"id"          json:"id"`
	Name        string `yaml:"name"        json:"name"`
	Description string `yaml:"description" json:"description"`
	Prompt      string `yaml:"prompt"      json:"prompt"`

	// InterruptionThreshold is the answer length in seconds after which a
	// response counts as rambling.
	InterruptionThreshold float64 `yaml:"interruption_threshold" json:"interruptionThreshold"`

	// FillerWordTolerance is the filler ratio the persona accepts (0..1).
	FillerWordTolerance float64 `yaml:"filler_word_tolerance" json:"fillerWordTolerance"`
}

// StandardRoleID is the role used when none or an unknown one is requested.
const StandardRoleID = "standard"

// ErrInvalid is wrapped by every catalog validation error.
var ErrInvalid = errors.New("catalog: invalid")

// Catalog is an immutable set of practice content. Accessors return copies.
type Catalog struct {
	categories []Category
	questions  []Question
	topics     []Topic
	roles      []InterviewerRole
}

// file is the YAML representation of a catalog.
type file struct {
	Categories []Category        `yaml:"categories"`
	Questions  []Question        `yaml:"questions"`
	Topics     []Topic           `yaml:"topics"`
	Roles      []InterviewerRole `yaml:"roles"`
}

// New validates the given content and returns a catalog. Empty topic or
// role lists fall back to the built-in ones.
func New(categories []Category, questions []Question, topics []Topic, roles []InterviewerRole) (*Catalog, error) {
	if len(topics) == 0 {
		topics = defaultTopics
	}
	if len(roles) == 0 {
		roles = defaultRoles
	}
	c := &Catalog{
		categories: slices.Clone(categories),
		questions:  slices.Clone(questions),
		topics:     slices.Clone(topics),
		roles:      slices.Clone(roles),
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultCategories, defaultQuestions, defaultTopics, defaultRoles)
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog YAML file. An empty path returns [Default].
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", path, err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %q: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog from YAML. Unknown fields are rejected.
func Parse(r io.Reader) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: decode yaml: %w", err)
	}
	return New(f.Categories, f.Questions, f.Topics, f.Roles)
}

func (c *Catalog) validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if len(c.categories) == 0 {
		invalid("at least one category is required")
	}
	cats := make(map[string]bool, len(c.categories))
	for i, cat := range c.categories {
		switch {
		case cat.ID == "":
			invalid("categories[%d]: id is required", i)
		case cats[cat.ID]:
			invalid("categories[%d]: duplicate id %q", i, cat.ID)
		}
		cats[cat.ID] = true
	}

	type qkey struct{ cat, id string }
	qs := make(map[qkey]bool, len(c.questions))
	for i, q := range c.questions {
		if q.ID == "" {
			invalid("questions[%d]: id is required", i)
			continue
		}
		if !cats[q.CategoryID] {
			invalid("questions[%d] %q: unknown category %q", i, q.ID, q.CategoryID)
		}
		k := qkey{q.CategoryID, q.ID}
		if qs[k] {
			invalid("questions[%d]: duplicate id %q in category %q", i, q.ID, q.CategoryID)
		}
		qs[k] = true
		if q.Duration < 0 {
			invalid("questions[%d] %q: duration must not be negative", i, q.ID)
		}
	}

	topics := make(map[string]bool, len(c.topics))
	for i, t := range c.topics {
		switch {
		case t.ID == "":
			invalid("topics[%d]: id is required", i)
		case topics[t.ID]:
			invalid("topics[%d]: duplicate id %q", i, t.ID)
		}
		topics[t.ID] = true
	}

	roles := make(map[string]bool, len(c.roles))
	for i, r := range c.roles {
		switch {
		case r.ID == "":
			invalid("roles[%d]: id is required", i)
		case roles[r.ID]:
			invalid("roles[%d]: duplicate id %q", i, r.ID)
		}
		roles[r.ID] = true
		if r.InterruptionThreshold < 0 {
			invalid("roles[%d] %q: interruption_threshold must not be negative", i, r.ID)
		}
		if r.FillerWordTolerance < 0 || r.FillerWordTolerance > 1 {
			invalid("roles[%d] %q: filler_word_tolerance must be within [0, 1]", i, r.ID)
		}
	}
	if len(c.roles) > 0 && !roles[StandardRoleID] {
		invalid("roles: the %q role is required", StandardRoleID)
	}

	return errors.Join(errs...)
}

// Categories returns all categories in display order.
func (c *Catalog) Categories() []Category {
	return slices.Clone(c.categories)
}

// Category looks up a category by ID.
func (c *Catalog) Category(id string) (Category, bool) {
	i := slices.IndexFunc(c.categories, func(cat Category) bool { return cat.ID == id })
	if i < 0 {
		return Category{}, false
	}
	return c.categories[i], true
}

// Questions returns the questions of a category in order. An unknown
// category yields an empty, non-nil slice.
func (c *Catalog) Questions(categoryID string) []Question {
	out := []Question{}
	for _, q := range c.questions {
		if q.CategoryID == categoryID {
			out = append(out, q)
		}
	}
	return out
}

// Question looks up a single question within a category.
func (c *Catalog) Question(categoryID, questionID string) (Question, bool) {
	for _, q := range c.questions {
		if q.CategoryID == categoryID && q.ID == questionID {
			return q, true
		}
	}
	return Question{}, false
}

// Topics returns the conversation topics.
func (c *Catalog) Topics() []Topic {
	return slices.Clone(c.topics)
}

// Topic looks up a topic by ID.
func (c *Catalog) Topic(id string) (Topic, bool) {
	i := slices.IndexFunc(c.topics, func(t Topic) bool { return t.ID == id })
	if i < 0 {
		return Topic{}, false
	}
	return c.topics[i], true
}

// Roles returns the interviewer roles.
func (c *Catalog) Roles() []InterviewerRole {
	return slices.Clone(c.roles)
}

// Role returns the role with the given ID, or the standard role when id is
// empty or unknown.
func (c *Catalog) Role(id string) InterviewerRole {
	if i := slices.IndexFunc(c.roles, func(r InterviewerRole) bool { return r.ID == id }); i >= 0 {
		return c.roles[i]
	}
	if i := slices.IndexFunc(c.roles, func(r InterviewerRole) bool { return r.ID == StandardRoleID }); i >= 0 {
		return c.roles[i]
	}
	return InterviewerRole{ID: StandardRoleID, Name: "Standard Interviewer", InterruptionThreshold: 120, FillerWordTolerance: 0.7}
}

// Holder publishes the current catalog to concurrent readers and lets the
// config watcher swap it on reload.
type Holder struct {
	p atomic.Pointer[Catalog]
}

// NewHolder returns a holder serving c.
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.p.Store(c)
	return h
}

// Get returns the current catalog.
func (h *Holder) Get() *Catalog { return h.p.Load() }

// Reload loads path and swaps it in. On error the current catalog is kept.
func (h *Holder) Reload(path string) error {
	c, err := Load(path)
	if err != nil {
		return err
	}
	h.p.Store(c)
	return nil
}
