package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/podium/internal/catalog"
)

func TestDefault_Categories(t *testing.T) {
	t.Parallel()
	c := catalog.Default()

	want := []string{"interview", "elevator-pitch", "presentation", "networking"}
	got := c.Categories()
	if len(got) != len(want) {
		t.Fatalf("Categories: got %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Categories[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestDefault_Questions(t *testing.T) {
	t.Parallel()
	c := catalog.Default()

	tests := []struct {
		category string
		count    int
		first    string
	}{
		{"interview", 4, "tell-me-about-yourself"},
		{"elevator-pitch", 3, "personal-intro"},
		{"presentation", 3, "opening-hook"},
		{"networking", 3, "ice-breaker"},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			t.Parallel()
			qs := c.Questions(tt.category)
			if len(qs) != tt.count {
				t.Fatalf("Questions(%q): got %d, want %d", tt.category, len(qs), tt.count)
			}
			if qs[0].ID != tt.first {
				t.Errorf("first question = %q, want %q", qs[0].ID, tt.first)
			}
		})
	}
}

func TestQuestions_UnknownCategoryIsEmpty(t *testing.T) {
	t.Parallel()
	qs := catalog.Default().Questions("cooking")
	if qs == nil {
		t.Fatal("Questions returned nil, want empty slice")
	}
	if len(qs) != 0 {
		t.Errorf("Questions: got %d, want 0", len(qs))
	}
}

func TestQuestion_Lookup(t *testing.T) {
	t.Parallel()
	c := catalog.Default()
	q, ok := c.Question("interview", "biggest-weakness")
	if !ok {
		t.Fatal("expected question to be found")
	}
	if q.Question != "What is your biggest weakness?" || q.Duration != 90 {
		t.Errorf("unexpected question: %+v", q)
	}
	if _, ok := c.Question("networking", "biggest-weakness"); ok {
		t.Error("question must be scoped to its category")
	}
}

func TestRole_FallsBackToStandard(t *testing.T) {
	t.Parallel()
	c := catalog.Default()
	if r := c.Role("tough"); r.ID != "tough" || r.InterruptionThreshold != 60 {
		t.Errorf("Role(tough) = %+v", r)
	}
	for _, id := range []string{"", "pirate"} {
		if r := c.Role(id); r.ID != catalog.StandardRoleID {
			t.Errorf("Role(%q).ID = %q, want standard", id, r.ID)
		}
	}
}

func TestTopic_Lookup(t *testing.T) {
	t.Parallel()
	c := catalog.Default()
	if _, ok := c.Topic("job-interview"); !ok {
		t.Error("job-interview topic missing")
	}
	if _, ok := c.Topic("missing"); ok {
		t.Error("unexpected topic found")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	t.Parallel()
	c := catalog.Default()
	cats := c.Categories()
	cats[0].Name = "mutated"
	if c.Categories()[0].Name == "mutated" {
		t.Error("Categories leaked internal state")
	}
}

const customYAML = `
categories:
  - id: sales
    name: Sales Calls
    description: Cold call openers
    icon: "📞"
questions:
  - id: opener
    question: Open a cold call
    duration: 45
    tips: Earn the next thirty seconds
    category_id: sales
`

func TestParse_CustomCatalog(t *testing.T) {
	t.Parallel()
	c, err := catalog.Parse(strings.NewReader(customYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Categories(); len(got) != 1 || got[0].ID != "sales" {
		t.Errorf("Categories = %+v", got)
	}
	if qs := c.Questions("sales"); len(qs) != 1 || qs[0].Duration != 45 {
		t.Errorf("Questions(sales) = %+v", qs)
	}
	if len(c.Roles()) == 0 || len(c.Topics()) == 0 {
		t.Error("built-in roles and topics should be kept when not overridden")
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "duplicate category",
			yaml: "categories:\n  - id: a\n  - id: a\n",
			want: "duplicate id",
		},
		{
			name: "unknown category reference",
			yaml: "categories:\n  - id: a\nquestions:\n  - id: q\n    category_id: b\n",
			want: "unknown category",
		},
		{
			name: "no categories",
			yaml: "questions: []\n",
			want: "at least one category",
		},
		{
			name: "missing standard role",
			yaml: "categories:\n  - id: a\nroles:\n  - id: tough\n",
			want: "standard",
		},
		{
			name: "tolerance out of range",
			yaml: "categories:\n  - id: a\nroles:\n  - id: standard\n    filler_word_tolerance: 2\n",
			want: "filler_word_tolerance",
		},
		{
			name: "unknown field",
			yaml: "categories:\n  - id: a\n    colour: red\n",
			want: "colour",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := catalog.Parse(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestParse_ValidationErrorIsInvalid(t *testing.T) {
	t.Parallel()
	_, err := catalog.Parse(strings.NewReader("categories:\n  - id: a\n  - id: a\n"))
	if !errors.Is(err, catalog.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestHolder_Reload(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(customYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	h := catalog.NewHolder(catalog.Default())
	if err := h.Reload(path); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := h.Get().Categories(); len(got) != 1 || got[0].ID != "sales" {
		t.Errorf("after reload Categories = %+v", got)
	}

	if err := h.Reload(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if got := h.Get().Categories(); len(got) != 1 {
		t.Error("failed reload must keep the previous catalog")
	}

	if err := h.Reload(""); err != nil {
		t.Fatalf("Reload(\"\"): %v", err)
	}
	if got := len(h.Get().Categories()); got != 4 {
		t.Errorf("empty path should restore defaults, got %d categories", got)
	}
}
