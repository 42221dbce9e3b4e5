package grammar

import (
	"strings"
	"testing"

	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/store"
)

func concept(id string, prereqs ...string) store.GrammarConcept {
	return store.GrammarConcept{ID: id, Slug: id, Name: id, Tier: lexicon.TierA1, Prerequisites: prereqs}
}

func TestValidate_AcceptsDAG(t *testing.T) {
	err := Validate([]store.GrammarConcept{
		concept("a"),
		concept("b", "a"),
		concept("c", "a"),
		concept("d", "b", "c"),
	})
	if err != nil {
		t.Fatalf("valid catalog rejected: %v", err)
	}
}

func TestValidate_EmptyCatalog(t *testing.T) {
	if err := Validate(nil); err != nil {
		t.Fatalf("empty catalog: %v", err)
	}
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name     string
		concepts []store.GrammarConcept
		want     string
	}{
		{"cycle", []store.GrammarConcept{concept("root"), concept("a", "b"), concept("b", "a")}, "cycle detected involving concepts: a, b"},
		{"self loop", []store.GrammarConcept{concept("root"), concept("a", "a")}, "cycle"},
		{"dangling", []store.GrammarConcept{concept("a"), concept("b", "nonexistent")}, "nonexistent"},
		{"duplicate", []store.GrammarConcept{concept("a"), concept("a")}, "duplicate concept ID"},
		{"no root", []store.GrammarConcept{concept("a", "b"), concept("b", "a")}, "no root"},
		{"bad tier", []store.GrammarConcept{{ID: "x", Slug: "x", Tier: "C2"}}, "unknown tier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.concepts)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	err := Validate([]store.GrammarConcept{
		concept("a", "missing"),
		concept("b", "c"),
		concept("c", "b"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"missing", "cycle", "no root"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}
