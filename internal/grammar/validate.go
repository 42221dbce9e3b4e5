package grammar

import (
	"fmt"
	"strings"

	"github.com/abhisek/kahani/internal/store"
)

// Validate performs the structural checks on a concept catalog: unique ids
// and slugs, known tiers, prerequisites that exist and an acyclic
// prerequisite graph with at least one root. It returns one error
// describing every problem found, or nil.
func Validate(concepts []store.GrammarConcept) error {
	var errs []string

	ids := make(map[string]bool, len(concepts))
	slugs := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		if ids[c.ID] {
			errs = append(errs, fmt.Sprintf("duplicate concept ID: %q", c.ID))
		}
		ids[c.ID] = true
		if slugs[c.Slug] {
			errs = append(errs, fmt.Sprintf("duplicate concept slug: %q", c.Slug))
		}
		slugs[c.Slug] = true
		if !c.Tier.Valid() {
			errs = append(errs, fmt.Sprintf("concept %q has unknown tier %q", c.Slug, c.Tier))
		}
	}

	for _, c := range concepts {
		for _, p := range c.Prerequisites {
			if !ids[p] {
				errs = append(errs, fmt.Sprintf("concept %q references nonexistent prerequisite %q", c.Slug, p))
			}
		}
	}

	if cyclic := cycleMembers(concepts); len(cyclic) > 0 {
		errs = append(errs, fmt.Sprintf("cycle detected involving concepts: %s", strings.Join(cyclic, ", ")))
	}

	if len(concepts) > 0 {
		hasRoot := false
		for _, c := range concepts {
			if len(c.Prerequisites) == 0 {
				hasRoot = true
				break
			}
		}
		if !hasRoot {
			errs = append(errs, "no root concepts found (at least one concept must have no prerequisites)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("grammar catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// cycleMembers runs Kahn's algorithm and returns the slugs left with
// unresolved prerequisites. Dangling prerequisites are ignored here.
func cycleMembers(concepts []store.GrammarConcept) []string {
	known := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		known[c.ID] = true
	}

	inDegree := make(map[string]int, len(concepts))
	dependents := make(map[string][]string)
	for _, c := range concepts {
		for _, p := range c.Prerequisites {
			if !known[p] {
				continue
			}
			inDegree[c.ID]++
			dependents[p] = append(dependents[p], c.ID)
		}
	}

	var queue []string
	for _, c := range concepts {
		if inDegree[c.ID] == 0 {
			queue = append(queue, c.ID)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	var out []string
	for _, c := range concepts {
		if inDegree[c.ID] > 0 {
			out = append(out, c.Slug)
		}
	}
	return out
}
