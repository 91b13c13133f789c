package engine

import (
	"sort"
	"strings"

	"github.com/helion-data/scanflow/pkg/schema"
)

// ResolveOrder computes a topological execution order for the given steps
// using depth-first traversal with three-color marking. Dependencies naming
// unknown step ids are ignored for ordering: the referencing step behaves as
// a leaf for those edges. A cycle yields a dependency error naming the steps
// involved.
func ResolveOrder(steps []schema.Step) ([]string, error) {
	byID := make(map[string]*schema.Step, len(steps))
	ids := make([]string, 0, len(steps))
	for i := range steps {
		step := &steps[i]
		byID[step.ID] = step
		ids = append(ids, step.ID)
	}

	// Deterministic traversal order regardless of input order.
	sort.Strings(ids)

	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // finished
	)

	color := make(map[string]int, len(steps))
	order := make([]string, 0, len(steps))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return cycleError(path, id)
		}

		color[id] = gray
		path = append(path, id)

		step := byID[id]
		deps := make([]string, 0, len(step.DependsOn))
		for _, dep := range step.DependsOn {
			// Unknown dependency ids are vacuously satisfied.
			if _, known := byID[dep]; known && dep != id {
				deps = append(deps, dep)
			}
			if dep == id {
				return cycleError(path, id)
			}
		}
		sort.Strings(deps)

		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		color[id] = black
		path = path[:len(path)-1]
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// CheckCycles reports a dependency error when the step graph contains a
// cycle, nil otherwise.
func CheckCycles(steps []schema.Step) error {
	_, err := ResolveOrder(steps)
	return err
}

// cycleError builds the error for a cycle closed by reaching repeated while
// it is still on the DFS path.
func cycleError(path []string, repeated string) error {
	start := 0
	for i, id := range path {
		if id == repeated {
			start = i
			break
		}
	}
	cycle := append(append([]string{}, path[start:]...), repeated)
	return schema.NewErrorf(schema.ErrKindDependency,
		"circular dependency detected: %s", strings.Join(cycle, " -> ")).
		WithDetails(map[string]any{"cycle": cycle})
}
