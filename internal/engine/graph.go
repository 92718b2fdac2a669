package engine

import (
	"fmt"
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// validate checks the dependency graph and returns pipelines in execution
// order. Ties are broken by name so the order is stable across runs.
func validate(pipelines []*pipeline.Pipeline) ([]*pipeline.Pipeline, error) {
	byKey := make(map[string]*pipeline.Pipeline, len(pipelines))
	for _, p := range pipelines {
		byKey[pipeline.Key(p.Name)] = p
	}

	inDegree := make(map[string]int, len(pipelines))
	dependents := make(map[string][]string, len(pipelines))
	for _, p := range pipelines {
		key := pipeline.Key(p.Name)
		if _, ok := inDegree[key]; !ok {
			inDegree[key] = 0
		}
		if p.Isolated && len(p.Dependencies) > 0 {
			return nil, ferrors.ConfigError(fmt.Sprintf("isolated pipeline %q cannot declare dependencies", p.Name)).
				WithContext("pipeline", p.Name).
				Build()
		}
		seen := make(map[string]bool, len(p.Dependencies))
		for _, dep := range p.Dependencies {
			depKey := pipeline.Key(dep)
			if depKey == key {
				return nil, ferrors.ConfigError(fmt.Sprintf("pipeline %q depends on itself", p.Name)).
					WithContext("pipeline", p.Name).
					Build()
			}
			target, ok := byKey[depKey]
			if !ok {
				return nil, ferrors.ConfigError(fmt.Sprintf("pipeline %q depends on unknown pipeline %q", p.Name, dep)).
					WithContext("pipeline", p.Name).
					WithContext("dependency", dep).
					Build()
			}
			if target.Isolated {
				return nil, ferrors.ConfigError(fmt.Sprintf("pipeline %q depends on isolated pipeline %q", p.Name, target.Name)).
					WithContext("pipeline", p.Name).
					WithContext("dependency", target.Name).
					Build()
			}
			if seen[depKey] {
				continue
			}
			seen[depKey] = true
			dependents[depKey] = append(dependents[depKey], key)
			inDegree[key]++
		}
	}

	var queue []string
	for key, n := range inDegree {
		if n == 0 {
			queue = append(queue, key)
		}
	}
	sort.Strings(queue)

	order := make([]*pipeline.Pipeline, 0, len(pipelines))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, byKey[current])

		next := dependents[current]
		sort.Strings(next)
		for _, d := range next {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
		sort.Strings(queue)
	}

	if len(order) != len(pipelines) {
		var cyclic []string
		for _, p := range pipelines {
			if inDegree[pipeline.Key(p.Name)] > 0 {
				cyclic = append(cyclic, p.Name)
			}
		}
		sort.Strings(cyclic)
		return nil, ferrors.ConfigError("dependency cycle between pipelines: " + strings.Join(cyclic, ", ")).
			WithContext("pipelines", strings.Join(cyclic, ", ")).
			Build()
	}
	return order, nil
}
