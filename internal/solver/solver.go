// Package solver maintains the registry of completed model components.
package solver

import (
	"log"
	"sort"

	"tube-modeller/internal/cylinder"
)

// ModelSolver owns the generalized cylinders whose modelling has
// finished. The interaction layer hands a cylinder over exactly once,
// when its drawing sequence ends.
type ModelSolver struct {
	components []*cylinder.GeneralizedCylinder
}

// NewModelSolver creates an empty registry.
func NewModelSolver() *ModelSolver {
	return &ModelSolver{}
}

// AddComponent registers a finished cylinder.
func (s *ModelSolver) AddComponent(g *cylinder.GeneralizedCylinder) {
	if g == nil {
		return
	}
	s.components = append(s.components, g)
}

// ComponentCount returns the number of registered components.
func (s *ModelSolver) ComponentCount() int {
	return len(s.components)
}

// Components returns a copy of the registered component list.
func (s *ModelSolver) Components() []*cylinder.GeneralizedCylinder {
	out := make([]*cylinder.GeneralizedCylinder, len(s.components))
	copy(out, s.components)
	return out
}

// DeleteAllComponents empties the registry. Component identifiers are not
// reused afterwards.
func (s *ModelSolver) DeleteAllComponents() {
	s.components = nil
}

// DeleteSelectedComponents removes the components at the given indices.
// Out-of-range indices are ignored.
func (s *ModelSolver) DeleteSelectedComponents(indices []int) {
	if len(indices) == 0 {
		return
	}
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	prev := -1
	for _, i := range sorted {
		if i == prev {
			continue
		}
		prev = i
		if i < 0 || i >= len(s.components) {
			continue
		}
		s.components = append(s.components[:i], s.components[i+1:]...)
	}
}

// Print logs a summary of the registry contents.
func (s *ModelSolver) Print() {
	log.Printf("model solver: %d components", len(s.components))
	for i, g := range s.components {
		log.Printf("  [%d] component %d: %d sections, style %s",
			i, g.ComponentID(), g.SectionCount(), g.Style())
	}
}
