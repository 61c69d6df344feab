package solver

import (
	"testing"

	"tube-modeller/internal/cylinder"
	"tube-modeller/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/spatial/r3"
)

func newComponent(id uint) *cylinder.GeneralizedCylinder {
	return cylinder.NewGeneralizedCylinder(id,
		geometry.NewCircle3D(r3.Vec{Z: -10}, r3.Vec{Z: 1}, 1))
}

func TestAddComponent(t *testing.T) {
	t.Parallel()
	s := NewModelSolver()

	s.AddComponent(newComponent(1))
	s.AddComponent(nil)
	s.AddComponent(newComponent(2))

	assert.Equal(t, 2, s.ComponentCount())
}

func TestComponentsReturnsCopy(t *testing.T) {
	t.Parallel()
	s := NewModelSolver()
	s.AddComponent(newComponent(1))

	cs := s.Components()
	require.Len(t, cs, 1)
	cs[0] = nil
	assert.NotNil(t, s.Components()[0])
}

func TestDeleteAllComponents(t *testing.T) {
	t.Parallel()
	s := NewModelSolver()
	s.AddComponent(newComponent(1))
	s.AddComponent(newComponent(2))

	s.DeleteAllComponents()
	assert.Equal(t, 0, s.ComponentCount())
}

func TestDeleteSelectedComponents(t *testing.T) {
	t.Parallel()

	build := func() *ModelSolver {
		s := NewModelSolver()
		for id := uint(1); id <= 4; id++ {
			s.AddComponent(newComponent(id))
		}
		return s
	}

	ids := func(s *ModelSolver) []uint {
		var out []uint
		for _, g := range s.Components() {
			out = append(out, g.ComponentID())
		}
		return out
	}

	t.Run("unordered indices", func(t *testing.T) {
		s := build()
		s.DeleteSelectedComponents([]int{2, 0})
		assert.Equal(t, []uint{2, 4}, ids(s))
	})

	t.Run("duplicates are collapsed", func(t *testing.T) {
		s := build()
		s.DeleteSelectedComponents([]int{1, 1, 1})
		assert.Equal(t, []uint{1, 3, 4}, ids(s))
	})

	t.Run("out of range ignored", func(t *testing.T) {
		s := build()
		s.DeleteSelectedComponents([]int{-1, 4, 99})
		assert.Equal(t, []uint{1, 2, 3, 4}, ids(s))
	})

	t.Run("empty selection", func(t *testing.T) {
		s := build()
		s.DeleteSelectedComponents(nil)
		assert.Equal(t, 4, s.ComponentCount())
	})
}
