package orchestrator

import (
	"testing"

	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_Add(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := NewGraph()
		require.NoError(t, g.Add("a", nil))
		require.NoError(t, g.Add("b", []string{"a"}))
		require.NoError(t, g.Add("c", []string{"a", "b", "a"}))

		assert.Equal(t, 3, g.Len())
		assert.Equal(t, []string{"a", "b"}, g.Dependencies("c"))
		assert.Equal(t, []string{"b", "c"}, g.Dependents("a"))
		assert.True(t, g.Contains("b"))
		assert.False(t, g.Contains("z"))
	})

	t.Run("duplicate task", func(t *testing.T) {
		g := NewGraph()
		require.NoError(t, g.Add("a", nil))

		err := g.Add("a", nil)
		var dupErr *domain.DuplicateTaskError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "a", dupErr.TaskID)
		assert.Equal(t, 1, g.Len())
	})

	t.Run("self dependency", func(t *testing.T) {
		g := NewGraph()
		err := g.Add("a", []string{"a"})

		var cycleErr *domain.CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{"a", "a"}, cycleErr.Path)
		assert.Equal(t, 0, g.Len())
	})

	t.Run("cycle through forward reference", func(t *testing.T) {
		g := NewGraph()
		require.NoError(t, g.Add("a", []string{"c"}))
		require.NoError(t, g.Add("b", []string{"a"}))

		err := g.Add("c", []string{"b"})
		var cycleErr *domain.CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{"c", "b", "a", "c"}, cycleErr.Path)
		assert.False(t, g.Contains("c"))
	})
}

func TestGraph_Validate(t *testing.T) {
	t.Run("dangling dependency", func(t *testing.T) {
		g := NewGraph()
		require.NoError(t, g.Add("a", nil))
		require.NoError(t, g.Add("b", []string{"ghost"}))

		err := g.Validate()
		var danglingErr *domain.DanglingDependencyError
		require.ErrorAs(t, err, &danglingErr)
		assert.Equal(t, "b", danglingErr.TaskID)
		assert.Equal(t, "ghost", danglingErr.Dependency)
	})

	t.Run("forward reference resolved", func(t *testing.T) {
		g := NewGraph()
		require.NoError(t, g.Add("a", []string{"b"}))
		require.NoError(t, g.Add("b", nil))
		assert.NoError(t, g.Validate())
	})

	t.Run("cycle detected by search", func(t *testing.T) {
		// Bypass Add to simulate a graph assembled without its checks.
		g := NewGraph()
		require.NoError(t, g.Add("a", nil))
		require.NoError(t, g.Add("b", []string{"a"}))
		g.deps["a"] = []string{"b"}

		err := g.Validate()
		var cycleErr *domain.CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{"a", "b", "a"}, cycleErr.Path)
	})
}

func TestGraph_TopologicalOrder(t *testing.T) {
	tests := []struct {
		name  string
		build func(g *Graph)
		want  []string
	}{
		{
			name: "no dependencies keeps insertion order",
			build: func(g *Graph) {
				_ = g.Add("task-1", nil)
				_ = g.Add("task-2", nil)
				_ = g.Add("task-3", nil)
			},
			want: []string{"task-1", "task-2", "task-3"},
		},
		{
			name: "chain keeps insertion order",
			build: func(g *Graph) {
				_ = g.Add("task-1", nil)
				_ = g.Add("task-2", []string{"task-1"})
				_ = g.Add("task-3", []string{"task-2"})
			},
			want: []string{"task-1", "task-2", "task-3"},
		},
		{
			name: "forward reference moves dependency first",
			build: func(g *Graph) {
				_ = g.Add("report", []string{"data"})
				_ = g.Add("intro", nil)
				_ = g.Add("data", nil)
			},
			want: []string{"intro", "data", "report"},
		},
		{
			name: "diamond",
			build: func(g *Graph) {
				_ = g.Add("d", []string{"b", "c"})
				_ = g.Add("c", []string{"a"})
				_ = g.Add("b", []string{"a"})
				_ = g.Add("a", nil)
			},
			want: []string{"a", "c", "b", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph()
			tt.build(g)

			order, err := g.TopologicalOrder()
			require.NoError(t, err)
			assert.Equal(t, tt.want, order)
		})
	}

	t.Run("dangling dependency fails", func(t *testing.T) {
		g := NewGraph()
		require.NoError(t, g.Add("a", []string{"missing"}))

		_, err := g.TopologicalOrder()
		var danglingErr *domain.DanglingDependencyError
		assert.ErrorAs(t, err, &danglingErr)
	})
}

func TestGraph_CheckOrder(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add("task-1", nil))
	require.NoError(t, g.Add("task-2", []string{"task-1"}))
	require.NoError(t, g.Add("task-3", []string{"task-2"}))

	assert.NoError(t, g.CheckOrder([]string{"task-1", "task-2", "task-3"}))
	assert.ErrorContains(t, g.CheckOrder([]string{"task-2", "task-1", "task-3"}), "task task-2 is ordered before its dependency task-1")
	assert.ErrorContains(t, g.CheckOrder([]string{"task-1", "task-2"}), "order has 2 tasks, expected 3")
	assert.ErrorContains(t, g.CheckOrder([]string{"task-1", "task-2", "task-9"}), "unknown task task-9")
	assert.ErrorContains(t, g.CheckOrder([]string{"task-1", "task-1", "task-2"}), "appears more than once")

	free := NewGraph()
	require.NoError(t, free.Add("a", nil))
	require.NoError(t, free.Add("b", nil))
	assert.NoError(t, free.CheckOrder([]string{"b", "a"}))
}

func TestGraph_Terminal(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add("a", nil))
	require.NoError(t, g.Add("b", []string{"a"}))
	require.NoError(t, g.Add("c", nil))

	assert.Equal(t, []string{"b", "c"}, g.Terminal())
	assert.Equal(t, []string{"a", "b", "c"}, g.IDs())
}
