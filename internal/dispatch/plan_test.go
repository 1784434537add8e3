// internal/dispatch/plan_test.go
package dispatch

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanner_Build(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(42)))

	t.Run("length is source times repeat", func(t *testing.T) {
		for n := 0; n <= 4; n++ {
			for r := 1; r <= 5; r++ {
				source := make([]string, n)
				for i := range source {
					source[i] = string(rune('a' + i))
				}
				plan, err := planner.Build(source, Options{RepeatCount: r})
				require.NoError(t, err)
				assert.Len(t, plan, n*r, "n=%d r=%d", n, r)

				shuffled, err := planner.Build(source, Options{RepeatCount: r, Randomize: true})
				require.NoError(t, err)
				assert.Len(t, shuffled, n*r, "randomized n=%d r=%d", n, r)
			}
		}
	})

	t.Run("without shuffle keeps order and groups repeats", func(t *testing.T) {
		plan, err := planner.Build([]string{"one", "two\nlines"}, Options{RepeatCount: 2})
		require.NoError(t, err)
		want := []string{"one", "one", "two\nlines", "two\nlines"}
		if diff := cmp.Diff(want, plan); diff != "" {
			t.Errorf("plan mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("shuffle is a permutation of the expanded plan", func(t *testing.T) {
		source := []string{"a", "b", "c", "d", "e"}
		expanded, err := planner.Build(source, Options{RepeatCount: 3})
		require.NoError(t, err)
		shuffled, err := planner.Build(source, Options{RepeatCount: 3, Randomize: true})
		require.NoError(t, err)

		sort.Strings(expanded)
		sorted := append([]string(nil), shuffled...)
		sort.Strings(sorted)
		if diff := cmp.Diff(expanded, sorted); diff != "" {
			t.Errorf("shuffle changed the multiset (-want +got):\n%s", diff)
		}
	})

	t.Run("shuffle mixes repeats of different originals", func(t *testing.T) {
		source := []string{"a", "b"}
		grouped := []string{"a", "a", "a", "a", "b", "b", "b", "b"}
		mixed := false
		for i := 0; i < 20 && !mixed; i++ {
			plan, err := planner.Build(source, Options{RepeatCount: 4, Randomize: true})
			require.NoError(t, err)
			mixed = !cmp.Equal(grouped, plan)
		}
		assert.True(t, mixed, "repeat-then-shuffle should not keep repeats contiguous every time")
	})

	t.Run("source is not modified", func(t *testing.T) {
		source := []string{"x", "y", "z"}
		_, err := planner.Build(source, Options{RepeatCount: 2, Randomize: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y", "z"}, source)
	})

	t.Run("empty source yields empty plan", func(t *testing.T) {
		plan, err := planner.Build(nil, Options{RepeatCount: 3, Randomize: true})
		require.NoError(t, err)
		assert.Empty(t, plan)
	})

	t.Run("non-positive repeat is invalid", func(t *testing.T) {
		for _, r := range []int{0, -1, -10} {
			_, err := planner.Build([]string{"a"}, Options{RepeatCount: r})
			assert.ErrorIs(t, err, ErrInvalidConfiguration, "repeat=%d", r)
		}
	})
}

func TestBuildPlan_DefaultPlanner(t *testing.T) {
	plan, err := BuildPlan([]string{"hi"}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, plan)
}
