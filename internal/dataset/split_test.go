package dataset

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeatLabels(counts map[string]int, order []string) []string {
	var labels []string
	// interleave so classes are not contiguous
	for remaining := true; remaining; {
		remaining = false
		for _, c := range order {
			if counts[c] > 0 {
				labels = append(labels, c)
				counts[c]--
				remaining = true
			}
		}
	}
	return labels
}

func TestStratifiedIndices(t *testing.T) {
	labels := repeatLabels(map[string]int{"A": 10, "B": 10, "C": 5}, []string{"A", "B", "C"})
	require.Len(t, labels, 25)

	p := StratifiedIndices(labels, 0.7, 42)

	perClass := func(idx []int) map[string]int {
		m := map[string]int{}
		for _, i := range idx {
			m[labels[i]]++
		}
		return m
	}
	assert.Equal(t, map[string]int{"A": 7, "B": 7, "C": 4}, perClass(p.Train))
	assert.Equal(t, map[string]int{"A": 3, "B": 3, "C": 1}, perClass(p.Test))

	assert.True(t, sort.IntsAreSorted(p.Train))
	assert.True(t, sort.IntsAreSorted(p.Test))

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, p.Train...), p.Test...) {
		assert.False(t, seen[i], "row %d assigned twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, len(labels))
}

func TestStratifiedIndicesDeterministic(t *testing.T) {
	labels := repeatLabels(map[string]int{"A": 20, "B": 20}, []string{"A", "B"})

	first := StratifiedIndices(labels, 0.7, 7)
	second := StratifiedIndices(labels, 0.7, 7)
	assert.Equal(t, first, second)

	other := StratifiedIndices(labels, 0.7, 8)
	assert.NotEqual(t, first.Train, other.Train)
}

func TestStratifiedIndicesSmallClasses(t *testing.T) {
	p := StratifiedIndices([]string{"A", "A", "B"}, 0.7, 1)

	trainA, testA := 0, 0
	for _, i := range p.Train {
		if i < 2 {
			trainA++
		}
	}
	for _, i := range p.Test {
		if i < 2 {
			testA++
		}
	}
	assert.Equal(t, 1, trainA)
	assert.Equal(t, 1, testA)
	// a singleton class lands on the training side
	assert.Contains(t, p.Train, 2)
}

func TestSplit(t *testing.T) {
	tbl := tableFromRecords(t, Synthetic(SyntheticOptions{Rows: 100, Seed: 3, NoiseColumns: 2}))

	train, test, err := Split(tbl, "classe", 0.7, 12345)
	require.NoError(t, err)
	assert.Equal(t, 72, train.Nrow())
	assert.Equal(t, 28, test.Nrow())
	assert.Equal(t, tbl.Names(), train.Names())

	labels, err := train.Strings("classe")
	require.NoError(t, err)
	counts := map[string]int{}
	for _, l := range labels {
		counts[l]++
	}
	assert.Equal(t, map[string]int{"A": 18, "B": 18, "C": 18, "D": 18}, counts)

	_, _, err = Split(tbl, "classe", 1, 1)
	assert.Error(t, err)

	_, _, err = Split(tbl, "activity", 0.7, 1)
	assert.ErrorIs(t, err, ErrMissingColumn)
}
