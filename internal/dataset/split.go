package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Partition holds the row indices of a split, each in ascending order.
type Partition struct {
	Train []int
	Test  []int
}

// StratifiedIndices assigns ceil(fraction*n) rows of every class to the
// training side, drawn with a generator seeded from seed. A class with at least
// two rows always keeps one row on the test side.
func StratifiedIndices(labels []string, fraction float64, seed uint64) Partition {
	byClass := make(map[string][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	p := Partition{
		Train: make([]int, 0, len(labels)),
		Test:  make([]int, 0, len(labels)),
	}
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		n := len(idx)
		k := int(math.Ceil(fraction*float64(n) - 1e-9))
		if k > n {
			k = n
		}
		if n >= 2 && k == n {
			k = n - 1
		}
		p.Train = append(p.Train, idx[:k]...)
		p.Test = append(p.Test, idx[k:]...)
	}

	sort.Ints(p.Train)
	sort.Ints(p.Test)
	return p
}

// Split partitions t into training and test tables stratified by label.
func Split(t *Table, label string, fraction float64, seed uint64) (train, test *Table, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("train fraction must be in (0, 1), got %v", fraction)
	}
	labels, err := t.Strings(label)
	if err != nil {
		return nil, nil, err
	}
	if len(labels) == 0 {
		return nil, nil, ErrEmptyTable
	}

	p := StratifiedIndices(labels, fraction, seed)
	if train, err = t.Rows(p.Train); err != nil {
		return nil, nil, fmt.Errorf("training partition: %w", err)
	}
	if test, err = t.Rows(p.Test); err != nil {
		return nil, nil, fmt.Errorf("test partition: %w", err)
	}
	return train, test, nil
}
