package features

import (
	"fmt"
	"math"

	"har-report/internal/common"
	"har-report/internal/dataset"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix holds pairwise Pearson correlations between named columns.
type CorrelationMatrix struct {
	Names  []string
	Values *mat.SymDense
}

// Index returns the position of name, or -1.
func (m *CorrelationMatrix) Index(name string) int {
	for i, n := range m.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// At returns the correlation between columns a and b, or 0 if either is absent.
func (m *CorrelationMatrix) At(a, b string) float64 {
	i, j := m.Index(a), m.Index(b)
	if i < 0 || j < 0 || m.Values == nil {
		return 0
	}
	return m.Values.At(i, j)
}

// MaxAbs returns the largest off-diagonal |r| among the named columns.
func (m *CorrelationMatrix) MaxAbs(names []string) float64 {
	best := 0.0
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if r := math.Abs(m.At(names[i], names[j])); r > best {
				best = r
			}
		}
	}
	return best
}

// CorrelationOf computes the Pearson matrix of the numeric columns among
// names, in the given order. Each pair uses the rows where both cells are
// present; undefined correlations are 0.
func CorrelationOf(t *dataset.Table, names []string) (*CorrelationMatrix, error) {
	cols := make([][]float64, len(names))
	for i, name := range names {
		v, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		cols[i] = v
	}

	m := &CorrelationMatrix{Names: append([]string(nil), names...)}
	if len(names) == 0 {
		return m, nil
	}
	m.Values = mat.NewSymDense(len(names), nil)
	for i := range cols {
		m.Values.SetSym(i, i, 1)
		for j := i + 1; j < len(cols); j++ {
			m.Values.SetSym(i, j, pairwiseCorrelation(cols[i], cols[j]))
		}
	}
	return m, nil
}

func pairwiseCorrelation(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for k := range x {
		if math.IsNaN(x[k]) || math.IsNaN(y[k]) {
			continue
		}
		xs = append(xs, x[k])
		ys = append(ys, y[k])
	}
	if len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Correlation drops numeric columns until no remaining pair reaches Cutoff.
// Among the columns in an offending pair, the one with the highest mean
// absolute correlation against the rest goes first; ties go to the later
// column. Non-numeric candidates pass through untouched.
type Correlation struct {
	Cutoff float64
	matrix *CorrelationMatrix
}

func NewCorrelation(cutoff float64) *Correlation {
	return &Correlation{Cutoff: cutoff}
}

func (f *Correlation) Name() string { return common.FilterCorrelation }

// Matrix returns the matrix of the numeric candidates seen by the last Apply.
func (f *Correlation) Matrix() *CorrelationMatrix { return f.matrix }

func (f *Correlation) Apply(t *dataset.Table, candidates []string) ([]string, []dataset.Drop, error) {
	numeric := t.NumericColumns(candidates)
	m, err := CorrelationOf(t, numeric)
	if err != nil {
		return nil, nil, err
	}
	f.matrix = m

	alive := make([]bool, len(numeric))
	for i := range alive {
		alive[i] = true
	}
	removed := make(map[string]struct{})
	var dropped []dataset.Drop

	for {
		victim, partner, r := f.pickVictim(alive)
		if victim < 0 {
			break
		}
		alive[victim] = false
		removed[numeric[victim]] = struct{}{}
		dropped = append(dropped, dataset.Drop{
			Column: numeric[victim],
			Filter: f.Name(),
			Reason: fmt.Sprintf("|r| = %.3f with %s", math.Abs(r), numeric[partner]),
		})
	}

	kept := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if _, ok := removed[name]; !ok {
			kept = append(kept, name)
		}
	}
	return kept, dropped, nil
}

// pickVictim returns the column to drop next, its strongest partner and their
// correlation, or -1 when no live pair reaches the cutoff.
func (f *Correlation) pickVictim(alive []bool) (victim, partner int, r float64) {
	n := len(alive)
	live := 0
	for _, a := range alive {
		if a {
			live++
		}
	}

	involved := make([]bool, n)
	found := false
	for i := 0; i < n; i++ {
		if !alive[i] {
			continue
		}
		for j := i + 1; j < n; j++ {
			if alive[j] && math.Abs(f.matrix.Values.At(i, j)) >= f.Cutoff {
				involved[i], involved[j] = true, true
				found = true
			}
		}
	}
	if !found {
		return -1, -1, 0
	}

	victim = -1
	best := -1.0
	for i := 0; i < n; i++ {
		if !involved[i] {
			continue
		}
		sum := 0.0
		for j := 0; j < n; j++ {
			if j != i && alive[j] {
				sum += math.Abs(f.matrix.Values.At(i, j))
			}
		}
		mean := sum / float64(live-1)
		if mean >= best {
			best = mean
			victim = i
		}
	}

	partner = -1
	strongest := -1.0
	for j := 0; j < n; j++ {
		if j == victim || !alive[j] {
			continue
		}
		if a := math.Abs(f.matrix.Values.At(victim, j)); a > strongest {
			strongest = a
			partner = j
		}
	}
	return victim, partner, f.matrix.Values.At(victim, partner)
}
