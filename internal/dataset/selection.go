package dataset

import (
	"fmt"
	"strings"
)

// Drop records why a column left the feature set.
type Drop struct {
	Column string `json:"column"`
	Filter string `json:"filter"`
	Reason string `json:"reason"`
}

// Selection is the outcome of pruning: the surviving feature names, in
// training-table order, and the audit trail of removed columns.
type Selection struct {
	Label    string   `json:"label"`
	Features []string `json:"features"`
	Dropped  []Drop   `json:"dropped"`
}

// Apply projects t onto the selected features plus the label when t has it.
// Columns of t outside the selection are ignored.
func (s *Selection) Apply(t *Table) (*Table, error) {
	if missing := t.absent(s.Features); len(missing) > 0 {
		return nil, fmt.Errorf("apply selection: %w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	cols := make([]string, 0, len(s.Features)+1)
	cols = append(cols, s.Features...)
	if s.Label != "" && t.Has(s.Label) {
		cols = append(cols, s.Label)
	}
	return t.Select(cols)
}

// DroppedBy returns the columns removed by the named filter, in drop order.
func (s *Selection) DroppedBy(filter string) []string {
	var out []string
	for _, d := range s.Dropped {
		if d.Filter == filter {
			out = append(out, d.Column)
		}
	}
	return out
}

// DroppedColumns returns every removed column in drop order.
func (s *Selection) DroppedColumns() []string {
	out := make([]string, len(s.Dropped))
	for i, d := range s.Dropped {
		out[i] = d.Column
	}
	return out
}
