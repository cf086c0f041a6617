// Package cleaning turns one metric column of a prepared table into labelled
// numeric observations and groups them.
package cleaning

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gocompare/domain/comparison"
	"gocompare/domain/core"
)

// Result is the outcome of cleaning one metric column.
type Result struct {
	Metric       string
	Observations []comparison.Observation
	// Dropped counts rows lost to a missing group label or a non-numeric value.
	Dropped int
}

// Clean coerces the metric column to numbers and pairs each value with its
// group label, dropping rows where either is missing. ok is false when the
// metric is the grouping column itself, which is never analysed.
func Clean(tbl *comparison.Table, metric, groupColumn string) (res Result, ok bool, err error) {
	if metric == groupColumn {
		return Result{}, false, nil
	}
	if !tbl.HasColumn(metric) {
		return Result{}, true, fmt.Errorf("%w: %s", core.ErrMetricColumnMissing, metric)
	}

	res = Result{Metric: metric, Observations: make([]comparison.Observation, 0, tbl.Len())}
	for _, row := range tbl.Rows {
		label := strings.TrimSpace(row[groupColumn])
		value, numeric := ParseNumber(row[metric])
		if comparison.IsMissing(label) || !numeric {
			res.Dropped++
			continue
		}
		res.Observations = append(res.Observations, comparison.Observation{Group: label, Value: value})
	}

	if len(res.Observations) == 0 {
		return res, true, core.ErrNoDataAfterCleaning
	}
	return res, true, nil
}

// ParseNumber coerces a cell to a float. NA tokens, NaN, hexadecimal and
// otherwise unparsable text are reported as not numeric.
func ParseNumber(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if comparison.IsMissing(s) {
		return 0, false
	}
	unsigned := strings.TrimLeft(s, "+-")
	if strings.HasPrefix(unsigned, "0x") || strings.HasPrefix(unsigned, "0X") || strings.Contains(s, "_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// GroupBy collects observations per label. Groups are ordered by sorted
// label: numerically when every label is a number, lexicographically
// otherwise. Value order within a group follows row order.
func GroupBy(obs []comparison.Observation) []comparison.Group {
	index := make(map[string]int)
	var groups []comparison.Group
	for _, o := range obs {
		i, ok := index[o.Group]
		if !ok {
			i = len(groups)
			index[o.Group] = i
			groups = append(groups, comparison.Group{Label: o.Group})
		}
		groups[i].Values = append(groups[i].Values, o.Value)
	}

	sortGroups(groups)
	return groups
}

func sortGroups(groups []comparison.Group) {
	keys := make([]float64, len(groups))
	numeric := true
	for i, g := range groups {
		v, ok := ParseNumber(g.Label)
		if !ok {
			numeric = false
			break
		}
		keys[i] = v
	}

	if !numeric {
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].Label < groups[j].Label
		})
		return
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return keys[order[i]] < keys[order[j]]
	})
	sorted := make([]comparison.Group, len(groups))
	for i, idx := range order {
		sorted[i] = groups[idx]
	}
	copy(groups, sorted)
}
