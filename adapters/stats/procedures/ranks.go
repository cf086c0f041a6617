package procedures

import (
	"sort"

	"gocompare/domain/comparison"
)

// pooledRanks ranks the concatenation of all groups with ties sharing their
// average rank. It returns the per-group rank sums and the tie sizes.
type pooledRanks struct {
	n        int
	rankSums []float64
	sizes    []int
	ties     []int
}

func rankGroups(groups []comparison.Group) pooledRanks {
	type entry struct {
		value float64
		group int
	}

	var entries []entry
	sizes := make([]int, len(groups))
	for gi, g := range groups {
		sizes[gi] = len(g.Values)
		for _, v := range g.Values {
			entries = append(entries, entry{value: v, group: gi})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].value < entries[j].value
	})

	result := pooledRanks{
		n:        len(entries),
		rankSums: make([]float64, len(groups)),
		sizes:    sizes,
	}

	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].value == entries[i].value {
			j++
		}
		// ranks i+1..j share their mean
		avg := float64(i+1+j) / 2.0
		for k := i; k < j; k++ {
			result.rankSums[entries[k].group] += avg
		}
		if j-i > 1 {
			result.ties = append(result.ties, j-i)
		}
		i = j
	}

	return result
}

// tieSum returns sum(t^3 - t) over tie blocks.
func (r pooledRanks) tieSum() float64 {
	sum := 0.0
	for _, t := range r.ties {
		ft := float64(t)
		sum += ft*ft*ft - ft
	}
	return sum
}

func (r pooledRanks) meanRank(group int) float64 {
	return r.rankSums[group] / float64(r.sizes[group])
}
