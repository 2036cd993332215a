package station

import "sort"

// Merge unions station batches into one list keyed by station ID.
// Batches are consumed in order and the first occurrence of an ID wins, so
// callers that fetch concurrently must pass batches in query order.
func Merge(batches [][]Station) []Station {
	size := 0
	for _, b := range batches {
		size += len(b)
	}

	seen := make(map[string]struct{}, size)
	merged := make([]Station, 0, size)
	for _, batch := range batches {
		for _, s := range batch {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			merged = append(merged, s)
		}
	}
	return merged
}

// SortOperatorsByPrice returns a copy of the station with its operators
// ordered cheapest first.
func SortOperatorsByPrice(s Station) Station {
	if len(s.Operators) < 2 {
		return s
	}
	ops := make([]Operator, len(s.Operators))
	copy(ops, s.Operators)
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].PricePerKwh < ops[j].PricePerKwh
	})
	s.Operators = ops
	return s
}
