package checkpoint

import "sort"

// EncodeIDSpans run-length encodes a set of unit ids. The input need not
// be sorted; duplicates collapse.
func EncodeIDSpans(ids []uint64) []IDSpan {
	if len(ids) == 0 {
		return nil
	}
	sorted := make([]uint64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var spans []IDSpan
	cur := IDSpan{First: sorted[0], Count: 1}
	for _, id := range sorted[1:] {
		switch {
		case id == cur.First+cur.Count-1:
			// duplicate
		case id == cur.First+cur.Count:
			cur.Count++
		default:
			spans = append(spans, cur)
			cur = IDSpan{First: id, Count: 1}
		}
	}
	return append(spans, cur)
}

// ExpandIDSpans inverts EncodeIDSpans, producing sorted ids.
func ExpandIDSpans(spans []IDSpan) []uint64 {
	var total uint64
	for _, s := range spans {
		total += s.Count
	}
	out := make([]uint64, 0, total)
	for _, s := range spans {
		for i := uint64(0); i < s.Count; i++ {
			out = append(out, s.First+i)
		}
	}
	return out
}
