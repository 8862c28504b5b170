package scene

// span is a half-open vertex range [start, end).
type span struct {
	start, end int
}

// ranges is a sorted list of disjoint, non-adjacent spans.
type ranges []span

// add inserts [start, end), merging it with every span it overlaps or touches.
func (r ranges) add(start, end int) ranges {
	if start >= end {
		return r
	}
	out := make(ranges, 0, len(r)+1)
	i := 0
	for ; i < len(r) && r[i].end < start; i++ {
		out = append(out, r[i])
	}
	for ; i < len(r) && r[i].start <= end; i++ {
		start = min(start, r[i].start)
		end = max(end, r[i].end)
	}
	out = append(out, span{start, end})
	return append(out, r[i:]...)
}

// total returns the number of vertices covered.
func (r ranges) total() int {
	n := 0
	for _, s := range r {
		n += s.end - s.start
	}
	return n
}
