package pipeline

import "fmt"

// Segment is a contiguous window of vertex indices, both ends inclusive.
type Segment struct {
	First VertexIndex
	Last  VertexIndex
}

// Len returns the number of vertices in the segment.
func (s Segment) Len() int {
	return int(s.Last-s.First) + 1
}

// Contains reports whether vertex i lies in the segment.
func (s Segment) Contains(i VertexIndex) bool {
	return i >= s.First && i <= s.Last
}

// Indices returns the vertex indices of the segment in order.
func (s Segment) Indices() []VertexIndex {
	out := make([]VertexIndex, 0, s.Len())
	for i := s.First; i <= s.Last; i++ {
		out = append(out, i)
	}
	return out
}

func (s Segment) String() string {
	return fmt.Sprintf("[%d..%d]", s.First, s.Last)
}

// SegmentIter enumerates the legal segments of a pipeline, lazily and in a
// fixed order: by first vertex ascending, then by last vertex ascending. Each
// call to Segments returns an independent iterator producing the same
// sequence.
type SegmentIter struct {
	p    *Pipeline
	s, e int
	cur  Segment
}

// Segments returns a fresh segment iterator.
func (p *Pipeline) Segments() *SegmentIter {
	return &SegmentIter{p: p}
}

// Next advances to the next legal segment.
func (it *SegmentIter) Next() bool {
	n := it.p.NumVertices()
	for it.s < n {
		e := it.e
		if e >= n || (e > it.s && !it.p.canExtend(it.s, e)) {
			// No window starting at s can grow past e.
			it.s++
			it.e = it.s
			continue
		}
		it.e++
		if it.p.windowLegal(it.s, e) {
			it.cur = Segment{First: VertexIndex(it.s), Last: VertexIndex(e)}
			return true
		}
	}
	return false
}

// Segment returns the segment found by the last successful Next.
func (it *SegmentIter) Segment() Segment {
	return it.cur
}

// canExtend reports whether vertex e may join a window currently spanning
// [s, e-1]. A vertex with more than one predecessor can only start a window,
// and any later vertex must consume data produced inside the window. Both
// conditions are permanent: once violated, no longer window from s is legal.
func (p *Pipeline) canExtend(s, e int) bool {
	preds := p.prevs[VertexIndex(e)]
	if preds.Len() > 1 {
		return false
	}
	for pv := range preds {
		if int(pv) >= s && int(pv) < e {
			return true
		}
	}
	return false
}

// windowLegal decides whether the window [s, e] is emitted. On top of the
// growth conditions, a member's fan-out must be entirely inside or entirely
// outside the window. Successors always carry larger indices, so the tail
// itself needs no check.
func (p *Pipeline) windowLegal(s, e int) bool {
	for v := s; v < e; v++ {
		nexts := p.nexts[VertexIndex(v)]
		if nexts.Len() < 2 {
			continue
		}
		in := 0
		for nv := range nexts {
			if int(nv) <= e {
				in++
			}
		}
		if in != 0 && in != nexts.Len() {
			return false
		}
	}
	return true
}
