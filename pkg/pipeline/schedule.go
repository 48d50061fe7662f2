package pipeline

import (
	"k8s.io/klog/v2"

	"github.com/gridflow/gridflow/pkg/grid"
)

// Options selects which pipelining styles the candidate stream covers. With
// neither style enabled every layer is scheduled alone on the whole platform.
type Options struct {
	SpatialPipelining  bool
	TemporalPipelining bool
}

// AllocationIter lazily generates the candidate allocations for one pipeline
// under one set of options. Candidates appear in a fixed order and without
// value duplicates; infeasible segments are skipped silently. Each call to
// Allocations returns an independent iterator producing the same sequence.
type AllocationIter struct {
	p           *Pipeline
	opts        Options
	maxUtilDrop float64

	layers   []string
	layerIdx int

	segs *SegmentIter
	mode AllocMode
	done bool
	seen map[string]bool
	cur  *SegmentAllocation
}

// Allocations returns a fresh candidate iterator.
func (p *Pipeline) Allocations(opts Options, maxUtilDrop float64) *AllocationIter {
	it := &AllocationIter{
		p:           p,
		opts:        opts,
		maxUtilDrop: maxUtilDrop,
		seen:        make(map[string]bool),
	}
	if !opts.SpatialPipelining && !opts.TemporalPipelining {
		it.layers = p.network.Layers()
		return it
	}
	it.mode = Spatial
	if !opts.SpatialPipelining {
		it.mode = Temporal
	}
	it.segs = p.Segments()
	klog.V(2).InfoS("generating segment allocations",
		"network", p.network.Name(),
		"spatial", opts.SpatialPipelining, "temporal", opts.TemporalPipelining,
		"maxUtilDrop", maxUtilDrop)
	return it
}

// Next advances to the next candidate.
func (it *AllocationIter) Next() bool {
	if it.segs == nil {
		// No pipelining: one candidate per layer on the unmodified platform.
		if it.layerIdx >= len(it.layers) {
			return false
		}
		name := it.layers[it.layerIdx]
		it.layerIdx++
		it.cur = &SegmentAllocation{
			Layers:    [][]string{{name}},
			Resources: [][]grid.Resource{{it.p.resource}},
		}
		return true
	}

	for !it.done {
		if !it.segs.Next() {
			if it.mode == Spatial && it.opts.TemporalPipelining {
				it.mode = Temporal
				it.segs = it.p.Segments()
				continue
			}
			it.done = true
			break
		}
		alloc, ok := it.p.AllocateSegment(it.segs.Segment(), it.mode, it.maxUtilDrop)
		if !ok {
			continue
		}
		key := alloc.Key()
		if it.seen[key] {
			continue
		}
		it.seen[key] = true
		it.cur = alloc
		return true
	}
	return false
}

// Allocation returns the candidate found by the last successful Next.
func (it *AllocationIter) Allocation() *SegmentAllocation {
	return it.cur
}
