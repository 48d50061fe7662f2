package pipeline

import (
	"fmt"
	"math"
	"strings"

	"k8s.io/klog/v2"

	"github.com/gridflow/gridflow/pkg/grid"
)

// AllocMode selects how a segment shares the grid.
type AllocMode int

const (
	// Spatial carves the grid into one sub-region per segment vertex, all
	// active at once.
	Spatial AllocMode = iota
	// Temporal runs the segment layers one after another on the whole grid.
	Temporal
)

func (m AllocMode) String() string {
	switch m {
	case Spatial:
		return "spatial"
	case Temporal:
		return "temporal"
	default:
		return fmt.Sprintf("AllocMode(%d)", int(m))
	}
}

// DefaultMaxUtilDrop is the default tolerated fraction of processing
// utilization lost to imbalance in a spatial allocation.
const DefaultMaxUtilDrop = 0.05

// SegmentAllocation pairs the scheduling groups of a segment with the
// resource assigned to each layer. Resources[i][j] belongs to Layers[i][j].
type SegmentAllocation struct {
	Layers    [][]string
	Resources [][]grid.Resource
}

// Key returns a canonical value identity for the allocation, usable for
// deduplication.
func (a *SegmentAllocation) Key() string {
	var b strings.Builder
	for i := range a.Layers {
		fmt.Fprintf(&b, "%q%v;", a.Layers[i], a.Resources[i])
	}
	return b.String()
}

// AllocateSegment maps a segment onto the grid. Spatial mode balances node
// counts against vertex op totals subject to the utilization tolerance;
// temporal mode time-multiplexes the whole grid. The boolean is false when no
// mapping satisfies the constraints, which is a normal outcome, not an error.
func (p *Pipeline) AllocateSegment(seg Segment, mode AllocMode, maxUtilDrop float64) (*SegmentAllocation, bool) {
	if seg.First < 0 || int(seg.Last) >= len(p.vertices) || seg.First > seg.Last {
		panic(fmt.Sprintf("pipeline: segment %v out of range [0,%d)", seg, len(p.vertices)))
	}
	switch mode {
	case Spatial:
		return p.allocateSpatial(seg, maxUtilDrop)
	case Temporal:
		return p.allocateTemporal(seg)
	default:
		panic(fmt.Sprintf("pipeline: unknown allocation mode %d", int(mode)))
	}
}

func (p *Pipeline) allocateSpatial(seg Segment, maxUtilDrop float64) (*SegmentAllocation, bool) {
	idxs := seg.Indices()
	ops := make([]int64, len(idxs))
	for i, vi := range idxs {
		ops[i] = p.ops[vi]
	}

	subs, ok := p.splitProcRegion(ops, maxUtilDrop)
	if !ok {
		klog.V(4).InfoS("segment infeasible", "segment", seg, "mode", Spatial, "maxUtilDrop", maxUtilDrop)
		return nil, false
	}

	layers := make([][]string, len(idxs))
	resources := make([][]grid.Resource, len(idxs))

	// Live on-chip outputs, layer name to the region holding it.
	onChip := make(map[string]grid.Region)

	for i, vi := range idxs {
		members := p.vertices[vi]
		sub := subs[i]
		layers[i] = append([]string(nil), members...)
		resources[i] = make([]grid.Resource, len(members))

		for j, name := range members {
			src := p.resource.Src
			for _, pl := range p.network.PrevLayers(name) {
				if r, live := onChip[pl]; live {
					src = r
					break
				}
			}

			dst := p.resource.Dst
			local := false
			if j < len(members)-1 {
				// The fused successor consumes this output in place.
				local = true
			} else if i < len(idxs)-1 && p.consumes(p.vertices[idxs[i+1]][0], name) {
				local = true
			}
			if local {
				dst = sub
				if j > 0 {
					delete(onChip, members[j-1])
				}
				onChip[name] = sub
			}

			resources[i][j] = grid.Resource{
				Proc:     sub,
				Src:      src,
				Dst:      dst,
				DimArray: p.resource.DimArray,
				SizeGbuf: p.resource.SizeGbuf,
				SizeRegf: p.resource.SizeRegf,
			}
		}
	}

	return &SegmentAllocation{Layers: layers, Resources: resources}, true
}

// consumes reports whether the consumer layer reads the producer's output.
func (p *Pipeline) consumes(consumer, producer string) bool {
	for _, pl := range p.network.PrevLayers(consumer) {
		if pl == producer {
			return true
		}
	}
	return false
}

// splitProcRegion carves the processing region into one rectangle per op
// count, sized proportionally. Rectangles are full-width horizontal stripes of
// a common height cf, subdivided left to right; cf runs over the factors of
// the region height in descending order and the first layout that balances
// within the utilization tolerance wins.
func (p *Pipeline) splitProcRegion(ops []int64, maxUtilDrop float64) ([]grid.Region, bool) {
	proc := p.resource.Proc
	total := proc.NodeCount()

	var totalOps int64
	for _, o := range ops {
		totalOps += o
	}

	for cf := proc.Dim.H; cf >= 1; cf-- {
		if proc.Dim.H%cf != 0 {
			continue
		}
		counts, ok := balanceCounts(ops, totalOps, total, cf)
		if !ok {
			continue
		}
		if utilization(ops, counts, total) < 1-maxUtilDrop {
			continue
		}
		subs, ok := carve(proc, counts, cf)
		if !ok {
			continue
		}
		return subs, true
	}
	return nil, false
}

// balanceCounts distributes total nodes over the op counts in multiples of
// cf. Rounded shares are repaired to the exact total in cf steps, taking from
// the entry with the largest surplus over its ideal share or giving to the
// one with the largest deficit, first index winning ties. A share that would
// vanish rejects this cf.
func balanceCounts(ops []int64, totalOps int64, total, cf int) ([]int, bool) {
	counts := make([]int, len(ops))
	raw := make([]float64, len(ops))
	sum := 0
	for i, o := range ops {
		raw[i] = float64(o) / float64(totalOps) * float64(total)
		c := int(math.Round(raw[i]/float64(cf))) * cf
		if c < cf {
			c = cf
		}
		counts[i] = c
		sum += c
	}

	for sum != total {
		k := 0
		if sum > total {
			for i := 1; i < len(counts); i++ {
				if float64(counts[i])-raw[i] > float64(counts[k])-raw[k] {
					k = i
				}
			}
			counts[k] -= cf
			sum -= cf
		} else {
			for i := 1; i < len(counts); i++ {
				if float64(counts[i])-raw[i] < float64(counts[k])-raw[k] {
					k = i
				}
			}
			counts[k] += cf
			sum += cf
		}
	}

	for _, c := range counts {
		if c <= 0 {
			return nil, false
		}
	}
	return counts, true
}

// utilization is the ratio of useful work to the capacity of all nodes for
// the duration of the slowest vertex.
func utilization(ops []int64, counts []int, total int) float64 {
	var worst float64
	var totalOps int64
	for i := range ops {
		t := float64(ops[i]) / float64(counts[i])
		if t > worst {
			worst = t
		}
		totalOps += ops[i]
	}
	return float64(totalOps) / (worst * float64(total))
}

// carve lays the counts out as rectangles of height cf, left to right in
// full-width stripes. Any rectangle that fits neither the current stripe nor
// a fresh one fails the layout.
func carve(proc grid.Region, counts []int, cf int) ([]grid.Region, bool) {
	subs := make([]grid.Region, len(counts))
	h, w := 0, 0
	for i, c := range counts {
		cw := c / cf
		if w+cw > proc.Dim.W {
			h += cf
			w = 0
		}
		if w+cw > proc.Dim.W || h+cf > proc.Dim.H {
			return nil, false
		}
		subs[i] = grid.Region{
			Origin: proc.Origin.Add(grid.Coord{H: h, W: w}),
			Dim:    grid.Coord{H: cf, W: cw},
			Kind:   grid.Proc,
		}
		w += cw
	}
	return subs, true
}

func (p *Pipeline) allocateTemporal(seg Segment) (*SegmentAllocation, bool) {
	idxs := seg.Indices()

	// Sharing the grid over time needs a pure chain: inner members must have
	// exactly their segment neighbors as predecessor and successor in the
	// full DAG.
	for k, vi := range idxs {
		if k > 0 {
			preds := p.prevs[vi]
			if preds.Len() != 1 || !preds.Contains(idxs[k-1]) {
				klog.V(4).InfoS("segment infeasible", "segment", seg, "mode", Temporal)
				return nil, false
			}
		}
		if k < len(idxs)-1 {
			nexts := p.nexts[vi]
			if nexts.Len() != 1 || !nexts.Contains(idxs[k+1]) {
				klog.V(4).InfoS("segment infeasible", "segment", seg, "mode", Temporal)
				return nil, false
			}
		}
	}

	var all []string
	for _, vi := range idxs {
		all = append(all, p.vertices[vi]...)
	}

	rs := make([]grid.Resource, len(all))
	for k := range all {
		r := grid.Resource{
			Proc:     p.resource.Proc,
			Src:      p.resource.Proc,
			Dst:      p.resource.Proc,
			DimArray: p.resource.DimArray,
			SizeGbuf: p.resource.SizeGbuf,
			SizeRegf: p.resource.SizeRegf,
		}
		if k == 0 {
			r.Src = p.resource.Src
		}
		if k == len(all)-1 {
			r.Dst = p.resource.Dst
		}
		rs[k] = r
	}

	return &SegmentAllocation{
		Layers:    [][]string{all},
		Resources: [][]grid.Resource{rs},
	}, true
}
