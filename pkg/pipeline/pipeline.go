// Package pipeline maps a layered network onto a grid of processing nodes for
// inter-layer pipelining. It fuses layers into vertices, enumerates the legal
// contiguous vertex segments, and allocates grid sub-regions to the vertices
// of a segment. Everything is exact and deterministic; callers attach their
// own cost model to the generated candidates.
package pipeline

import (
	"fmt"
	"sort"

	"k8s.io/klog/v2"

	"github.com/gridflow/gridflow/pkg/grid"
	"github.com/gridflow/gridflow/pkg/network"
)

// VertexIndex identifies one vertex of the fused-layer DAG.
type VertexIndex int

// ExternalVertex stands for the external input in vertex adjacency. It shows
// up in predecessor sets and owns a successor set, but is never a vertex of
// the DAG itself.
const ExternalVertex VertexIndex = -1

// IndexSet is a set of vertex indices.
type IndexSet map[VertexIndex]struct{}

func (s IndexSet) add(i VertexIndex) {
	s[i] = struct{}{}
}

// Contains reports whether i is in the set.
func (s IndexSet) Contains(i VertexIndex) bool {
	_, ok := s[i]
	return ok
}

// Len returns the set size.
func (s IndexSet) Len() int {
	return len(s)
}

// Sorted returns the indices in ascending order, ExternalVertex first.
func (s IndexSet) Sorted() []VertexIndex {
	out := make([]VertexIndex, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Pipeline holds the fused vertex DAG of one network on one platform. It is
// immutable after New and safe for concurrent use.
type Pipeline struct {
	network  *network.Network
	resource grid.Resource

	// vertices[i] is the ordered layer tuple of vertex i.
	vertices [][]string
	vertexOf map[string]VertexIndex
	prevs    map[VertexIndex]IndexSet
	nexts    map[VertexIndex]IndexSet
	ops      []int64
}

// New builds the vertex DAG of the network for the given platform resource.
func New(net *network.Network, res grid.Resource) (*Pipeline, error) {
	if net == nil {
		return nil, fmt.Errorf("pipeline: network must not be nil")
	}
	if net.Len() == 0 {
		return nil, fmt.Errorf("pipeline: network %q has no layers", net.Name())
	}
	if res.Proc.Kind != grid.Proc || res.Proc.NodeCount() <= 0 {
		return nil, fmt.Errorf("pipeline: resource needs a non-empty %s processing region, got %v", grid.Proc, res.Proc)
	}
	if res.Src.Kind != grid.Data {
		return nil, fmt.Errorf("pipeline: resource source region must be %s, got %v", grid.Data, res.Src)
	}
	if res.Dst.Kind != grid.Data {
		return nil, fmt.Errorf("pipeline: resource destination region must be %s, got %v", grid.Data, res.Dst)
	}

	p := &Pipeline{
		network:  net,
		resource: res,
		vertexOf: make(map[string]VertexIndex, net.Len()),
		prevs:    make(map[VertexIndex]IndexSet),
		nexts:    make(map[VertexIndex]IndexSet),
	}
	p.build()

	klog.V(2).InfoS("built pipeline vertex DAG",
		"network", net.Name(), "layers", net.Len(), "vertices", len(p.vertices))
	return p, nil
}

// build fuses layers into vertices and derives adjacency and op totals.
func (p *Pipeline) build() {
	net := p.network

	// A local-region layer joins the open vertex when its sole input is the
	// layer appended right before it and nobody else consumes that layer.
	var curr []string
	for _, name := range net.Layers() {
		l, _ := net.Layer(name)
		if len(curr) > 0 && !p.fusesOnto(name, l, curr[len(curr)-1]) {
			p.vertices = append(p.vertices, curr)
			curr = nil
		}
		curr = append(curr, name)
	}
	if len(curr) > 0 {
		p.vertices = append(p.vertices, curr)
	}

	for vi, v := range p.vertices {
		for _, name := range v {
			p.vertexOf[name] = VertexIndex(vi)
		}
	}
	if len(p.vertexOf) != net.Len() {
		panic(fmt.Sprintf("pipeline: vertex map covers %d layers, network has %d", len(p.vertexOf), net.Len()))
	}

	p.nexts[ExternalVertex] = IndexSet{}
	for vi := range p.vertices {
		p.prevs[VertexIndex(vi)] = IndexSet{}
		p.nexts[VertexIndex(vi)] = IndexSet{}
	}

	p.ops = make([]int64, len(p.vertices))
	for vi, v := range p.vertices {
		cur := VertexIndex(vi)
		for _, name := range v {
			l, _ := net.Layer(name)
			p.ops[vi] += l.Ops()
			for _, pl := range net.PrevLayers(name) {
				pv := ExternalVertex
				if pl != network.InputLayerKey {
					pv = p.vertexOf[pl]
				}
				if pv == cur {
					continue
				}
				if pv > cur {
					panic(fmt.Sprintf("pipeline: layer %q in vertex %d fed by later vertex %d", name, cur, pv))
				}
				p.prevs[cur].add(pv)
				p.nexts[pv].add(cur)
			}
		}
	}

	var total int64
	for _, o := range p.ops {
		total += o
	}
	if total != net.TotalOps() {
		panic(fmt.Sprintf("pipeline: vertex ops sum %d, network has %d", total, net.TotalOps()))
	}
}

// fusesOnto reports whether layer name may extend the vertex ending in last.
func (p *Pipeline) fusesOnto(name string, l network.Layer, last string) bool {
	if !l.LocalRegion() {
		return false
	}
	prevs := p.network.PrevLayers(name)
	if len(prevs) != 1 || prevs[0] == network.InputLayerKey {
		return false
	}
	if prevs[0] != last {
		return false
	}
	return len(p.network.NextLayers(last)) == 1
}

// Network returns the network the pipeline was built for.
func (p *Pipeline) Network() *network.Network {
	return p.network
}

// Resource returns the global platform resource.
func (p *Pipeline) Resource() grid.Resource {
	return p.resource
}

// NumVertices returns the number of vertices of the DAG.
func (p *Pipeline) NumVertices() int {
	return len(p.vertices)
}

// Vertex returns the ordered layer tuple of vertex i.
func (p *Pipeline) Vertex(i VertexIndex) []string {
	p.checkVertex(i)
	return append([]string(nil), p.vertices[i]...)
}

// VertexOf returns the vertex holding the named layer.
func (p *Pipeline) VertexOf(layer string) (VertexIndex, bool) {
	vi, ok := p.vertexOf[layer]
	return vi, ok
}

// VertexOps returns the summed op count of vertex i.
func (p *Pipeline) VertexOps(i VertexIndex) int64 {
	p.checkVertex(i)
	return p.ops[i]
}

// PrevVertices returns the predecessors of vertex i in ascending order, with
// ExternalVertex first when the vertex reads external input.
func (p *Pipeline) PrevVertices(i VertexIndex) []VertexIndex {
	p.checkVertex(i)
	return p.prevs[i].Sorted()
}

// NextVertices returns the successors of the vertex in ascending order. It
// accepts ExternalVertex for the successors of the external input.
func (p *Pipeline) NextVertices(i VertexIndex) []VertexIndex {
	if i != ExternalVertex {
		p.checkVertex(i)
	}
	return p.nexts[i].Sorted()
}

// OrderedLayerList returns all layer names, vertex by vertex in index order.
// The order is a topological order of the network compatible with segment
// enumeration.
func (p *Pipeline) OrderedLayerList() []string {
	out := make([]string, 0, p.network.Len())
	for _, v := range p.vertices {
		out = append(out, v...)
	}
	return out
}

func (p *Pipeline) checkVertex(i VertexIndex) {
	if i < 0 || int(i) >= len(p.vertices) {
		panic(fmt.Sprintf("pipeline: vertex index %d out of range [0,%d)", i, len(p.vertices)))
	}
}
