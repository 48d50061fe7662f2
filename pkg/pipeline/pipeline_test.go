package pipeline

import (
	"strconv"
	"testing"

	"github.com/gridflow/gridflow/pkg/grid"
	"github.com/gridflow/gridflow/pkg/network"
)

func testResource() grid.Resource {
	data := grid.Region{Origin: grid.Coord{H: 0, W: 0}, Dim: grid.Coord{H: 8, W: 8}, Kind: grid.Data}
	return grid.Resource{
		Proc:     grid.Region{Origin: grid.Coord{H: 0, W: 0}, Dim: grid.Coord{H: 8, W: 8}, Kind: grid.Proc},
		Src:      data,
		Dst:      data,
		DimArray: grid.Coord{H: 16, W: 16},
		SizeGbuf: 65536,
		SizeRegf: 64,
	}
}

// linearNet is a 5-layer FC stack whose pooling fuses onto layer 1, giving
// vertices [0] [1 1p] [2] [3] with ops [200 630 1200 2000].
func linearNet() *network.Network {
	n := network.New("linear")
	if err := n.SetInput(network.InputLayer{Nofm: 10, Sofm: 1}); err != nil {
		panic(err)
	}
	n.MustAdd("0", network.FCLayer{Nifm: 10, Nofm: 20})
	n.MustAdd("1", network.FCLayer{Nifm: 20, Nofm: 30})
	n.MustAdd("1p", network.PoolingLayer{Nofm: 30, Sofm: 1, Sreg: 1})
	n.MustAdd("2", network.FCLayer{Nifm: 30, Nofm: 40})
	n.MustAdd("3", network.FCLayer{Nifm: 40, Nofm: 50})
	return n
}

// deepLinearNet is a 16-layer unit-cost FC chain.
func deepLinearNet() *network.Network {
	n := network.New("deep-linear")
	if err := n.SetInput(network.InputLayer{Nofm: 1, Sofm: 1}); err != nil {
		panic(err)
	}
	for i := 0; i < 16; i++ {
		n.MustAdd(strconv.Itoa(i), network.FCLayer{Nifm: 1, Nofm: 1})
	}
	return n
}

// forkJoinNet forks twice and rejoins twice:
//
//	/0-2\   /6- 7- 8\
//	  x  4-5         12
//	\1-3/   \9-10-11/
//
// Poolings fuse onto layers 2 and 5, giving 13 vertices.
func forkJoinNet() *network.Network {
	n := network.New("fork-join")
	if err := n.SetInput(network.InputLayer{Nofm: 1, Sofm: 1}); err != nil {
		panic(err)
	}
	fc := network.FCLayer{Nifm: 1, Nofm: 1}
	pool := network.PoolingLayer{Nofm: 1, Sofm: 1, Sreg: 1}
	n.MustAdd("0", fc, network.InputLayerKey)
	n.MustAdd("1", fc, network.InputLayerKey)
	n.MustAdd("2", network.FCLayer{Nifm: 2, Nofm: 1}, "0", "1")
	n.MustAdd("2p", pool)
	n.MustAdd("3", network.FCLayer{Nifm: 2, Nofm: 1}, "0", "1")
	n.MustAdd("4", fc, "2p", "3")
	n.MustAdd("5", fc)
	n.MustAdd("5p", pool)
	n.MustAdd("6", fc, "5p")
	n.MustAdd("7", fc)
	n.MustAdd("8", fc)
	n.MustAdd("9", fc, "5p")
	n.MustAdd("10", fc)
	n.MustAdd("11", fc)
	n.MustAdd("12", fc, "8", "11")
	return n
}

// complexForkNet spreads one producer over two fork levels:
//
//	         /5       \
//	0-1-2-3-4-6-7-8-10-14
//	             \9/
//	         \11-12   /
//	         \13      /
//
// No pooling can fuse, giving 18 single-layer vertices.
func complexForkNet() *network.Network {
	n := network.New("complex-fork")
	if err := n.SetInput(network.InputLayer{Nofm: 1, Sofm: 1}); err != nil {
		panic(err)
	}
	fc := network.FCLayer{Nifm: 1, Nofm: 1}
	pool := network.PoolingLayer{Nofm: 1, Sofm: 1, Sreg: 1}
	n.MustAdd("0", fc)
	n.MustAdd("1", fc)
	n.MustAdd("2", fc)
	n.MustAdd("3", fc)
	n.MustAdd("4", fc)
	n.MustAdd("5", fc, "4")
	n.MustAdd("6", fc, "4")
	n.MustAdd("7", fc)
	n.MustAdd("8", fc, "7")
	n.MustAdd("9", fc, "7")
	n.MustAdd("10", fc)
	n.MustAdd("10p", pool, "8", "10")
	n.MustAdd("4p1", pool, "4")
	n.MustAdd("11", fc)
	n.MustAdd("12", fc)
	n.MustAdd("4p2", pool, "4")
	n.MustAdd("13", fc)
	n.MustAdd("14", fc, "5", "10p", "12", "13")
	return n
}

// cornerCaseNet packs the awkward shapes into one graph:
//
//	 ----\
//	//1-2\ 7-8\
//	0-3-4-x   10-11-12
//	 \ \5/ 9 /  \__/
//	  6--/
func cornerCaseNet() *network.Network {
	n := network.New("corner-case")
	if err := n.SetInput(network.InputLayer{Nofm: 1, Sofm: 1}); err != nil {
		panic(err)
	}
	fc := network.FCLayer{Nifm: 1, Nofm: 1}
	n.MustAdd("0", fc)
	n.MustAdd("1", fc, "0")
	n.MustAdd("2", fc)
	n.MustAdd("3", fc, "0")
	n.MustAdd("4", fc, "3")
	n.MustAdd("5", fc, "3")
	n.MustAdd("6", fc, "0")
	n.MustAdd("7", fc, "0", "2", "4", "5", "6")
	n.MustAdd("8", fc)
	n.MustAdd("9", fc, "0", "2", "4", "5", "6")
	n.MustAdd("10", fc, "8", "9")
	n.MustAdd("11", fc)
	n.MustAdd("12", fc, "10", "11")
	return n
}

func testNets() map[string]*network.Network {
	return map[string]*network.Network{
		"linear":       linearNet(),
		"deep-linear":  deepLinearNet(),
		"fork-join":    forkJoinNet(),
		"complex-fork": complexForkNet(),
		"corner-case":  cornerCaseNet(),
	}
}

func mustNew(t *testing.T, net *network.Network) *Pipeline {
	t.Helper()
	p, err := New(net, testResource())
	if err != nil {
		t.Fatalf("New(%s): %v", net.Name(), err)
	}
	return p
}

func TestNewValidatesArguments(t *testing.T) {
	res := testResource()

	if _, err := New(nil, res); err == nil {
		t.Errorf("nil network accepted")
	}
	if _, err := New(network.New("empty"), res); err == nil {
		t.Errorf("empty network accepted")
	}

	badProcKind := res
	badProcKind.Proc.Kind = grid.Data
	badProcDim := res
	badProcDim.Proc.Dim = grid.Coord{}
	badSrc := res
	badSrc.Src.Kind = grid.Proc
	badDst := res
	badDst.Dst.Kind = grid.Proc

	for _, tt := range []struct {
		name string
		res  grid.Resource
	}{
		{"proc kind", badProcKind},
		{"proc dim", badProcDim},
		{"src kind", badSrc},
		{"dst kind", badDst},
	} {
		if _, err := New(linearNet(), tt.res); err == nil {
			t.Errorf("%s: invalid resource accepted", tt.name)
		}
	}

	p := mustNew(t, linearNet())
	if p.Network().Name() != "linear" {
		t.Errorf("Network() = %q", p.Network().Name())
	}
	if p.Resource() != res {
		t.Errorf("Resource() differs from the one passed in")
	}
}

func TestVertexFusion(t *testing.T) {
	p := mustNew(t, linearNet())

	want := [][]string{{"0"}, {"1", "1p"}, {"2"}, {"3"}}
	if p.NumVertices() != len(want) {
		t.Fatalf("NumVertices() = %d, want %d", p.NumVertices(), len(want))
	}
	for i, wv := range want {
		v := p.Vertex(VertexIndex(i))
		if len(v) != len(wv) {
			t.Fatalf("Vertex(%d) = %v, want %v", i, v, wv)
		}
		for j := range wv {
			if v[j] != wv[j] {
				t.Errorf("Vertex(%d)[%d] = %q, want %q", i, j, v[j], wv[j])
			}
		}
	}

	wantOps := []int64{200, 630, 1200, 2000}
	for i, w := range wantOps {
		if got := p.VertexOps(VertexIndex(i)); got != w {
			t.Errorf("VertexOps(%d) = %d, want %d", i, got, w)
		}
	}

	for _, name := range p.Network().Layers() {
		vi, ok := p.VertexOf(name)
		if !ok {
			t.Fatalf("VertexOf(%q) missing", name)
		}
		found := false
		for _, l := range p.Vertex(vi) {
			if l == name {
				found = true
			}
		}
		if !found {
			t.Errorf("layer %q not inside its vertex %d", name, vi)
		}
	}
}

func TestVertexFusionBlocked(t *testing.T) {
	// A local-region layer directly after the input starts its own vertex.
	n := network.New("pool-first")
	if err := n.SetInput(network.InputLayer{Nofm: 30, Sofm: 1}); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	n.MustAdd("0", network.PoolingLayer{Nofm: 30, Sofm: 1, Sreg: 1})
	n.MustAdd("1", network.FCLayer{Nifm: 30, Nofm: 40})
	n.MustAdd("1p", network.PoolingLayer{Nofm: 40, Sofm: 1, Sreg: 1})

	p := mustNew(t, n)
	if p.NumVertices() != 2 {
		t.Fatalf("NumVertices() = %d, want 2", p.NumVertices())
	}
	if vi, _ := p.VertexOf("0"); vi != 0 {
		t.Errorf("VertexOf(0) = %d, want 0", vi)
	}
	if vi, _ := p.VertexOf("1p"); vi != 1 {
		t.Errorf("VertexOf(1p) = %d, want 1", vi)
	}

	// A producer with a second consumer keeps its local-region layer apart.
	n2 := network.New("shared-producer")
	if err := n2.SetInput(network.InputLayer{Nofm: 1, Sofm: 1}); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	n2.MustAdd("0", network.FCLayer{Nifm: 1, Nofm: 1})
	n2.MustAdd("1", network.FCLayer{Nifm: 1, Nofm: 1}, "0")
	n2.MustAdd("0p", network.PoolingLayer{Nofm: 1, Sofm: 1, Sreg: 1}, "0")

	p2 := mustNew(t, n2)
	if p2.NumVertices() != 3 {
		t.Fatalf("NumVertices() = %d, want 3", p2.NumVertices())
	}
}

func TestVertexAdjacency(t *testing.T) {
	p := mustNew(t, forkJoinNet())

	if p.NumVertices() != 13 {
		t.Fatalf("NumVertices() = %d, want 13", p.NumVertices())
	}

	wantPrev := map[VertexIndex][]VertexIndex{
		0:  {ExternalVertex},
		1:  {ExternalVertex},
		2:  {0, 1},
		3:  {0, 1},
		4:  {2, 3},
		5:  {4},
		12: {8, 11},
	}
	for vi, want := range wantPrev {
		got := p.PrevVertices(vi)
		if len(got) != len(want) {
			t.Fatalf("PrevVertices(%d) = %v, want %v", vi, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("PrevVertices(%d) = %v, want %v", vi, got, want)
			}
		}
	}

	if got := p.NextVertices(5); len(got) != 2 || got[0] != 6 || got[1] != 9 {
		t.Errorf("NextVertices(5) = %v, want [6 9]", got)
	}
	if got := p.NextVertices(ExternalVertex); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("NextVertices(external) = %v, want [0 1]", got)
	}
}

func TestAdjacencySymmetry(t *testing.T) {
	for name, net := range testNets() {
		p := mustNew(t, net)
		n := p.NumVertices()

		for vi := 0; vi < n; vi++ {
			for _, pv := range p.PrevVertices(VertexIndex(vi)) {
				if pv >= VertexIndex(vi) {
					t.Errorf("%s: vertex %d has predecessor %d not before it", name, vi, pv)
				}
				found := false
				for _, nv := range p.NextVertices(pv) {
					if nv == VertexIndex(vi) {
						found = true
					}
				}
				if !found {
					t.Errorf("%s: edge %d->%d missing from successor side", name, pv, vi)
				}
			}
		}

		var total int64
		for vi := 0; vi < n; vi++ {
			total += p.VertexOps(VertexIndex(vi))
		}
		if total != net.TotalOps() {
			t.Errorf("%s: vertex ops sum %d, network total %d", name, total, net.TotalOps())
		}
	}
}

func TestOrderedLayerList(t *testing.T) {
	p := mustNew(t, forkJoinNet())

	want := []string{"0", "1", "2", "2p", "3", "4", "5", "5p", "6", "7", "8", "9", "10", "11", "12"}
	got := p.OrderedLayerList()
	if len(got) != len(want) {
		t.Fatalf("OrderedLayerList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("OrderedLayerList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
