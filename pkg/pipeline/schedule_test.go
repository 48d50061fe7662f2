package pipeline

import "testing"

func collectAllocations(p *Pipeline, opts Options) []*SegmentAllocation {
	var out []*SegmentAllocation
	it := p.Allocations(opts, DefaultMaxUtilDrop)
	for it.Next() {
		out = append(out, it.Allocation())
	}
	return out
}

func TestAllocationsNoPipelining(t *testing.T) {
	for name, net := range testNets() {
		p := mustNew(t, net)
		res := p.Resource()

		allocs := collectAllocations(p, Options{})
		if len(allocs) != net.Len() {
			t.Fatalf("%s: %d candidates, want one per layer (%d)", name, len(allocs), net.Len())
		}
		for i, a := range allocs {
			if len(a.Layers) != 1 || len(a.Layers[0]) != 1 {
				t.Fatalf("%s: candidate %d groups %v, want a single layer", name, i, a.Layers)
			}
			if a.Layers[0][0] != net.Layers()[i] {
				t.Errorf("%s: candidate %d layer %q, want %q", name, i, a.Layers[0][0], net.Layers()[i])
			}
			if a.Resources[0][0] != res {
				t.Errorf("%s: candidate %d resource modified: %v", name, i, a.Resources[0][0])
			}
		}
	}
}

func TestAllocationsSpatial(t *testing.T) {
	p := mustNew(t, linearNet())

	var want []string
	for it := p.Segments(); it.Next(); {
		if alloc, ok := p.AllocateSegment(it.Segment(), Spatial, DefaultMaxUtilDrop); ok {
			want = append(want, alloc.Key())
		}
	}
	if len(want) == 0 {
		t.Fatalf("no feasible spatial segment on the linear chain")
	}

	allocs := collectAllocations(p, Options{SpatialPipelining: true})
	if len(allocs) != len(want) {
		t.Fatalf("%d candidates, want %d", len(allocs), len(want))
	}
	for i, a := range allocs {
		if a.Key() != want[i] {
			t.Errorf("candidate %d differs from the enumeration order", i)
		}
	}
}

func TestAllocationsTemporal(t *testing.T) {
	p := mustNew(t, forkJoinNet())

	allocs := collectAllocations(p, Options{TemporalPipelining: true})
	if len(allocs) == 0 {
		t.Fatalf("no temporal candidates")
	}
	for i, a := range allocs {
		if len(a.Layers) != 1 {
			t.Errorf("candidate %d: temporal allocation has %d groups, want 1", i, len(a.Layers))
		}
	}
}

func TestAllocationsBothDeduplicated(t *testing.T) {
	for name, net := range testNets() {
		p := mustNew(t, net)

		spatial := collectAllocations(p, Options{SpatialPipelining: true})
		temporal := collectAllocations(p, Options{TemporalPipelining: true})
		both := collectAllocations(p, Options{SpatialPipelining: true, TemporalPipelining: true})

		seen := make(map[string]bool)
		for _, a := range spatial {
			seen[a.Key()] = true
		}
		union := len(seen)
		for _, a := range temporal {
			if !seen[a.Key()] {
				seen[a.Key()] = true
				union++
			}
		}

		if len(both) != union {
			t.Errorf("%s: %d candidates with both modes, want deduplicated union %d", name, len(both), union)
		}
		keys := make(map[string]bool)
		for _, a := range both {
			if keys[a.Key()] {
				t.Errorf("%s: duplicate candidate emitted", name)
			}
			keys[a.Key()] = true
		}
	}
}

func TestAllocationsRestart(t *testing.T) {
	p := mustNew(t, linearNet())
	opts := Options{SpatialPipelining: true, TemporalPipelining: true}

	first := collectAllocations(p, opts)
	second := collectAllocations(p, opts)
	if len(first) != len(second) {
		t.Fatalf("%d then %d candidates", len(first), len(second))
	}
	for i := range first {
		if first[i].Key() != second[i].Key() {
			t.Errorf("candidate %d differs between runs", i)
		}
	}
}
