// Package grid models the physical node grid of a tiled accelerator:
// coordinates, rectangular node regions, and the resource bundle handed to a
// layer's tiling engine.
package grid

import "fmt"

// Coord is a two-dimensional extent or offset on the node grid, in
// (height, width) order.
type Coord struct {
	H int
	W int
}

// Size returns the number of nodes covered by the extent.
func (c Coord) Size() int {
	return c.H * c.W
}

// Add returns the element-wise sum of the two coordinates.
func (c Coord) Add(o Coord) Coord {
	return Coord{H: c.H + o.H, W: c.W + o.W}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.H, c.W)
}

// RegionKind distinguishes processing-node regions from external data regions.
type RegionKind int

const (
	// Proc regions hold processing nodes that execute layers.
	Proc RegionKind = iota
	// Data regions hold memory nodes at the grid boundary.
	Data
)

func (k RegionKind) String() string {
	switch k {
	case Proc:
		return "PROC"
	case Data:
		return "DATA"
	default:
		return fmt.Sprintf("RegionKind(%d)", int(k))
	}
}

// Region is a rectangle of nodes on the grid. Regions are plain values and
// compare with ==.
type Region struct {
	Origin Coord
	Dim    Coord
	Kind   RegionKind
}

// NodeCount returns the number of nodes in the region.
func (r Region) NodeCount() int {
	return r.Dim.Size()
}

// Contains reports whether the node coordinate lies inside the region.
func (r Region) Contains(c Coord) bool {
	return c.H >= r.Origin.H && c.H < r.Origin.H+r.Dim.H &&
		c.W >= r.Origin.W && c.W < r.Origin.W+r.Dim.W
}

// ContainsRegion reports whether o lies entirely inside r.
func (r Region) ContainsRegion(o Region) bool {
	return o.Origin.H >= r.Origin.H && o.Origin.H+o.Dim.H <= r.Origin.H+r.Dim.H &&
		o.Origin.W >= r.Origin.W && o.Origin.W+o.Dim.W <= r.Origin.W+r.Dim.W
}

// Overlaps reports whether the two regions share at least one node.
func (r Region) Overlaps(o Region) bool {
	if r.Dim.Size() == 0 || o.Dim.Size() == 0 {
		return false
	}
	return r.Origin.H < o.Origin.H+o.Dim.H && o.Origin.H < r.Origin.H+r.Dim.H &&
		r.Origin.W < o.Origin.W+o.Dim.W && o.Origin.W < r.Origin.W+r.Dim.W
}

// Nodes returns the node coordinates of the region in row-major order.
func (r Region) Nodes() []Coord {
	nodes := make([]Coord, 0, r.Dim.Size())
	for h := 0; h < r.Dim.H; h++ {
		for w := 0; w < r.Dim.W; w++ {
			nodes = append(nodes, Coord{H: r.Origin.H + h, W: r.Origin.W + w})
		}
	}
	return nodes
}

func (r Region) String() string {
	return fmt.Sprintf("%s%s+%dx%d", r.Kind, r.Origin, r.Dim.H, r.Dim.W)
}

// Resource bundles what a layer's tiling engine needs to know about the
// hardware it was assigned: the processing sub-region it runs on, where its
// input comes from, where its output goes, and the per-node capabilities of
// the platform. Resources are plain values and compare with ==.
type Resource struct {
	// Proc is the processing sub-region assigned to the layer.
	Proc Region
	// Src is the region the layer reads its input from.
	Src Region
	// Dst is the region the layer writes its output to.
	Dst Region

	// DimArray is the PE array extent within one node.
	DimArray Coord
	// SizeGbuf is the global buffer capacity of one node, in bytes.
	SizeGbuf int64
	// SizeRegf is the register file capacity of one PE, in bytes.
	SizeRegf int64
}
