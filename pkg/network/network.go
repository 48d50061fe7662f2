package network

import (
	"fmt"
)

// InputLayerKey denotes the external input of the network inside predecessor
// lists.
const InputLayerKey = "__INPUT__"

// Network is a named, ordered graph of layers. Layers are appended with their
// predecessors, so insertion order is always a topological order.
type Network struct {
	name     string
	input    InputLayer
	hasInput bool

	names  []string
	layers map[string]Layer
	prevs  map[string][]string
	nexts  map[string][]string
}

// New returns an empty network. SetInput must be called before the first Add.
func New(name string) *Network {
	return &Network{
		name:   name,
		layers: make(map[string]Layer),
		prevs:  make(map[string][]string),
		nexts:  make(map[string][]string),
	}
}

// Name returns the network name.
func (n *Network) Name() string {
	return n.name
}

// SetInput sets the external input layer. It must be called exactly once,
// before any layer is added.
func (n *Network) SetInput(l InputLayer) error {
	if n.hasInput {
		return fmt.Errorf("network %q: input layer already set", n.name)
	}
	if len(n.names) > 0 {
		return fmt.Errorf("network %q: input layer must be set before layers are added", n.name)
	}
	if l.Nofm <= 0 {
		return fmt.Errorf("network %q: input layer needs a positive number of feature maps", n.name)
	}
	n.input = l
	n.hasInput = true
	return nil
}

// Input returns the external input layer.
func (n *Network) Input() InputLayer {
	if !n.hasInput {
		panic(fmt.Sprintf("network %q: input layer not set", n.name))
	}
	return n.input
}

// Add appends a named layer fed by the given predecessors. An empty prevs list
// means the previously added layer, or the external input for the first layer.
// InputLayerKey inside prevs denotes the external input.
func (n *Network) Add(name string, l Layer, prevs ...string) error {
	if !n.hasInput {
		return fmt.Errorf("network %q: add %q: input layer not set", n.name, name)
	}
	if name == InputLayerKey {
		return fmt.Errorf("network %q: layer name %q is reserved", n.name, name)
	}
	if _, ok := n.layers[name]; ok {
		return fmt.Errorf("network %q: duplicate layer %q", n.name, name)
	}
	if l == nil {
		return fmt.Errorf("network %q: add %q: nil layer", n.name, name)
	}
	if _, ok := l.(InputLayer); ok {
		return fmt.Errorf("network %q: add %q: input layers are set with SetInput", n.name, name)
	}

	if len(prevs) == 0 {
		if len(n.names) == 0 {
			prevs = []string{InputLayerKey}
		} else {
			prevs = []string{n.names[len(n.names)-1]}
		}
	}
	seen := make(map[string]bool, len(prevs))
	for _, p := range prevs {
		if seen[p] {
			return fmt.Errorf("network %q: add %q: duplicate predecessor %q", n.name, name, p)
		}
		seen[p] = true
		if p == InputLayerKey {
			continue
		}
		if _, ok := n.layers[p]; !ok {
			return fmt.Errorf("network %q: add %q: unknown predecessor %q", n.name, name, p)
		}
	}
	if err := n.checkFanIn(name, l, prevs); err != nil {
		return err
	}

	n.names = append(n.names, name)
	n.layers[name] = l
	n.prevs[name] = append([]string(nil), prevs...)
	for _, p := range prevs {
		if p != InputLayerKey {
			n.nexts[p] = append(n.nexts[p], name)
		}
	}
	return nil
}

// MustAdd is Add, panicking on error. Meant for static network definitions.
func (n *Network) MustAdd(name string, l Layer, prevs ...string) {
	if err := n.Add(name, l, prevs...); err != nil {
		panic(err)
	}
}

// checkFanIn validates the channel arithmetic of a new layer against its
// predecessors. Predecessor outputs are either concatenated along the channel
// dimension or merged element-wise, so the fan-in is valid when the
// predecessors' output channels sum to the layer's input channels, or when
// each predecessor's output channels equal them.
func (n *Network) checkFanIn(name string, l Layer, prevs []string) error {
	nifm := l.NumIfmaps()
	sum := 0
	each := true
	for _, p := range prevs {
		nofm := 0
		if p == InputLayerKey {
			nofm = n.input.Nofm
		} else {
			nofm = n.layers[p].NumOfmaps()
		}
		sum += nofm
		if nofm != nifm {
			each = false
		}
	}
	if sum == nifm || each {
		return nil
	}
	return fmt.Errorf("network %q: add %q: fan-in mismatch: layer wants %d input fmaps, predecessors %v supply %d in total",
		n.name, name, nifm, prevs, sum)
}

// Len returns the number of layers, the external input excluded.
func (n *Network) Len() int {
	return len(n.names)
}

// Layers returns the layer names in insertion (topological) order.
func (n *Network) Layers() []string {
	return append([]string(nil), n.names...)
}

// Layer returns the named layer.
func (n *Network) Layer(name string) (Layer, bool) {
	l, ok := n.layers[name]
	return l, ok
}

// PrevLayers returns the predecessors of the named layer, with InputLayerKey
// standing in for the external input. The layer must exist.
func (n *Network) PrevLayers(name string) []string {
	p, ok := n.prevs[name]
	if !ok {
		panic(fmt.Sprintf("network %q: unknown layer %q", n.name, name))
	}
	return append([]string(nil), p...)
}

// NextLayers returns the consumers of the named layer in insertion order. The
// layer must exist.
func (n *Network) NextLayers(name string) []string {
	if _, ok := n.layers[name]; !ok {
		panic(fmt.Sprintf("network %q: unknown layer %q", n.name, name))
	}
	return append([]string(nil), n.nexts[name]...)
}

// FirstLayers returns, in insertion order, the layers that read the external
// input.
func (n *Network) FirstLayers() []string {
	var first []string
	for _, name := range n.names {
		for _, p := range n.prevs[name] {
			if p == InputLayerKey {
				first = append(first, name)
				break
			}
		}
	}
	return first
}

// TotalOps returns the summed op count of all layers for one input sample.
func (n *Network) TotalOps() int64 {
	var total int64
	for _, name := range n.names {
		total += n.layers[name].Ops()
	}
	return total
}
