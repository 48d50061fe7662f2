// Package netdef reads and writes network and platform definitions as JSON,
// resolving local paths, http(s):// and gs:// URLs.
package netdef

import (
	"context"
	"encoding/json"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/gridflow/gridflow/pkg/blobs"
	"github.com/gridflow/gridflow/pkg/grid"
	"github.com/gridflow/gridflow/pkg/network"
)

// NetworkJSON is the on-disk form of a network definition.
type NetworkJSON struct {
	Name   string      `json:"name"`
	Input  InputJSON   `json:"input"`
	Layers []LayerJSON `json:"layers"`
}

type InputJSON struct {
	Nofm int `json:"nofm"`
	Sofm int `json:"sofm"`
}

// LayerJSON is one layer of a network definition. Type selects the layer
// kind; fields not used by the kind are omitted.
type LayerJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`

	Nifm int `json:"nifm,omitempty"`
	Nofm int `json:"nofm,omitempty"`
	Sofm int `json:"sofm,omitempty"`
	Sfil int `json:"sfil,omitempty"`
	Strd int `json:"strd,omitempty"`
	Sreg int `json:"sreg,omitempty"`
	Nreg int `json:"nreg,omitempty"`

	// Prevs lists the producing layers; empty means the layer right before
	// this one, and "__INPUT__" denotes the external input.
	Prevs []string `json:"prevs,omitempty"`
}

const (
	layerTypeConv    = "conv"
	layerTypeFC      = "fc"
	layerTypePooling = "pooling"
	layerTypeEltwise = "eltwise"
)

// ParseNetwork decodes and validates a network definition.
func ParseNetwork(data []byte) (*network.Network, error) {
	var def NetworkJSON
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing network definition: %w", err)
	}

	n := network.New(def.Name)
	if err := n.SetInput(network.InputLayer{Nofm: def.Input.Nofm, Sofm: def.Input.Sofm}); err != nil {
		return nil, fmt.Errorf("parsing network %q: %w", def.Name, err)
	}
	for _, l := range def.Layers {
		var layer network.Layer
		switch l.Type {
		case layerTypeConv:
			layer = network.ConvLayer{Nifm: l.Nifm, Nofm: l.Nofm, Sofm: l.Sofm, Sfil: l.Sfil, Strd: l.Strd}
		case layerTypeFC:
			layer = network.FCLayer{Nifm: l.Nifm, Nofm: l.Nofm, Sfil: l.Sfil}
		case layerTypePooling:
			layer = network.PoolingLayer{Nofm: l.Nofm, Sofm: l.Sofm, Sreg: l.Sreg, Strd: l.Strd}
		case layerTypeEltwise:
			layer = network.EltwiseLayer{Nofm: l.Nofm, Sofm: l.Sofm, Nreg: l.Nreg}
		default:
			return nil, fmt.Errorf("parsing network %q: layer %q has unknown type %q", def.Name, l.Name, l.Type)
		}
		if err := n.Add(l.Name, layer, l.Prevs...); err != nil {
			return nil, fmt.Errorf("parsing network %q: %w", def.Name, err)
		}
	}
	return n, nil
}

// MarshalNetwork encodes a network definition.
func MarshalNetwork(n *network.Network) ([]byte, error) {
	def := NetworkJSON{
		Name:  n.Name(),
		Input: InputJSON{Nofm: n.Input().Nofm, Sofm: n.Input().Sofm},
	}
	for _, name := range n.Layers() {
		l, _ := n.Layer(name)
		lj := LayerJSON{Name: name, Prevs: n.PrevLayers(name)}
		switch l := l.(type) {
		case network.ConvLayer:
			lj.Type = layerTypeConv
			lj.Nifm, lj.Nofm, lj.Sofm, lj.Sfil, lj.Strd = l.Nifm, l.Nofm, l.Sofm, l.Sfil, l.Strd
		case network.FCLayer:
			lj.Type = layerTypeFC
			lj.Nifm, lj.Nofm, lj.Sfil = l.Nifm, l.Nofm, l.Sfil
		case network.PoolingLayer:
			lj.Type = layerTypePooling
			lj.Nofm, lj.Sofm, lj.Sreg, lj.Strd = l.Nofm, l.Sofm, l.Sreg, l.Strd
		case network.EltwiseLayer:
			lj.Type = layerTypeEltwise
			lj.Nofm, lj.Sofm, lj.Nreg = l.Nofm, l.Sofm, l.Nreg
		default:
			return nil, fmt.Errorf("marshaling network %q: layer %q has unexpected type %T", n.Name(), name, l)
		}
		def.Layers = append(def.Layers, lj)
	}
	return json.MarshalIndent(&def, "", "  ")
}

// PlatformJSON is the on-disk form of a platform description. Region kinds
// are implied: proc is a processing region, src and dst are data regions.
type PlatformJSON struct {
	Proc     RegionJSON `json:"proc"`
	Src      RegionJSON `json:"src"`
	Dst      RegionJSON `json:"dst"`
	DimArray CoordJSON  `json:"dimArray"`
	SizeGbuf int64      `json:"sizeGbuf"`
	SizeRegf int64      `json:"sizeRegf"`
}

type RegionJSON struct {
	Origin CoordJSON `json:"origin"`
	Dim    CoordJSON `json:"dim"`
}

type CoordJSON struct {
	H int `json:"h"`
	W int `json:"w"`
}

func (r RegionJSON) toRegion(kind grid.RegionKind) grid.Region {
	return grid.Region{
		Origin: grid.Coord{H: r.Origin.H, W: r.Origin.W},
		Dim:    grid.Coord{H: r.Dim.H, W: r.Dim.W},
		Kind:   kind,
	}
}

func fromRegion(r grid.Region) RegionJSON {
	return RegionJSON{
		Origin: CoordJSON{H: r.Origin.H, W: r.Origin.W},
		Dim:    CoordJSON{H: r.Dim.H, W: r.Dim.W},
	}
}

// ParsePlatform decodes a platform description.
func ParsePlatform(data []byte) (grid.Resource, error) {
	var def PlatformJSON
	if err := json.Unmarshal(data, &def); err != nil {
		return grid.Resource{}, fmt.Errorf("parsing platform definition: %w", err)
	}
	return grid.Resource{
		Proc:     def.Proc.toRegion(grid.Proc),
		Src:      def.Src.toRegion(grid.Data),
		Dst:      def.Dst.toRegion(grid.Data),
		DimArray: grid.Coord{H: def.DimArray.H, W: def.DimArray.W},
		SizeGbuf: def.SizeGbuf,
		SizeRegf: def.SizeRegf,
	}, nil
}

// MarshalPlatform encodes a platform description.
func MarshalPlatform(res grid.Resource) ([]byte, error) {
	def := PlatformJSON{
		Proc:     fromRegion(res.Proc),
		Src:      fromRegion(res.Src),
		Dst:      fromRegion(res.Dst),
		DimArray: CoordJSON{H: res.DimArray.H, W: res.DimArray.W},
		SizeGbuf: res.SizeGbuf,
		SizeRegf: res.SizeRegf,
	}
	return json.MarshalIndent(&def, "", "  ")
}

// LoadNetwork fetches and parses the network definition at src.
func LoadNetwork(ctx context.Context, src string) (*network.Network, error) {
	log := klog.FromContext(ctx)

	data, err := blobs.ReaderFor(src).Fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetching network %q: %w", src, err)
	}
	n, err := ParseNetwork(data)
	if err != nil {
		return nil, fmt.Errorf("loading network %q: %w", src, err)
	}
	log.V(2).Info("loaded network", "source", src, "name", n.Name(), "layers", n.Len())
	return n, nil
}

// LoadPlatform fetches and parses the platform description at src.
func LoadPlatform(ctx context.Context, src string) (grid.Resource, error) {
	log := klog.FromContext(ctx)

	data, err := blobs.ReaderFor(src).Fetch(ctx, src)
	if err != nil {
		return grid.Resource{}, fmt.Errorf("fetching platform %q: %w", src, err)
	}
	res, err := ParsePlatform(data)
	if err != nil {
		return grid.Resource{}, fmt.Errorf("loading platform %q: %w", src, err)
	}
	log.V(2).Info("loaded platform", "source", src, "proc", res.Proc)
	return res, nil
}
