// Package nets holds built-in example networks for tests and the CLI.
package nets

import (
	"github.com/gridflow/gridflow/pkg/network"
)

// MLP is a small four-FC chain with one pooling layer fused onto the second
// FC. Its vertex op totals come out to 200, 630, 1200, 2000, which makes
// allocation arithmetic easy to check by hand.
func MLP() *network.Network {
	n := network.New("mlp")
	if err := n.SetInput(network.InputLayer{Nofm: 10, Sofm: 1}); err != nil {
		panic(err)
	}
	n.MustAdd("fc1", network.FCLayer{Nifm: 10, Nofm: 20})
	n.MustAdd("fc2", network.FCLayer{Nifm: 20, Nofm: 30})
	n.MustAdd("fc2p", network.PoolingLayer{Nofm: 30, Sofm: 1, Sreg: 1})
	n.MustAdd("fc3", network.FCLayer{Nifm: 30, Nofm: 40})
	n.MustAdd("fc4", network.FCLayer{Nifm: 40, Nofm: 50})
	return n
}

// AlexNet is the 2012 ImageNet network, grouping ignored. Pools fuse onto
// their producing convs, leaving 8 vertices.
func AlexNet() *network.Network {
	n := network.New("alexnet")
	if err := n.SetInput(network.InputLayer{Nofm: 3, Sofm: 227}); err != nil {
		panic(err)
	}
	n.MustAdd("conv1", network.ConvLayer{Nifm: 3, Nofm: 96, Sofm: 55, Sfil: 11, Strd: 4})
	n.MustAdd("pool1", network.PoolingLayer{Nofm: 96, Sofm: 27, Sreg: 3, Strd: 2})
	n.MustAdd("conv2", network.ConvLayer{Nifm: 96, Nofm: 256, Sofm: 27, Sfil: 5})
	n.MustAdd("pool2", network.PoolingLayer{Nofm: 256, Sofm: 13, Sreg: 3, Strd: 2})
	n.MustAdd("conv3", network.ConvLayer{Nifm: 256, Nofm: 384, Sofm: 13, Sfil: 3})
	n.MustAdd("conv4", network.ConvLayer{Nifm: 384, Nofm: 384, Sofm: 13, Sfil: 3})
	n.MustAdd("conv5", network.ConvLayer{Nifm: 384, Nofm: 256, Sofm: 13, Sfil: 3})
	n.MustAdd("pool5", network.PoolingLayer{Nofm: 256, Sofm: 6, Sreg: 3, Strd: 2})
	n.MustAdd("fc6", network.FCLayer{Nifm: 256, Nofm: 4096, Sfil: 6})
	n.MustAdd("fc7", network.FCLayer{Nifm: 4096, Nofm: 4096})
	n.MustAdd("fc8", network.FCLayer{Nifm: 4096, Nofm: 1000})
	return n
}

// ZFNet is the ZF-style refinement of AlexNet. Pools fuse onto their
// producing convs, leaving 8 vertices.
func ZFNet() *network.Network {
	n := network.New("zfnet")
	if err := n.SetInput(network.InputLayer{Nofm: 3, Sofm: 224}); err != nil {
		panic(err)
	}
	n.MustAdd("conv1", network.ConvLayer{Nifm: 3, Nofm: 96, Sofm: 110, Sfil: 7, Strd: 2})
	n.MustAdd("pool1", network.PoolingLayer{Nofm: 96, Sofm: 55, Sreg: 3, Strd: 2})
	n.MustAdd("conv2", network.ConvLayer{Nifm: 96, Nofm: 256, Sofm: 26, Sfil: 5, Strd: 2})
	n.MustAdd("pool2", network.PoolingLayer{Nofm: 256, Sofm: 13, Sreg: 3, Strd: 2})
	n.MustAdd("conv3", network.ConvLayer{Nifm: 256, Nofm: 384, Sofm: 13, Sfil: 3})
	n.MustAdd("conv4", network.ConvLayer{Nifm: 384, Nofm: 384, Sofm: 13, Sfil: 3})
	n.MustAdd("conv5", network.ConvLayer{Nifm: 384, Nofm: 256, Sofm: 13, Sfil: 3})
	n.MustAdd("pool5", network.PoolingLayer{Nofm: 256, Sofm: 6, Sreg: 3, Strd: 2})
	n.MustAdd("fc6", network.FCLayer{Nifm: 256, Nofm: 4096, Sfil: 6})
	n.MustAdd("fc7", network.FCLayer{Nifm: 4096, Nofm: 4096})
	n.MustAdd("fc8", network.FCLayer{Nifm: 4096, Nofm: 1000})
	return n
}

// VGG16 is the 16-weight-layer VGG configuration. Each of the five pools
// fuses onto the conv before it, leaving 16 vertices.
func VGG16() *network.Network {
	n := network.New("vgg16")
	if err := n.SetInput(network.InputLayer{Nofm: 3, Sofm: 224}); err != nil {
		panic(err)
	}
	n.MustAdd("conv1_1", network.ConvLayer{Nifm: 3, Nofm: 64, Sofm: 224, Sfil: 3})
	n.MustAdd("conv1_2", network.ConvLayer{Nifm: 64, Nofm: 64, Sofm: 224, Sfil: 3})
	n.MustAdd("pool1", network.PoolingLayer{Nofm: 64, Sofm: 112, Sreg: 2, Strd: 2})
	n.MustAdd("conv2_1", network.ConvLayer{Nifm: 64, Nofm: 128, Sofm: 112, Sfil: 3})
	n.MustAdd("conv2_2", network.ConvLayer{Nifm: 128, Nofm: 128, Sofm: 112, Sfil: 3})
	n.MustAdd("pool2", network.PoolingLayer{Nofm: 128, Sofm: 56, Sreg: 2, Strd: 2})
	n.MustAdd("conv3_1", network.ConvLayer{Nifm: 128, Nofm: 256, Sofm: 56, Sfil: 3})
	n.MustAdd("conv3_2", network.ConvLayer{Nifm: 256, Nofm: 256, Sofm: 56, Sfil: 3})
	n.MustAdd("conv3_3", network.ConvLayer{Nifm: 256, Nofm: 256, Sofm: 56, Sfil: 3})
	n.MustAdd("pool3", network.PoolingLayer{Nofm: 256, Sofm: 28, Sreg: 2, Strd: 2})
	n.MustAdd("conv4_1", network.ConvLayer{Nifm: 256, Nofm: 512, Sofm: 28, Sfil: 3})
	n.MustAdd("conv4_2", network.ConvLayer{Nifm: 512, Nofm: 512, Sofm: 28, Sfil: 3})
	n.MustAdd("conv4_3", network.ConvLayer{Nifm: 512, Nofm: 512, Sofm: 28, Sfil: 3})
	n.MustAdd("pool4", network.PoolingLayer{Nofm: 512, Sofm: 14, Sreg: 2, Strd: 2})
	n.MustAdd("conv5_1", network.ConvLayer{Nifm: 512, Nofm: 512, Sofm: 14, Sfil: 3})
	n.MustAdd("conv5_2", network.ConvLayer{Nifm: 512, Nofm: 512, Sofm: 14, Sfil: 3})
	n.MustAdd("conv5_3", network.ConvLayer{Nifm: 512, Nofm: 512, Sofm: 14, Sfil: 3})
	n.MustAdd("pool5", network.PoolingLayer{Nofm: 512, Sofm: 7, Sreg: 2, Strd: 2})
	n.MustAdd("fc6", network.FCLayer{Nifm: 512, Nofm: 4096, Sfil: 7})
	n.MustAdd("fc7", network.FCLayer{Nifm: 4096, Nofm: 4096})
	n.MustAdd("fc8", network.FCLayer{Nifm: 4096, Nofm: 1000})
	return n
}

var registry = []struct {
	name string
	ctor func() *network.Network
}{
	{"mlp", MLP},
	{"alexnet", AlexNet},
	{"zfnet", ZFNet},
	{"vgg16", VGG16},
}

// ByName builds the named built-in network.
func ByName(name string) (*network.Network, bool) {
	for _, e := range registry {
		if e.name == name {
			return e.ctor(), true
		}
	}
	return nil, false
}

// Names returns the built-in network names in registry order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for _, e := range registry {
		out = append(out, e.name)
	}
	return out
}
