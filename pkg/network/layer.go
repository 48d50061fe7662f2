package network

// Layer is one layer of a network. The set of implementations is closed:
// InputLayer, ConvLayer, FCLayer, PoolingLayer, and EltwiseLayer.
type Layer interface {
	// Ops returns the number of scalar operations for one input sample.
	Ops() int64
	// NumIfmaps returns the number of input feature maps the layer consumes.
	NumIfmaps() int
	// NumOfmaps returns the number of output feature maps the layer produces.
	NumOfmaps() int
	// LocalRegion reports whether the layer only combines neighboring values
	// of its input, which makes it a candidate for fusing onto its producer.
	LocalRegion() bool

	isLayer()
}

// Zero values for filter, stride, and region fields mean 1.

// InputLayer is the external input of a network. It performs no computation.
type InputLayer struct {
	Nofm int
	Sofm int
}

// ConvLayer is a 2-D convolution with square feature maps and filters.
type ConvLayer struct {
	Nifm int
	Nofm int
	Sofm int
	Sfil int
	Strd int
}

// FCLayer is a fully connected layer. Output feature maps are 1x1.
type FCLayer struct {
	Nifm int
	Nofm int
	Sfil int
}

// PoolingLayer pools a square region of each input feature map.
type PoolingLayer struct {
	Nofm int
	Sofm int
	Sreg int
	Strd int
}

// EltwiseLayer combines Nreg input feature maps element-wise.
type EltwiseLayer struct {
	Nofm int
	Sofm int
	Nreg int
}

func (l InputLayer) Ops() int64        { return 0 }
func (l InputLayer) NumIfmaps() int    { return l.Nofm }
func (l InputLayer) NumOfmaps() int    { return l.Nofm }
func (l InputLayer) LocalRegion() bool { return false }
func (l InputLayer) isLayer()          {}

func (l ConvLayer) Ops() int64 {
	return int64(l.Nifm) * int64(l.Nofm) * sq(l.Sofm) * sq(defaultOne(l.Sfil))
}
func (l ConvLayer) NumIfmaps() int    { return l.Nifm }
func (l ConvLayer) NumOfmaps() int    { return l.Nofm }
func (l ConvLayer) LocalRegion() bool { return false }
func (l ConvLayer) isLayer()          {}

func (l FCLayer) Ops() int64 {
	return int64(l.Nifm) * int64(l.Nofm) * sq(defaultOne(l.Sfil))
}
func (l FCLayer) NumIfmaps() int    { return l.Nifm }
func (l FCLayer) NumOfmaps() int    { return l.Nofm }
func (l FCLayer) LocalRegion() bool { return false }
func (l FCLayer) isLayer()          {}

func (l PoolingLayer) Ops() int64 {
	return int64(l.Nofm) * sq(l.Sofm) * sq(defaultOne(l.Sreg))
}
func (l PoolingLayer) NumIfmaps() int    { return l.Nofm }
func (l PoolingLayer) NumOfmaps() int    { return l.Nofm }
func (l PoolingLayer) LocalRegion() bool { return true }
func (l PoolingLayer) isLayer()          {}

func (l EltwiseLayer) Ops() int64 {
	return int64(l.Nofm) * sq(l.Sofm) * int64(defaultOne(l.Nreg))
}
func (l EltwiseLayer) NumIfmaps() int    { return l.Nofm }
func (l EltwiseLayer) NumOfmaps() int    { return l.Nofm }
func (l EltwiseLayer) LocalRegion() bool { return true }
func (l EltwiseLayer) isLayer()          {}

func sq(v int) int64 {
	return int64(v) * int64(v)
}

func defaultOne(v int) int {
	if v == 0 {
		return 1
	}
	return v
}
