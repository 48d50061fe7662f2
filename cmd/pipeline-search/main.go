package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"k8s.io/klog/v2"

	"github.com/gridflow/gridflow/pkg/blobs"
	"github.com/gridflow/gridflow/pkg/grid"
	"github.com/gridflow/gridflow/pkg/netdef"
	"github.com/gridflow/gridflow/pkg/nets"
	"github.com/gridflow/gridflow/pkg/pipeline"
)

func main() {
	ctx := context.Background()
	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	networkFlag := "mlp"
	platformFlag := ""
	spatial := false
	temporal := false
	maxUtilDrop := pipeline.DefaultMaxUtilDrop
	workers := runtime.GOMAXPROCS(0)
	out := "-"
	top := 10

	flag.StringVar(&networkFlag, "network", networkFlag, "built-in network name, file path, or gs://, http(s):// URL")
	flag.StringVar(&platformFlag, "platform", platformFlag, "platform description path or URL; empty for the built-in 8x8 grid")
	flag.BoolVar(&spatial, "spatial", spatial, "generate spatial pipelining candidates")
	flag.BoolVar(&temporal, "temporal", temporal, "generate temporal pipelining candidates")
	flag.Float64Var(&maxUtilDrop, "max-util-drop", maxUtilDrop, "tolerated utilization loss of a spatial allocation")
	flag.IntVar(&workers, "workers", workers, "candidate evaluation workers")
	flag.StringVar(&out, "out", out, "report destination, - for stdout")
	flag.IntVar(&top, "top", top, "candidates listed in the report")
	klog.InitFlags(nil)
	flag.Parse()

	log := klog.FromContext(ctx)

	net, ok := nets.ByName(networkFlag)
	if !ok {
		var err error
		net, err = netdef.LoadNetwork(ctx, networkFlag)
		if err != nil {
			return err
		}
	}

	res := defaultPlatform()
	if platformFlag != "" {
		var err error
		res, err = netdef.LoadPlatform(ctx, platformFlag)
		if err != nil {
			return err
		}
	}

	p, err := pipeline.New(net, res)
	if err != nil {
		return err
	}
	log.Info("built pipeline", "network", net.Name(), "layers", net.Len(),
		"vertices", p.NumVertices(), "grid", res.Proc.Dim, "totalOps", net.TotalOps())

	opts := pipeline.Options{SpatialPipelining: spatial, TemporalPipelining: temporal}
	var candidates []*pipeline.SegmentAllocation
	for it := p.Allocations(opts, maxUtilDrop); it.Next(); {
		candidates = append(candidates, it.Allocation())
	}
	log.Info("generated candidates", "count", len(candidates))

	scores := evaluate(p, candidates, workers)

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := order[a], order[b]
		if scores[ca] != scores[cb] {
			return scores[ca] > scores[cb]
		}
		return len(candidates[ca].Layers) < len(candidates[cb].Layers)
	})

	report := &netdef.ReportJSON{
		Network:    net.Name(),
		Layers:     net.Len(),
		Vertices:   p.NumVertices(),
		Grid:       netdef.CoordJSON{H: res.Proc.Dim.H, W: res.Proc.Dim.W},
		Spatial:    spatial,
		Temporal:   temporal,
		Candidates: len(candidates),
	}
	for _, i := range order {
		if len(report.Top) >= top {
			break
		}
		c := netdef.CandidateJSON{Utilization: scores[i]}
		for g := range candidates[i].Layers {
			c.Groups = append(c.Groups, netdef.GroupJSON{
				Layers: candidates[i].Layers[g],
				Proc:   candidates[i].Resources[g][0].Proc.String(),
			})
		}
		report.Top = append(report.Top, c)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	data = append(data, '\n')

	if out == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	writer, err := blobs.WriterFor(out)
	if err != nil {
		return err
	}
	if err := writer.Store(ctx, out, data); err != nil {
		return fmt.Errorf("storing report: %w", err)
	}
	log.Info("wrote report", "destination", out, "bytes", len(data))
	return nil
}

// defaultPlatform is an 8x8 processing grid with an 8-node memory row,
// 16x16 PE arrays, a 64 KiB global buffer per node and 64 B register files.
func defaultPlatform() grid.Resource {
	return grid.Resource{
		Proc:     grid.Region{Dim: grid.Coord{H: 8, W: 8}, Kind: grid.Proc},
		Src:      grid.Region{Origin: grid.Coord{H: 8, W: 0}, Dim: grid.Coord{H: 1, W: 8}, Kind: grid.Data},
		Dst:      grid.Region{Origin: grid.Coord{H: 8, W: 0}, Dim: grid.Coord{H: 1, W: 8}, Kind: grid.Data},
		DimArray: grid.Coord{H: 16, W: 16},
		SizeGbuf: 64 * 1024,
		SizeRegf: 64,
	}
}

// evaluate scores each candidate with a balance proxy across a worker pool:
// the pipeline span is the slowest group's ops per node, and the score is
// total candidate ops over span times grid size. The real cost model is the
// caller's business; this ranking only orders the report.
func evaluate(p *pipeline.Pipeline, candidates []*pipeline.SegmentAllocation, workers int) []float64 {
	if workers < 1 {
		workers = 1
	}
	scores := make([]float64, len(candidates))
	totalNodes := p.Resource().Proc.NodeCount()

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				scores[i] = balanceScore(p, candidates[i], totalNodes)
			}
		}()
	}
	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return scores
}

func balanceScore(p *pipeline.Pipeline, alloc *pipeline.SegmentAllocation, totalNodes int) float64 {
	net := p.Network()

	var span float64
	var totalOps int64
	for g := range alloc.Layers {
		var groupOps int64
		for _, name := range alloc.Layers[g] {
			l, ok := net.Layer(name)
			if !ok {
				panic(fmt.Sprintf("allocation references unknown layer %q", name))
			}
			groupOps += l.Ops()
		}
		totalOps += groupOps
		t := float64(groupOps) / float64(alloc.Resources[g][0].Proc.NodeCount())
		if t > span {
			span = t
		}
	}
	if span == 0 {
		return 1
	}
	return float64(totalOps) / (span * float64(totalNodes))
}
