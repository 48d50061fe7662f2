package netdef

// ReportJSON is the output schema of a pipeline search run.
type ReportJSON struct {
	Network  string    `json:"network"`
	Layers   int       `json:"layers"`
	Vertices int       `json:"vertices"`
	Grid     CoordJSON `json:"grid"`

	Spatial  bool `json:"spatial"`
	Temporal bool `json:"temporal"`

	Candidates int `json:"candidates"`

	Top []CandidateJSON `json:"top"`
}

// CandidateJSON describes one candidate allocation, ranked by the CLI's
// balance proxy.
type CandidateJSON struct {
	Utilization float64     `json:"utilization"`
	Groups      []GroupJSON `json:"groups"`
}

// GroupJSON is one scheduling group of a candidate. All layers of a group
// run on the same processing region.
type GroupJSON struct {
	Layers []string `json:"layers"`
	Proc   string   `json:"proc"`
}
