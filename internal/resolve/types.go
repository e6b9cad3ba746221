package resolve

// Output is the resolution emitted for one finding group. It is also the
// payload stored in the cache, so its JSON shape is part of the on-disk format.
type Output struct {
	Filename   string `json:"filename" yaml:"filename"`
	Pos        int    `json:"pos" yaml:"pos"`
	Message    string `json:"message" yaml:"message"`
	Resolution string `json:"resolution" yaml:"resolution"`
}

// Report is the result of one resolve run.
type Report struct {
	Tool    string   `json:"tool" yaml:"tool"`
	Version string   `json:"version" yaml:"version"`
	RunID   string   `json:"runId" yaml:"runId"`
	Targets []string `json:"targets,omitempty" yaml:"targets,omitempty"`
	Results []Output `json:"results" yaml:"results"`
	Summary Summary  `json:"summary" yaml:"summary"`
	Timing  Timing   `json:"timing" yaml:"timing"`
}

// Summary counts what happened to each group.
type Summary struct {
	Groups        int `json:"groups" yaml:"groups"`
	Hits          int `json:"hits" yaml:"hits"`
	Suppressed    int `json:"suppressed" yaml:"suppressed"`
	Resolved      int `json:"resolved" yaml:"resolved"`
	Unresolved    int `json:"unresolved" yaml:"unresolved"`
	Failed        int `json:"failed" yaml:"failed"`
	ResolverCalls int `json:"resolverCalls" yaml:"resolverCalls"`
}

// Timing records wall-clock durations in milliseconds.
type Timing struct {
	ResolverMs int64 `json:"resolverMs" yaml:"resolverMs"`
	TotalMs    int64 `json:"totalMs" yaml:"totalMs"`
}

// Status is the outcome of resolving a single group.
type Status string

const (
	StatusHit        Status = "hit"
	StatusSuppressed Status = "suppressed"
	StatusResolved   Status = "resolved"
	StatusUnresolved Status = "unresolved"
	StatusFailed     Status = "failed"
)

func (s *Summary) count(st Status) {
	switch st {
	case StatusHit:
		s.Hits++
	case StatusSuppressed:
		s.Suppressed++
	case StatusResolved:
		s.Resolved++
	case StatusUnresolved:
		s.Unresolved++
	case StatusFailed:
		s.Failed++
	}
}
