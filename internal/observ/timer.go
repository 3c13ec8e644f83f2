package observ

import (
	"fmt"
	"io"
	"slices"
	"time"
)

// Phase is one timed step of a check session.
type Phase struct {
	Name    string
	Package string // empty for session-wide phases
	Start   time.Time
	Dur     time.Duration
}

// Timer records the phases of one session. A nil *Timer records nothing,
// so callers do not have to check whether timings were requested.
// Not safe for concurrent use; sessions are sequential.
type Timer struct {
	started time.Time
	phases  []Phase
}

func NewTimer() *Timer {
	return &Timer{started: time.Now(), phases: make([]Phase, 0, 16)}
}

// Begin starts a phase and returns the function that ends it.
func (t *Timer) Begin(name, pkg string) func() {
	if t == nil {
		return func() {}
	}
	t.phases = append(t.phases, Phase{Name: name, Package: pkg, Start: time.Now()})
	idx := len(t.phases) - 1
	return func() {
		p := &t.phases[idx]
		if p.Dur == 0 {
			p.Dur = time.Since(p.Start)
		}
	}
}

// PhaseReport is a phase prepared for printing and JSON output.
type PhaseReport struct {
	Name       string  `json:"name"`
	Package    string  `json:"package,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// Report сводка по сессии: фазы в порядке начала и время от создания таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	if t == nil || len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	for i, p := range t.phases {
		report.Phases[i] = PhaseReport{Name: p.Name, Package: p.Package, DurationMS: durationToMillis(p.Dur)}
	}
	report.TotalMS = durationToMillis(time.Since(t.started))
	return report
}

// Slowest returns the n longest package-level phases, longest first.
func (r Report) Slowest(n int) []PhaseReport {
	var out []PhaseReport
	for _, p := range r.Phases {
		if p.Package != "" {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b PhaseReport) int {
		switch {
		case a.DurationMS > b.DurationMS:
			return -1
		case a.DurationMS < b.DurationMS:
			return 1
		}
		return 0
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// WriteSummary prints the report as an aligned table.
func (r Report) WriteSummary(w io.Writer) {
	fmt.Fprintln(w, "timings:")
	for _, p := range r.Phases {
		name := p.Name
		if p.Package != "" {
			name += " " + p.Package
		}
		fmt.Fprintf(w, "  %-28s %8.2f ms\n", name, p.DurationMS)
	}
	fmt.Fprintf(w, "  %-28s %8.2f ms\n", "total", r.TotalMS)
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
