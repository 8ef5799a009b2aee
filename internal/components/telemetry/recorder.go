package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call made against a Recorder.
type Report struct {
	Level  string
	ID     string
	Params []any
}

// Recorder implements API by keeping every report in memory, it is meant for tests that need
// to assert that a failure was surfaced to the operator.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(level, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Level: level, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

// Reports returns a copy of everything recorded so far.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Has returns true if a report of the given level exists whose id ends with idSuffix.
func (r *Recorder) Has(level, idSuffix string) bool {
	for _, rep := range r.Reports() {
		if rep.Level == level && strings.HasSuffix(rep.ID, idSuffix) {
			return true
		}
	}
	return false
}
