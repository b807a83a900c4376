package acqopt

import "sync"

// Diagnostics accumulates statistics over many Optimize calls. The zero value
// is ready to use and safe for concurrent use.
type Diagnostics struct {
	mu           sync.Mutex
	calls        int
	specWinCount int
	fallbacks    int
	failures     int
}

// Record adds one result. A nil result is ignored.
func (d *Diagnostics) Record(res *Result) {
	if res == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if res.SpecifiedWon {
		d.specWinCount++
	}
	for _, c := range res.Candidates {
		if c.FellBack {
			d.fallbacks++
		}
	}
	d.failures += len(res.Failures)
}

// SpecWinCount is the number of recorded results won by the specified point.
func (d *Diagnostics) SpecWinCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.specWinCount
}

// Calls is the number of recorded results.
func (d *Diagnostics) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Fallbacks is the number of candidates that fell back to their anchor.
func (d *Diagnostics) Fallbacks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fallbacks
}

// Failures is the number of failed anchor runs.
func (d *Diagnostics) Failures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures
}
