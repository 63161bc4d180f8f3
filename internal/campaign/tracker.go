package campaign

import "lead-outreach-driver/internal/leads"

// Tracker keeps the ordered handle and result lists index-aligned:
// results[i] always belongs to handles[i]. Entries are appended, padded or
// overwritten, never reordered or removed.
type Tracker struct {
	handles []ProcessHandle
	results []Result
}

func (t *Tracker) Append(h ProcessHandle) {
	t.handles = append(t.handles, h)
}

func (t *Tracker) Len() int { return len(t.handles) }

func (t *Tracker) HandleAt(i int) (ProcessHandle, bool) {
	if i < 0 || i >= len(t.handles) {
		return ProcessHandle{}, false
	}
	return t.handles[i], true
}

func (t *Tracker) LeadAt(i int) (leads.Lead, bool) {
	h, ok := t.HandleAt(i)
	return h.Lead, ok
}

// Handles returns a copy of the handle list.
func (t *Tracker) Handles() []ProcessHandle {
	return append([]ProcessHandle(nil), t.handles...)
}

// Results returns a copy of the result list.
func (t *Tracker) Results() []Result {
	return append([]Result(nil), t.results...)
}

// SetResult records the outcome for index i, padding any earlier missing
// slots with an unknown sentinel so alignment is never broken even when a
// result lands out of natural order.
func (t *Tracker) SetResult(i int, r Result) {
	if i < 0 || i >= len(t.handles) {
		return
	}
	for len(t.results) < i {
		lead, _ := t.LeadAt(len(t.results))
		t.results = append(t.results, Result{Lead: lead, Approved: nil, Status: StatusUnknown})
	}
	if len(t.results) == i {
		t.results = append(t.results, r)
		return
	}
	t.results[i] = r
}

// SetResults replaces the whole result list (reconciler overwrite).
func (t *Tracker) SetResults(rs []Result) {
	t.results = append([]Result(nil), rs...)
}

func (t *Tracker) Reset() {
	t.handles = nil
	t.results = nil
}
