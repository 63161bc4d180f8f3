package orchestrator

// Status values reported by the engine in last_status. Anything the engine
// sends outside this set is treated like running.
const (
	StatusRunning   = "running"
	StatusSuspended = "suspended"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusAborted   = "aborted"
)

// Decision markers the workflow writes into current_state.final_status.
const (
	FinalApproved = "APPROVED"
	FinalSkipped  = "SKIPPED"
)

// Process is the engine's view of one workflow instance.
type Process struct {
	LastStatus   string         `json:"last_status"`
	Form         map[string]any `json:"form"`
	CurrentState map[string]any `json:"current_state"`
}

// Terminal reports whether the process can make no further progress.
func (p *Process) Terminal() bool {
	switch p.LastStatus {
	case StatusCompleted, StatusFailed, StatusAborted:
		return true
	}
	return false
}

// AwaitingInput reports whether the process is suspended on a form.
func (p *Process) AwaitingInput() bool {
	return p.LastStatus == StatusSuspended && len(p.Form) > 0
}

// FinalStatus returns the engine-recorded decision marker, or "" when the
// workflow has not recorded one. The marker is authoritative over last_status.
func (p *Process) FinalStatus() string {
	if p.CurrentState == nil {
		return ""
	}
	s, _ := p.CurrentState["final_status"].(string)
	return s
}

// ScrapedContext returns the review context the workflow gathered, if any.
func (p *Process) ScrapedContext() string {
	if p.CurrentState == nil {
		return ""
	}
	s, _ := p.CurrentState["scraped_context"].(string)
	return s
}
