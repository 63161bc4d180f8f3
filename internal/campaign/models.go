package campaign

import (
	"context"
	"time"

	"lead-outreach-driver/internal/leads"
	"lead-outreach-driver/internal/orchestrator"
)

// Phase of the campaign session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseDone    Phase = "done"
)

// Result statuses written by the driver. APPROVED and SKIPPED mirror the
// engine's final_status vocabulary.
const (
	StatusUnknown = "unknown"
	StatusError   = "error"
)

// ProcessHandle ties a lead to its remote process. Created once a start
// succeeds, read-only afterwards; only a full reset destroys it.
type ProcessHandle struct {
	Lead      leads.Lead `json:"lead"`
	ProcessID string     `json:"process_id"`
}

// Result is the optimistic, locally-maintained outcome for one lead.
// Approved is tri-state: nil means the outcome is not determinable.
// The reconciler may later overwrite it with the authoritative value.
type Result struct {
	Lead     leads.Lead `json:"lead"`
	Approved *bool      `json:"approved"`
	Status   string     `json:"status"`
}

// Engine is the subset of the orchestrator client the driver depends on.
type Engine interface {
	Start(ctx context.Context, lead leads.Lead) (string, error)
	Fetch(ctx context.Context, pid string) (*orchestrator.Process, error)
	Resume(ctx context.Context, pid string, approved bool) error
	Abort(ctx context.Context, pid string) error
	WaitForCompletion(ctx context.Context, pid string, timeout, interval time.Duration) *orchestrator.Process
}

// Archiver persists a reconciled report. Optional; failures never stall the
// campaign.
type Archiver interface {
	SaveReport(ctx context.Context, rep Report) error
}

func boolPtr(b bool) *bool { return &b }

// derive computes (approved, status) from a process snapshot. The engine's
// explicit final_status marker always wins over last_status inference.
func derive(p *orchestrator.Process) (*bool, string) {
	switch p.FinalStatus() {
	case orchestrator.FinalApproved:
		return boolPtr(true), orchestrator.FinalApproved
	case orchestrator.FinalSkipped:
		return boolPtr(false), orchestrator.FinalSkipped
	}

	switch p.LastStatus {
	case orchestrator.StatusCompleted:
		// Terminal but the outcome is indeterminate.
		return nil, orchestrator.StatusCompleted
	case orchestrator.StatusFailed, orchestrator.StatusAborted:
		return boolPtr(false), p.LastStatus
	}

	if p.LastStatus == "" {
		return nil, StatusUnknown
	}
	return nil, p.LastStatus
}
