package campaign

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lead-outreach-driver/internal/leads"
	"lead-outreach-driver/internal/observability"
	"lead-outreach-driver/internal/orchestrator"
)

var (
	// ErrStartFailure means zero leads could be started; the campaign never
	// left IDLE.
	ErrStartFailure = errors.New("failed to start any workflows")

	ErrCampaignActive = errors.New("campaign already active")
	ErrNotRunning     = errors.New("no campaign running")
	ErrNotDone        = errors.New("campaign not complete")
)

// StartError records one lead that failed to start. Start errors are
// surfaced to the caller but never block the remaining leads.
type StartError struct {
	Lead leads.Lead `json:"lead"`
	Err  string     `json:"error"`
}

// StartOutcome summarizes the IDLE -> RUNNING transition.
type StartOutcome struct {
	Started int          `json:"started"`
	Errors  []StartError `json:"errors,omitempty"`
}

// TickState classifies what one driver step observed.
type TickState string

const (
	TickIdle             TickState = "idle"
	TickDone             TickState = "done"
	TickAwaitingDecision TickState = "awaiting_decision"
	TickAdvanced         TickState = "advanced"
	TickStillRunning     TickState = "still_running"
	TickFetchError       TickState = "fetch_error"
	// TickSuperseded means the campaign was reset or advanced elsewhere
	// while this step's fetch was in flight; its observation was discarded.
	TickSuperseded TickState = "superseded"
)

// Tick is the outcome of one RUNNING step over the current lead.
type Tick struct {
	State      TickState  `json:"state"`
	Lead       leads.Lead `json:"lead"`
	ProcessID  string     `json:"process_id,omitempty"`
	LastStatus string     `json:"last_status,omitempty"`
	Status     string     `json:"status,omitempty"`  // derived result status on advance
	Context    string     `json:"context,omitempty"` // scraped review context while awaiting a decision
	Err        string     `json:"error,omitempty"`
}

// Progress is the campaign view consumed by the presentation layer.
type Progress struct {
	Phase       Phase        `json:"phase"`
	Total       int          `json:"total"`
	Cursor      int          `json:"cursor"`
	CurrentLead *leads.Lead  `json:"current_lead,omitempty"`
	StartErrors []StartError `json:"start_errors,omitempty"`
	Results     []Result     `json:"results"`
	LastTick    Tick         `json:"last_tick"`
}

// Options tune the best-effort wait after a resume.
type Options struct {
	PollAfterResume bool
	PollTimeout     time.Duration
	PollInterval    time.Duration
}

// Driver sequences a batch of leads through start -> await-decision ->
// resume -> terminal against the remote engine. It owns the campaign state;
// every mutation goes through its lock. Remote calls happen outside the lock
// with a generation guard so a reset during a call can never corrupt state.
type Driver struct {
	engine  Engine
	opts    Options
	archive Archiver

	mu        sync.Mutex
	tracker   Tracker
	cursor    int
	phase     Phase
	gen       uint64
	startErrs []StartError
	lastTick  Tick
	archived  bool
}

func New(engine Engine, opts Options) *Driver {
	return &Driver{engine: engine, opts: opts, phase: PhaseIdle, lastTick: Tick{State: TickIdle}}
}

// SetArchiver enables report persistence at campaign completion.
func (d *Driver) SetArchiver(a Archiver) { d.archive = a }

// StartCampaign starts one remote process per lead, in input order. Leads
// that fail to start are recorded and skipped over. The campaign moves to
// RUNNING iff at least one process started; otherwise it stays IDLE and
// ErrStartFailure is returned alongside the per-lead errors.
func (d *Driver) StartCampaign(ctx context.Context, ls []leads.Lead) (StartOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.phase != PhaseIdle {
		return StartOutcome{}, ErrCampaignActive
	}

	d.tracker.Reset()
	var out StartOutcome
	for _, l := range ls {
		l = l.Trimmed()
		pid, err := d.engine.Start(ctx, l)
		if err != nil {
			log.Warn().Err(err).Str("lead", l.Name).Msg("workflow start failed")
			observability.StartErrors.Inc()
			out.Errors = append(out.Errors, StartError{Lead: l, Err: err.Error()})
			continue
		}
		d.tracker.Append(ProcessHandle{Lead: l, ProcessID: pid})
		observability.ProcessesStarted.Inc()
		out.Started++
	}

	if out.Started == 0 {
		d.tracker.Reset()
		return out, ErrStartFailure
	}

	d.gen++
	d.cursor = 0
	d.phase = PhaseRunning
	d.startErrs = out.Errors
	d.lastTick = Tick{State: TickStillRunning}
	d.archived = false
	log.Info().Int("started", out.Started).Int("failed", len(out.Errors)).Msg("campaign started")
	return out, nil
}

// Tick performs one step over the current lead and reports what it saw.
// Fetch errors do not advance the cursor; the caller may retry on the next
// tick or skip manually via SkipCurrent.
func (d *Driver) Tick(ctx context.Context) Tick {
	d.mu.Lock()
	switch d.phase {
	case PhaseIdle:
		d.mu.Unlock()
		return Tick{State: TickIdle}
	case PhaseDone:
		d.mu.Unlock()
		return Tick{State: TickDone}
	case PhaseRunning:
		// fall through
	default:
		// Unrecognized phase is corruption; force-reset.
		log.Warn().Str("phase", string(d.phase)).Msg("unknown campaign phase, resetting")
		d.resetLocked()
		d.mu.Unlock()
		return Tick{State: TickIdle}
	}

	if d.cursor >= d.tracker.Len() {
		d.finishLocked()
		d.mu.Unlock()
		return Tick{State: TickDone}
	}

	h, _ := d.tracker.HandleAt(d.cursor)
	cur, gen := d.cursor, d.gen
	d.mu.Unlock()

	p, err := d.engine.Fetch(ctx, h.ProcessID)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen || d.cursor != cur || d.phase != PhaseRunning {
		return Tick{State: TickSuperseded}
	}

	tick := Tick{Lead: h.Lead, ProcessID: h.ProcessID}
	switch {
	case err != nil:
		tick.State = TickFetchError
		tick.Err = err.Error()
	case p.AwaitingInput():
		tick.State = TickAwaitingDecision
		tick.LastStatus = p.LastStatus
		tick.Context = p.ScrapedContext()
	case p.Terminal():
		approved, status := derive(p)
		d.tracker.SetResult(cur, Result{Lead: h.Lead, Approved: approved, Status: status})
		observability.DecisionsRecorded.WithLabelValues(status).Inc()
		d.cursor++
		tick.State = TickAdvanced
		tick.LastStatus = p.LastStatus
		tick.Status = status
		log.Info().Str("lead", h.Lead.Name).Str("status", status).Msg("lead reached terminal state")
		if d.cursor >= d.tracker.Len() {
			d.finishLocked()
		}
	default:
		tick.State = TickStillRunning
		tick.LastStatus = p.LastStatus
	}
	d.lastTick = tick
	return tick
}

// Decide resumes the current suspended lead with the reviewer's choice. On
// success it optionally waits (bounded, best-effort, outcome discarded) for
// the process to leave running/suspended, records the optimistic result and
// advances. A resume error leaves the cursor in place so the lead stays
// under review.
func (d *Driver) Decide(ctx context.Context, approved bool) error {
	d.mu.Lock()
	if d.phase != PhaseRunning || d.cursor >= d.tracker.Len() {
		d.mu.Unlock()
		return ErrNotRunning
	}
	h, _ := d.tracker.HandleAt(d.cursor)
	cur, gen := d.cursor, d.gen
	d.mu.Unlock()

	if err := d.engine.Resume(ctx, h.ProcessID, approved); err != nil {
		log.Error().Err(err).Str("process_id", h.ProcessID).Msg("resume failed")
		return err
	}

	if d.opts.PollAfterResume {
		// Outcome discarded; the reconciler re-fetches at campaign end.
		_ = d.engine.WaitForCompletion(ctx, h.ProcessID, d.opts.PollTimeout, d.opts.PollInterval)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen || d.cursor != cur || d.phase != PhaseRunning {
		return nil
	}

	r := Result{Lead: h.Lead, Approved: boolPtr(approved)}
	if approved {
		r.Status = orchestrator.FinalApproved
	} else {
		r.Status = orchestrator.FinalSkipped
	}
	d.tracker.SetResult(cur, r)
	observability.DecisionsRecorded.WithLabelValues(r.Status).Inc()
	d.cursor++
	log.Info().Str("lead", h.Lead.Name).Bool("approved", approved).Msg("decision recorded")
	if d.cursor >= d.tracker.Len() {
		d.finishLocked()
	}
	return nil
}

// SkipCurrent records an error result for the current lead and advances.
// Manual escape hatch after a fetch error.
func (d *Driver) SkipCurrent() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != PhaseRunning || d.cursor >= d.tracker.Len() {
		return ErrNotRunning
	}
	lead, _ := d.tracker.LeadAt(d.cursor)
	d.tracker.SetResult(d.cursor, Result{Lead: lead, Approved: nil, Status: StatusError})
	observability.DecisionsRecorded.WithLabelValues(StatusError).Inc()
	d.cursor++
	log.Info().Str("lead", lead.Name).Msg("lead skipped after fetch error")
	if d.cursor >= d.tracker.Len() {
		d.finishLocked()
	}
	return nil
}

// CancelAll aborts every tracked process and resets to IDLE. Aborts are
// advisory cleanup: individual failures are logged and ignored.
func (d *Driver) CancelAll(ctx context.Context) {
	d.mu.Lock()
	handles := d.tracker.Handles()
	d.mu.Unlock()

	for _, h := range handles {
		if err := d.engine.Abort(ctx, h.ProcessID); err != nil {
			log.Warn().Err(err).Str("process_id", h.ProcessID).Msg("abort failed, continuing")
		}
	}
	d.Reset()
}

// Reset clears all campaign state and returns to IDLE.
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *Driver) resetLocked() {
	d.gen++
	d.tracker.Reset()
	d.cursor = 0
	d.phase = PhaseIdle
	d.startErrs = nil
	d.lastTick = Tick{State: TickIdle}
	d.archived = false
	log.Info().Msg("campaign reset")
}

func (d *Driver) finishLocked() {
	if d.phase == PhaseDone {
		return
	}
	d.phase = PhaseDone
	log.Info().Int("leads", d.tracker.Len()).Msg("all leads processed")
}

// Progress returns a snapshot of the campaign for display.
func (d *Driver) Progress() Progress {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := Progress{
		Phase:       d.phase,
		Total:       d.tracker.Len(),
		Cursor:      d.cursor,
		StartErrors: append([]StartError(nil), d.startErrs...),
		Results:     d.tracker.Results(),
		LastTick:    d.lastTick,
	}
	if d.phase == PhaseRunning {
		if lead, ok := d.tracker.LeadAt(d.cursor); ok {
			p.CurrentLead = &lead
		}
	}
	return p
}

// Report reconciles against the engine and returns the authoritative report.
// Only valid once the campaign is DONE. The local results are overwritten
// with the reconciled values; the engine is the source of truth at the end.
func (d *Driver) Report(ctx context.Context) (Report, error) {
	d.mu.Lock()
	if d.phase != PhaseDone {
		d.mu.Unlock()
		return Report{}, ErrNotDone
	}
	handles := d.tracker.Handles()
	gen := d.gen
	d.mu.Unlock()

	results := Reconcile(ctx, d.engine, handles)

	d.mu.Lock()
	if d.gen == gen {
		d.tracker.SetResults(results)
	}
	d.mu.Unlock()
	return BuildReport(results), nil
}

// Run drives the campaign on a fixed interval until ctx is cancelled.
// Terminal and still-running processes progress without external calls;
// suspended leads wait for a Decide from the presentation layer.
func (d *Driver) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("campaign loop stopped")
			return
		case <-ticker.C:
			d.step(ctx)
		}
	}
}

func (d *Driver) step(ctx context.Context) {
	d.mu.Lock()
	phase, archived := d.phase, d.archived
	d.mu.Unlock()

	switch phase {
	case PhaseRunning:
		if t := d.Tick(ctx); t.State == TickFetchError {
			log.Warn().Str("process_id", t.ProcessID).Str("error", t.Err).Msg("fetch failed, will retry next tick")
		}
	case PhaseDone:
		if !archived {
			d.finalize(ctx)
		}
	}
}

// finalize runs the reconciler once after the DONE transition and hands the
// report to the archiver if one is configured.
func (d *Driver) finalize(ctx context.Context) {
	d.mu.Lock()
	if d.phase != PhaseDone || d.archived {
		d.mu.Unlock()
		return
	}
	handles := d.tracker.Handles()
	gen := d.gen
	d.mu.Unlock()

	results := Reconcile(ctx, d.engine, handles)
	rep := BuildReport(results)

	d.mu.Lock()
	if d.gen != gen {
		d.mu.Unlock()
		return
	}
	d.tracker.SetResults(results)
	d.archived = true
	d.mu.Unlock()

	log.Info().
		Int("total", rep.Summary.Total).
		Int("approved", rep.Summary.Approved).
		Int("skipped", rep.Summary.Skipped).
		Int("errors", rep.Summary.Errors).
		Msg("campaign reconciled")

	if d.archive != nil {
		if err := d.archive.SaveReport(ctx, rep); err != nil {
			log.Error().Err(err).Msg("report archive failed")
		}
	}
}
