package campaign

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-outreach-driver/internal/leads"
	"lead-outreach-driver/internal/orchestrator"
)

func TestReconcile(t *testing.T) {
	eng := newFakeEngine()
	eng.procs["p1"] = &orchestrator.Process{
		LastStatus:   orchestrator.StatusCompleted,
		CurrentState: map[string]any{"final_status": "APPROVED"},
	}
	eng.procs["p2"] = &orchestrator.Process{
		LastStatus:   orchestrator.StatusCompleted,
		CurrentState: map[string]any{"final_status": "SKIPPED"},
	}
	eng.procs["p3"] = &orchestrator.Process{LastStatus: orchestrator.StatusCompleted, CurrentState: map[string]any{}}
	eng.fetchErrs["p4"] = errors.New("timeout")
	eng.procs["p5"] = &orchestrator.Process{LastStatus: orchestrator.StatusAborted}

	handles := []ProcessHandle{
		{Lead: leads.Lead{Name: "a"}, ProcessID: "p1"},
		{Lead: leads.Lead{Name: "b"}, ProcessID: "p2"},
		{Lead: leads.Lead{Name: "c"}, ProcessID: "p3"},
		{Lead: leads.Lead{Name: "d"}, ProcessID: "p4"},
		{Lead: leads.Lead{Name: "e"}, ProcessID: "p5"},
	}

	results := Reconcile(context.Background(), eng, handles)
	require.Len(t, results, 5)

	require.NotNil(t, results[0].Approved)
	assert.True(t, *results[0].Approved)
	assert.Equal(t, "APPROVED", results[0].Status)

	require.NotNil(t, results[1].Approved)
	assert.False(t, *results[1].Approved)
	assert.Equal(t, "SKIPPED", results[1].Status)

	assert.Nil(t, results[2].Approved)
	assert.Equal(t, "completed", results[2].Status)

	assert.Nil(t, results[3].Approved)
	assert.Contains(t, results[3].Status, "error (")
	assert.Contains(t, results[3].Status, "timeout")

	require.NotNil(t, results[4].Approved)
	assert.False(t, *results[4].Approved)
	assert.Equal(t, "aborted", results[4].Status)

	// Order follows the handle list.
	for i, want := range []string{"a", "b", "c", "d", "e"} {
		assert.Equal(t, want, results[i].Lead.Name)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	eng := newFakeEngine()
	eng.procs["p1"] = &orchestrator.Process{
		LastStatus:   orchestrator.StatusCompleted,
		CurrentState: map[string]any{"final_status": "APPROVED"},
	}
	handles := []ProcessHandle{{Lead: leads.Lead{Name: "a"}, ProcessID: "p1"}}

	first := Reconcile(context.Background(), eng, handles)
	second := Reconcile(context.Background(), eng, handles)
	assert.Equal(t, BuildReport(first), BuildReport(second))
}

func TestBuildReport_Summary(t *testing.T) {
	results := []Result{
		{Lead: leads.Lead{Name: "a"}, Approved: boolPtr(true), Status: "APPROVED"},
		{Lead: leads.Lead{Name: "b"}, Approved: boolPtr(false), Status: "SKIPPED"},
		{Lead: leads.Lead{Name: "c"}, Approved: nil, Status: "completed"},
		{Lead: leads.Lead{Name: "d"}, Approved: nil, Status: "error (timeout)"},
		{Lead: leads.Lead{Name: "e"}, Approved: nil, Status: "Network Error: refused"},
	}

	rep := BuildReport(results)
	assert.Equal(t, 5, rep.Summary.Total)
	assert.Equal(t, 1, rep.Summary.Approved)
	assert.Equal(t, 1, rep.Summary.Skipped)
	assert.Equal(t, 2, rep.Summary.Errors, "error substring match is case-insensitive")
}

func TestWriteCSV(t *testing.T) {
	rep := BuildReport([]Result{
		{Lead: leads.Lead{Name: "Acme", Email: "a@acme.com", Website: "acme.com"}, Approved: boolPtr(true), Status: "APPROVED"},
		{Lead: leads.Lead{Name: "Beta"}, Approved: nil, Status: "completed"},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rep))

	got := buf.String()
	assert.Contains(t, got, "Name,Email,Website,Approved?,Status")
	assert.Contains(t, got, "Acme,a@acme.com,acme.com,true,APPROVED")
	assert.Contains(t, got, "Beta,,,,completed")
}
