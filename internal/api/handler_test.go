package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-outreach-driver/internal/campaign"
	"lead-outreach-driver/internal/leads"
	"lead-outreach-driver/internal/orchestrator"
)

type fakeEngine struct {
	nextID   int
	procs    map[string]*orchestrator.Process
	startErr error
	aborted  int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{procs: map[string]*orchestrator.Process{}}
}

func (f *fakeEngine) Start(_ context.Context, _ leads.Lead) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.nextID++
	pid := fmt.Sprintf("p%d", f.nextID)
	if _, ok := f.procs[pid]; !ok {
		f.procs[pid] = &orchestrator.Process{LastStatus: orchestrator.StatusRunning}
	}
	return pid, nil
}

func (f *fakeEngine) Fetch(_ context.Context, pid string) (*orchestrator.Process, error) {
	p, ok := f.procs[pid]
	if !ok {
		return nil, errors.New("unknown process")
	}
	return p, nil
}

func (f *fakeEngine) Resume(_ context.Context, pid string, _ bool) error { return nil }

func (f *fakeEngine) Abort(_ context.Context, _ string) error {
	f.aborted++
	return nil
}

func (f *fakeEngine) WaitForCompletion(_ context.Context, pid string, _, _ time.Duration) *orchestrator.Process {
	return f.procs[pid]
}

func newTestAPI(eng campaign.Engine) (http.Handler, *campaign.Driver) {
	d := campaign.New(eng, campaign.Options{})
	return Router(NewCampaignHandler(d)), d
}

func doReq(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestStartEndpoint(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		startErr    error
		wantStatus  int
	}{
		{
			name:        "json leads",
			contentType: "application/json",
			body:        `{"leads":[{"name":"Acme","email":"a@acme.com","website":"acme.com"}]}`,
			wantStatus:  http.StatusCreated,
		},
		{
			name:        "csv leads",
			contentType: "text/csv",
			body:        "name,email,website\nAcme,a@acme.com,acme.com\n",
			wantStatus:  http.StatusCreated,
		},
		{
			name:        "csv missing column",
			contentType: "text/csv",
			body:        "name,email\nAcme,a@acme.com\n",
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "empty json batch",
			contentType: "application/json",
			body:        `{"leads":[]}`,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "engine down",
			contentType: "application/json",
			body:        `{"leads":[{"name":"Acme"}]}`,
			startErr:    errors.New("connection refused"),
			wantStatus:  http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newFakeEngine()
			eng.startErr = tt.startErr
			h, _ := newTestAPI(eng)

			w := doReq(t, h, http.MethodPost, "/v1/campaign/start", tt.contentType, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestStartEndpoint_ConflictWhenActive(t *testing.T) {
	eng := newFakeEngine()
	h, _ := newTestAPI(eng)
	body := `{"leads":[{"name":"Acme"}]}`

	w := doReq(t, h, http.MethodPost, "/v1/campaign/start", "application/json", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doReq(t, h, http.MethodPost, "/v1/campaign/start", "application/json", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStatusAndApproveFlow(t *testing.T) {
	eng := newFakeEngine()
	h, _ := newTestAPI(eng)

	w := doReq(t, h, http.MethodPost, "/v1/campaign/start", "application/json",
		`{"leads":[{"name":"Acme","email":"a@acme.com","website":"acme.com"}]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	eng.procs["p1"] = &orchestrator.Process{
		LastStatus: orchestrator.StatusSuspended,
		Form:       map[string]any{"fields": []any{"approved"}},
	}

	w = doReq(t, h, http.MethodGet, "/v1/campaign/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var prog campaign.Progress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prog))
	assert.Equal(t, campaign.PhaseRunning, prog.Phase)
	assert.Equal(t, campaign.TickAwaitingDecision, prog.LastTick.State)
	require.NotNil(t, prog.CurrentLead)
	assert.Equal(t, "Acme", prog.CurrentLead.Name)

	w = doReq(t, h, http.MethodPost, "/v1/campaign/approve", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prog))
	assert.Equal(t, campaign.PhaseDone, prog.Phase)
	require.Len(t, prog.Results, 1)
	assert.Equal(t, "APPROVED", prog.Results[0].Status)
}

func TestDecisionEndpoints_ConflictWhenIdle(t *testing.T) {
	h, _ := newTestAPI(newFakeEngine())
	for _, path := range []string{"/v1/campaign/approve", "/v1/campaign/skip", "/v1/campaign/skip-error"} {
		w := doReq(t, h, http.MethodPost, path, "", "")
		assert.Equal(t, http.StatusConflict, w.Code, path)
	}
}

func TestCancelResetsToIdle(t *testing.T) {
	eng := newFakeEngine()
	h, _ := newTestAPI(eng)

	w := doReq(t, h, http.MethodPost, "/v1/campaign/start", "application/json",
		`{"leads":[{"name":"a"},{"name":"b"}]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doReq(t, h, http.MethodPost, "/v1/campaign/cancel", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var prog campaign.Progress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prog))
	assert.Equal(t, campaign.PhaseIdle, prog.Phase)
	assert.Equal(t, 0, prog.Total)
	assert.Equal(t, 2, eng.aborted)
}

func TestReportEndpoint(t *testing.T) {
	eng := newFakeEngine()
	h, d := newTestAPI(eng)

	// Not done yet.
	w := doReq(t, h, http.MethodGet, "/v1/campaign/report", "", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	_, err := d.StartCampaign(context.Background(), []leads.Lead{{Name: "Acme", Email: "a@acme.com", Website: "acme.com"}})
	require.NoError(t, err)
	eng.procs["p1"] = &orchestrator.Process{
		LastStatus:   orchestrator.StatusCompleted,
		CurrentState: map[string]any{"final_status": "APPROVED"},
	}
	d.Tick(context.Background())

	w = doReq(t, h, http.MethodGet, "/v1/campaign/report", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rep campaign.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, 1, rep.Summary.Total)
	assert.Equal(t, 1, rep.Summary.Approved)

	w = doReq(t, h, http.MethodGet, "/v1/campaign/report?format=csv", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Acme,a@acme.com,acme.com,true,APPROVED")
}

func TestHealthz(t *testing.T) {
	h, _ := newTestAPI(newFakeEngine())
	w := doReq(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
