package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"lead-outreach-driver/internal/campaign"
	"lead-outreach-driver/internal/leads"
)

type CampaignHandler struct {
	Driver *campaign.Driver
}

func NewCampaignHandler(d *campaign.Driver) *CampaignHandler {
	return &CampaignHandler{Driver: d}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Start accepts a lead batch as CSV (text/csv body) or JSON
// ({"leads": [...]}) and kicks off the campaign.
func (h *CampaignHandler) Start(w http.ResponseWriter, r *http.Request) {
	batch, err := readLeads(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.Driver.StartCampaign(r.Context(), batch)
	switch {
	case errors.Is(err, campaign.ErrCampaignActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, campaign.ErrStartFailure):
		writeJSON(w, http.StatusBadGateway, out)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusCreated, out)
	}
}

func readLeads(r *http.Request) ([]leads.Lead, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "text/csv") {
		return leads.ParseCSV(r.Body)
	}
	var body struct {
		Leads []leads.Lead `json:"leads"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, errors.New("invalid request body: expected text/csv or JSON leads")
	}
	if len(body.Leads) == 0 {
		return nil, errors.New("no leads in request")
	}
	return body.Leads, nil
}

// Status returns phase, cursor and results; while RUNNING it also performs
// one driver tick so pollers see a fresh view of the current lead.
func (h *CampaignHandler) Status(w http.ResponseWriter, r *http.Request) {
	_ = h.Driver.Tick(r.Context())
	writeJSON(w, http.StatusOK, h.Driver.Progress())
}

func (h *CampaignHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *CampaignHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *CampaignHandler) decide(w http.ResponseWriter, r *http.Request, approved bool) {
	err := h.Driver.Decide(r.Context(), approved)
	switch {
	case errors.Is(err, campaign.ErrNotRunning):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		// Resume failed; the lead stays under review.
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, h.Driver.Progress())
	}
}

// SkipError records an error result for the current lead after a failed
// fetch and moves on.
func (h *CampaignHandler) SkipError(w http.ResponseWriter, r *http.Request) {
	if err := h.Driver.SkipCurrent(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.Driver.Progress())
}

func (h *CampaignHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.Driver.CancelAll(r.Context())
	writeJSON(w, http.StatusOK, h.Driver.Progress())
}

func (h *CampaignHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.Driver.Reset()
	writeJSON(w, http.StatusOK, h.Driver.Progress())
}

// Report reconciles against the engine and returns the authoritative
// summary, as JSON or as a CSV download with ?format=csv.
func (h *CampaignHandler) Report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Driver.Report(r.Context())
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="lead_outreach_summary.csv"`)
		if err := campaign.WriteCSV(w, rep); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
