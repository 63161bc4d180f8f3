package campaign

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReportRow is one lead's authoritative outcome. Approved stays nil when the
// engine could not tell us how the lead resolved.
type ReportRow struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Website  string `json:"website"`
	Approved *bool  `json:"approved"`
	Status   string `json:"status"`
}

// Summary aggregates a report. Errors counts rows whose status contains
// "error", case-insensitive.
type Summary struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

type Report struct {
	Rows    []ReportRow `json:"rows"`
	Summary Summary     `json:"summary"`
}

// Reconcile re-fetches every process and derives the authoritative outcome
// with the same precedence rules the driver uses for terminal states. A
// failed fetch becomes an error row rather than a still-running one. The
// returned list is index-aligned with handles and unconditionally replaces
// any optimistic local results.
func Reconcile(ctx context.Context, engine Engine, handles []ProcessHandle) []Result {
	out := make([]Result, 0, len(handles))
	for _, h := range handles {
		p, err := engine.Fetch(ctx, h.ProcessID)
		if err != nil {
			out = append(out, Result{Lead: h.Lead, Approved: nil, Status: fmt.Sprintf("error (%s)", err)})
			continue
		}
		approved, status := derive(p)
		out = append(out, Result{Lead: h.Lead, Approved: approved, Status: status})
	}
	return out
}

// BuildReport turns reconciled results into ordered report rows plus counts.
func BuildReport(results []Result) Report {
	rep := Report{Rows: make([]ReportRow, 0, len(results))}
	rep.Summary.Total = len(results)
	for _, r := range results {
		rep.Rows = append(rep.Rows, ReportRow{
			Name:     r.Lead.Name,
			Email:    r.Lead.Email,
			Website:  r.Lead.Website,
			Approved: r.Approved,
			Status:   r.Status,
		})
		if r.Approved != nil && *r.Approved {
			rep.Summary.Approved++
		}
		if r.Status == "SKIPPED" {
			rep.Summary.Skipped++
		}
		if strings.Contains(strings.ToLower(r.Status), "error") {
			rep.Summary.Errors++
		}
	}
	return rep
}

// WriteCSV renders the report for download. A nil Approved renders empty.
func WriteCSV(w io.Writer, rep Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Email", "Website", "Approved?", "Status"}); err != nil {
		return err
	}
	for _, row := range rep.Rows {
		approved := ""
		if row.Approved != nil {
			approved = strconv.FormatBool(*row.Approved)
		}
		if err := cw.Write([]string{row.Name, row.Email, row.Website, approved, row.Status}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
