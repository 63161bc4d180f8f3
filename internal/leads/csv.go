package leads

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ParseCSV reads an ordered lead list from CSV input. The header row must
// contain every required column; extra columns are ignored. Duplicate leads
// are allowed and kept in input order.
func ParseCSV(r io.Reader) ([]Lead, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("CSV missing required column(s): %s", strings.Join(missing, ", "))
	}

	var out []Lead
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", len(out)+2, err)
		}
		out = append(out, Lead{
			Name:    field(rec, cols["name"]),
			Email:   field(rec, cols["email"]),
			Website: field(rec, cols["website"]),
		})
	}
	return out, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
