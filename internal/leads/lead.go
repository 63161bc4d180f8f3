package leads

import "strings"

// RequiredColumns are the columns a lead source must provide.
var RequiredColumns = []string{"name", "email", "website"}

// Lead is the canonical record for one outreach target.
type Lead struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// FromMap builds a Lead from loosely-typed input. Missing fields become
// empty strings, never nulls; all values are trimmed.
func FromMap(m map[string]string) Lead {
	return Lead{
		Name:    strings.TrimSpace(m["name"]),
		Email:   strings.TrimSpace(m["email"]),
		Website: strings.TrimSpace(m["website"]),
	}
}

func (l Lead) Trimmed() Lead {
	return Lead{
		Name:    strings.TrimSpace(l.Name),
		Email:   strings.TrimSpace(l.Email),
		Website: strings.TrimSpace(l.Website),
	}
}
