package leads

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Lead
		wantErr string
	}{
		{
			name:  "basic",
			input: "name,email,website\nAcme,a@acme.com,acme.com\nBeta,b@beta.io,beta.io\n",
			want: []Lead{
				{Name: "Acme", Email: "a@acme.com", Website: "acme.com"},
				{Name: "Beta", Email: "b@beta.io", Website: "beta.io"},
			},
		},
		{
			name:  "fields are trimmed, header case-insensitive",
			input: "Name, Email ,WEBSITE\n Acme , a@acme.com , acme.com \n",
			want:  []Lead{{Name: "Acme", Email: "a@acme.com", Website: "acme.com"}},
		},
		{
			name:  "extra columns ignored, order preserved",
			input: "phone,website,name,email\n555,acme.com,Acme,a@acme.com\n555,beta.io,Beta,b@beta.io\n",
			want: []Lead{
				{Name: "Acme", Email: "a@acme.com", Website: "acme.com"},
				{Name: "Beta", Email: "b@beta.io", Website: "beta.io"},
			},
		},
		{
			name:  "duplicates allowed",
			input: "name,email,website\nAcme,a@acme.com,acme.com\nAcme,a@acme.com,acme.com\n",
			want: []Lead{
				{Name: "Acme", Email: "a@acme.com", Website: "acme.com"},
				{Name: "Acme", Email: "a@acme.com", Website: "acme.com"},
			},
		},
		{
			name:    "missing column",
			input:   "name,email\nAcme,a@acme.com\n",
			wantErr: "missing required column(s): website",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: "empty CSV",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSV(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromMap(t *testing.T) {
	l := FromMap(map[string]string{"name": " Acme ", "email": "a@acme.com"})
	assert.Equal(t, Lead{Name: "Acme", Email: "a@acme.com", Website: ""}, l)
}
