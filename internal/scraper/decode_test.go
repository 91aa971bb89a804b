package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_DecodeHTML(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		contentType string
		expected    string
	}{
		{
			name:     "windows-1252 en dash",
			body:     []byte("<p class=\"date\">July 18\x9619</p>"),
			expected: "<p class=\"date\">July 18–19</p>",
		},
		{
			name:     "declared windows-1252",
			body:     []byte("<meta charset=\"windows-1252\"><p>Caf\xe9</p>"),
			expected: "<meta charset=\"windows-1252\"><p>Café</p>",
		},
		{
			name:     "utf-8 kept",
			body:     []byte("<p>July 18–19</p>"),
			expected: "<p>July 18–19</p>",
		},
		{
			name:        "header charset wins",
			body:        []byte("<p>Caf\xe9</p>"),
			contentType: "text/html; charset=iso-8859-1",
			expected:    "<p>Café</p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHTML(tt.body, tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}
