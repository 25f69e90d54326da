package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListUnsubscribe(t *testing.T) {
	tests := []struct {
		name           string
		header         string
		expectedMailto []string
		expectedURLs   []string
	}{
		{
			name:   "empty header",
			header: "",
		},
		{
			name:           "mailto and url",
			header:         "<mailto:a@b.com>, <https://c.com/unsub>",
			expectedMailto: []string{"mailto:a@b.com"},
			expectedURLs:   []string{"https://c.com/unsub"},
		},
		{
			name:           "mailto only",
			header:         "<mailto:unsubscribe@example.com>",
			expectedMailto: []string{"mailto:unsubscribe@example.com"},
		},
		{
			name:         "http url without brackets",
			header:       "https://example.com/unsub",
			expectedURLs: []string{"https://example.com/unsub"},
		},
		{
			name:   "unknown scheme dropped",
			header: "<ftp://example.com/unsub>",
		},
		{
			name:           "whitespace tolerated",
			header:         "  <mailto:a@b.com> ,   <http://c.com> ",
			expectedMailto: []string{"mailto:a@b.com"},
			expectedURLs:   []string{"http://c.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := ParseListUnsubscribe(tt.header)
			assert.Equal(t, tt.expectedMailto, links.Mailto)
			assert.Equal(t, tt.expectedURLs, links.URLs)
		})
	}
}
