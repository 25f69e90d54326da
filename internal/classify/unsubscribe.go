package classify

import (
	"regexp"
	"strings"
)

// UnsubscribeLinks holds the parsed targets of a List-Unsubscribe header.
type UnsubscribeLinks struct {
	Mailto []string
	URLs   []string
}

var unsubscribeSplitRe = regexp.MustCompile(`,\s*`)

// ParseListUnsubscribe splits a List-Unsubscribe header into mailto and URL
// targets. The header is a comma-separated list of angle-bracketed tokens,
// e.g. "<mailto:a@b.com>, <https://c.com/unsub>". Unknown token kinds are
// dropped.
func ParseListUnsubscribe(header string) UnsubscribeLinks {
	var links UnsubscribeLinks
	header = strings.TrimSpace(header)
	if header == "" {
		return links
	}

	for _, part := range unsubscribeSplitRe.Split(header, -1) {
		cleaned := strings.Trim(strings.TrimSpace(part), "<>")
		switch {
		case strings.HasPrefix(cleaned, "mailto:"):
			links.Mailto = append(links.Mailto, cleaned)
		case strings.HasPrefix(cleaned, "http"):
			links.URLs = append(links.URLs, cleaned)
		}
	}
	return links
}
