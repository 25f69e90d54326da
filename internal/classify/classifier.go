// Package classify derives thread identity and classification labels from
// message headers and text. Everything in here is a pure function over fixed
// keyword tables; no I/O, no state.
package classify

import (
	"regexp"
	"strings"
)

const (
	CategoryNewsletter = "newsletter"
	CategoryFinance    = "finance"
	CategoryCalendar   = "calendar"
	CategorySecurity   = "security"
	CategoryGeneral    = "general"
)

// newsletterPriority is the fixed score assigned to newsletter threads.
const newsletterPriority = 5

var newsletterHints = []string{
	"unsubscribe", "abbestellen", "manage preferences", "newsletter", "marketing",
}

// categoryBuckets are checked in order; the first bucket with a keyword hit
// wins. The order is part of the contract.
var categoryBuckets = []struct {
	name     string
	keywords []string
}{
	{CategoryFinance, []string{"rechnung", "invoice", "payment", "zahlung", "lastschrift"}},
	{CategoryCalendar, []string{"termin", "meeting", "invite", "kalender", "zoom", "teams"}},
	{CategorySecurity, []string{"passwort", "security", "2fa", "code", "verify", "verifizieren"}},
}

var urgencyKeywords = []string{"dringend", "asap", "heute", "deadline", "frist", "sofort"}

// financeKeywords feeds the priority bump; note it is a subset of the
// finance category bucket ("lastschrift" does not raise priority).
var financeKeywords = []string{"rechnung", "invoice", "zahlung", "payment"}

var (
	replyMarkerRe = regexp.MustCompile(`^(re:|fw:|fwd:)\s*`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// NormalizeSubject lowercases, trims, strips leading reply and forward
// markers until none remain, and collapses internal whitespace. Stripping
// runs to a fixpoint so stacked markers ("Re: Fwd: x") cannot make repeated
// normalization yield different keys: normalize(normalize(s)) == normalize(s).
func NormalizeSubject(subject string) string {
	normalized := strings.ToLower(strings.TrimSpace(subject))
	for {
		stripped := replyMarkerRe.ReplaceAllString(normalized, "")
		if stripped == normalized {
			break
		}
		normalized = stripped
	}
	return whitespaceRe.ReplaceAllString(normalized, " ")
}

// ThreadKey derives the stable grouping key for a message.
//
// Replies carry an In-Reply-To (or References) header pointing at the
// conversation, so those win. Original messages fall back to normalized
// subject plus sender domain, which groups repeat mail from the same source.
// Mixing the two schemes can fragment a conversation whose early messages
// lack reply headers; that is a known trade-off, not something to repair
// here.
func ThreadKey(inReplyTo, references, subject, fromAddr string) string {
	if trimmed := strings.TrimSpace(inReplyTo); trimmed != "" {
		return trimmed
	}
	if fields := strings.Fields(references); len(fields) > 0 {
		return fields[len(fields)-1]
	}
	return NormalizeSubject(subject) + "::" + fromDomain(fromAddr)
}

// fromDomain extracts the lowercased domain of a sender address, tolerating
// display-name forms like "Alice <alice@example.com>". Empty when the
// address has no "@".
func fromDomain(fromAddr string) string {
	idx := strings.LastIndex(fromAddr, "@")
	if idx < 0 {
		return ""
	}
	domain := fromAddr[idx+1:]
	domain = strings.Trim(domain, " >")
	return strings.ToLower(domain)
}

// IsNewsletter reports whether a message looks like bulk mail: either the
// List-Unsubscribe header is present, or the snippet contains a hint word.
func IsNewsletter(listUnsubscribe, snippet string) bool {
	if listUnsubscribe != "" {
		return true
	}
	text := strings.ToLower(snippet)
	for _, hint := range newsletterHints {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}

// Category picks the thread category from subject and snippet text.
func Category(subject, snippet string, newsletter bool) string {
	if newsletter {
		return CategoryNewsletter
	}
	text := strings.ToLower(subject + " " + snippet)
	for _, bucket := range categoryBuckets {
		if containsAny(text, bucket.keywords) {
			return bucket.name
		}
	}
	return CategoryGeneral
}

// Priority scores a message from 0-100 and explains which rules fired.
// The raw (non-normalized) subject matters: a literal "?" in it counts as a
// question.
func Priority(subject, snippet string, newsletter bool) (int, string) {
	if newsletter {
		return newsletterPriority, "newsletter detected"
	}

	text := strings.ToLower(subject + " " + snippet)
	score := 20
	var reasons []string

	if containsAny(text, urgencyKeywords) {
		score += 40
		reasons = append(reasons, "urgency keywords")
	}
	if containsAny(text, financeKeywords) {
		score += 30
		reasons = append(reasons, "finance-related")
	}
	if strings.Contains(subject, "?") {
		score += 10
		reasons = append(reasons, "question detected")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "standard priority")
	}

	if score > 100 {
		score = 100
	}
	return score, strings.Join(reasons, ", ")
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
