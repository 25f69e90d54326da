package imap

import (
	"bytes"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/mailpilot/backend/internal/models"
)

// snippetMaxLen bounds the stored body preview, in characters.
const snippetMaxLen = 240

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Decode parses a raw RFC 822 payload into a normalized message record.
//
// Header decoding (RFC 2047 encoded words, charset fallbacks) is handled by
// enmime; a header that cannot be decoded cleanly comes back with
// replacement characters rather than failing the message. A missing or
// unparseable Date yields a nil timestamp, and a missing text body yields an
// empty snippet — neither is an error. Only a payload that cannot be parsed
// as a message at all fails.
func Decode(raw []byte, uid uint32) (*models.FetchedMessage, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	return &models.FetchedMessage{
		UID:             uid,
		Subject:         envelope.GetHeader("Subject"),
		From:            envelope.GetHeader("From"),
		To:              envelope.GetHeader("To"),
		Date:            parseDate(envelope.GetHeader("Date")),
		MessageID:       envelope.GetHeader("Message-Id"),
		InReplyTo:       envelope.GetHeader("In-Reply-To"),
		References:      envelope.GetHeader("References"),
		ListUnsubscribe: envelope.GetHeader("List-Unsubscribe"),
		Snippet:         makeSnippet(bodyText(envelope)),
	}, nil
}

// DecodeBodyText parses a raw payload and returns the full body text:
// the plain text part when present, otherwise the HTML part with tags
// stripped. Empty when the message has no text at all.
func DecodeBodyText(raw []byte) (string, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse message: %w", err)
	}
	return bodyText(envelope), nil
}

// bodyText prefers the first non-attachment plain text part. enmime already
// derives Text from HTML when no plain part exists; the tag-stripping pass
// below only covers the case where that derivation produced nothing.
func bodyText(envelope *enmime.Envelope) string {
	if strings.TrimSpace(envelope.Text) != "" {
		return envelope.Text
	}
	if envelope.HTML != "" {
		return stripTags(envelope.HTML)
	}
	return ""
}

// stripTags removes HTML tags with a single substitution pass and collapses
// the resulting whitespace. Deliberately simple: snippets are previews, not
// rendered documents.
func stripTags(html string) string {
	text := htmlTagRe.ReplaceAllString(html, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// makeSnippet collapses whitespace and truncates to snippetMaxLen characters.
func makeSnippet(text string) string {
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) > snippetMaxLen {
		return string(runes[:snippetMaxLen])
	}
	return text
}

// parseDate parses an RFC 5322 Date header into a UTC timestamp. Absent or
// malformed dates map to nil, never an error.
func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := mail.ParseDate(value)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
