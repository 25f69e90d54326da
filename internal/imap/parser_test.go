package imap

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePlainText(t *testing.T) {
	raw := "Message-ID: <p1@example.com>\r\n" +
		"Date: Mon, 04 Mar 2024 10:30:00 +0100\r\n" +
		"From: Alice <alice@example.com>\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Lunch plans\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Shall we   meet\r\nat noon?\r\n"

	msg, err := Decode([]byte(raw), 42)
	require.NoError(t, err)

	assert.Equal(t, uint32(42), msg.UID)
	assert.Equal(t, "Lunch plans", msg.Subject)
	assert.Equal(t, "Alice <alice@example.com>", msg.From)
	assert.Equal(t, "bob@example.com", msg.To)
	assert.Equal(t, "<p1@example.com>", msg.MessageID)

	require.NotNil(t, msg.Date)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC), *msg.Date)

	// Whitespace is collapsed in the snippet.
	assert.Equal(t, "Shall we meet at noon?", msg.Snippet)
}

func TestDecodeReplyHeaders(t *testing.T) {
	raw := "Message-ID: <r2@example.com>\r\n" +
		"In-Reply-To: <r1@example.com>\r\n" +
		"References: <r0@example.com> <r1@example.com>\r\n" +
		"Subject: Re: Lunch plans\r\n" +
		"From: bob@example.com\r\n" +
		"\r\n" +
		"Sure.\r\n"

	msg, err := Decode([]byte(raw), 43)
	require.NoError(t, err)

	assert.Equal(t, "<r1@example.com>", msg.InReplyTo)
	assert.Equal(t, "<r0@example.com> <r1@example.com>", msg.References)
}

func TestDecodeEncodedSubject(t *testing.T) {
	raw := "Subject: =?utf-8?q?Gr=C3=BC=C3=9Fe_aus_K=C3=B6ln?=\r\n" +
		"From: carl@example.de\r\n" +
		"\r\n" +
		"Hallo!\r\n"

	msg, err := Decode([]byte(raw), 1)
	require.NoError(t, err)

	assert.Equal(t, "Grüße aus Köln", msg.Subject)
}

func TestDecodeHTMLFallback(t *testing.T) {
	raw := "Subject: Offer\r\n" +
		"From: promo@example.com\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>Big <b>sale</b> today!</p></body></html>\r\n"

	msg, err := Decode([]byte(raw), 2)
	require.NoError(t, err)

	assert.Contains(t, msg.Snippet, "Big")
	assert.Contains(t, msg.Snippet, "sale")
	assert.NotContains(t, msg.Snippet, "<")
}

func TestDecodeMultipart(t *testing.T) {
	raw := "Subject: Report\r\n" +
		"From: work@example.com\r\n" +
		"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Plain version.\r\n" +
		"--b1\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>HTML version.</p>\r\n" +
		"--b1--\r\n"

	msg, err := Decode([]byte(raw), 3)
	require.NoError(t, err)

	// The plain part wins over the HTML part.
	assert.Equal(t, "Plain version.", msg.Snippet)
}

func TestDecodeListUnsubscribe(t *testing.T) {
	raw := "Subject: Weekly digest\r\n" +
		"From: news@example.com\r\n" +
		"List-Unsubscribe: <mailto:unsub@example.com>, <https://example.com/u>\r\n" +
		"\r\n" +
		"Headlines.\r\n"

	msg, err := Decode([]byte(raw), 4)
	require.NoError(t, err)

	assert.Equal(t, "<mailto:unsub@example.com>, <https://example.com/u>", msg.ListUnsubscribe)
}

func TestDecodeDateEdgeCases(t *testing.T) {
	t.Run("missing date is nil", func(t *testing.T) {
		msg, err := Decode([]byte("Subject: x\r\nFrom: a@b.com\r\n\r\nbody\r\n"), 5)
		require.NoError(t, err)
		assert.Nil(t, msg.Date)
	})

	t.Run("malformed date is nil", func(t *testing.T) {
		msg, err := Decode([]byte("Subject: x\r\nDate: not a date\r\n\r\nbody\r\n"), 6)
		require.NoError(t, err)
		assert.Nil(t, msg.Date)
	})
}

func TestDecodeEmptyBody(t *testing.T) {
	msg, err := Decode([]byte("Subject: empty\r\nFrom: a@b.com\r\n\r\n"), 7)
	require.NoError(t, err)
	assert.Equal(t, "", msg.Snippet)
}

func TestSnippetTruncation(t *testing.T) {
	body := strings.Repeat("word ", 100) // well over 240 chars
	raw := "Subject: long\r\nFrom: a@b.com\r\n\r\n" + body + "\r\n"

	msg, err := Decode([]byte(raw), 8)
	require.NoError(t, err)

	assert.Len(t, []rune(msg.Snippet), 240)
}

func TestDecodeBodyTextFull(t *testing.T) {
	body := strings.Repeat("line of text ", 50)
	raw := "Subject: long\r\nFrom: a@b.com\r\n\r\n" + body + "\r\n"

	full, err := DecodeBodyText([]byte(raw))
	require.NoError(t, err)

	// The full body is not truncated to snippet length.
	assert.Greater(t, len(full), 240)
}
