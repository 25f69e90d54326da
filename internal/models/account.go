package models

import "time"

// Account is a registered mailbox: one set of IMAP/SMTP credentials.
// The password is stored encrypted and never serialized.
type Account struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	IMAPHost    string    `json:"imap_host"`
	IMAPPort    int       `json:"imap_port"`
	IMAPTLS     bool      `json:"imap_tls"`
	SMTPHost    string    `json:"smtp_host"`
	SMTPPort    int       `json:"smtp_port"`
	SMTPTLS     bool      `json:"smtp_tls"`
	PasswordEnc []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Thread groups messages of one conversation under a derived thread key.
// The key is unique per account; classification fields are recomputed on
// every sync pass.
type Thread struct {
	ID             int64      `json:"id"`
	AccountID      int64      `json:"account_id"`
	ThreadKey      string     `json:"thread_key"`
	Subject        string     `json:"subject"`
	LastMessageAt  *time.Time `json:"last_message_at"`
	Category       string     `json:"category"`
	PriorityScore  int        `json:"priority_score"`
	PriorityReason string     `json:"priority_reason"`
	IsNewsletter   bool       `json:"is_newsletter"`
}

// Message is a single synced mail item. The IMAP UID is the dedup key:
// there is exactly one row per (thread, imap_uid).
type Message struct {
	ID              int64      `json:"id"`
	ThreadID        int64      `json:"thread_id"`
	IMAPUID         int64      `json:"imap_uid"`
	MessageID       string     `json:"message_id"`
	InReplyTo       string     `json:"in_reply_to"`
	References      string     `json:"references"`
	FromAddr        string     `json:"from_addr"`
	ToAddr          string     `json:"to_addr"`
	Subject         string     `json:"subject"`
	Date            *time.Time `json:"date"`
	ListUnsubscribe string     `json:"list_unsubscribe"`
	Snippet         string     `json:"snippet"`
}

// Subscription records one newsletter sender observed for an account.
type Subscription struct {
	ID              int64     `json:"id"`
	AccountID       int64     `json:"account_id"`
	Sender          string    `json:"sender"`
	ListUnsubscribe string    `json:"list_unsubscribe"`
	CreatedAt       time.Time `json:"created_at"`
}

// FetchedMessage is the decoder's output: one normalized message as fetched
// from the IMAP server, before it is reconciled into the database.
// Date is nil when the Date header is absent or unparseable.
type FetchedMessage struct {
	UID             uint32
	Subject         string
	From            string
	To              string
	Date            *time.Time
	MessageID       string
	InReplyTo       string
	References      string
	ListUnsubscribe string
	Snippet         string
}

// SyncResult reports what one sync pass did.
type SyncResult struct {
	ThreadsCreated  int `json:"threads_new"`
	MessagesCreated int `json:"messages_new"`
	Fetched         int `json:"fetched"`
}
