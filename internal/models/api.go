package models

// AccountCreateRequest is the payload for registering an account.
type AccountCreateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IMAPHost string `json:"imap_host"`
	IMAPPort int    `json:"imap_port"`
	IMAPTLS  *bool  `json:"imap_tls"`
	SMTPHost string `json:"smtp_host"`
	SMTPPort int    `json:"smtp_port"`
	SMTPTLS  *bool  `json:"smtp_tls"`
}

// TestConnectionRequest is the payload for probing IMAP credentials before
// registering an account.
type TestConnectionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IMAPHost string `json:"imap_host"`
	IMAPPort int    `json:"imap_port"`
	IMAPTLS  *bool  `json:"imap_tls"`
}

// SyncRequest is the payload for triggering a sync pass.
type SyncRequest struct {
	Limit int `json:"limit"`
}

// SendRequest is the payload for sending an outbound mail.
type SendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// MessageBodyResponse carries an on-demand full body fetch.
type MessageBodyResponse struct {
	Body string `json:"body"`
}

// UnsubscribeOptions lists the parsed List-Unsubscribe targets of a
// newsletter subscription.
type UnsubscribeOptions struct {
	Mailto []string `json:"mailto"`
	URLs   []string `json:"urls"`
}
