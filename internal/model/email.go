package model

import "time"

// EmailMessage is a single inbox message as handed to the triage core.
// It is owned by the mail transport that fetched it; downstream components
// keep references and never mutate it.
type EmailMessage struct {
	// ID is the transport-specific message identifier (Gmail id or IMAP UID).
	ID string `json:"id"`

	// ThreadID groups the message with its conversation. Replies are sent
	// into this thread.
	ThreadID string `json:"thread_id"`

	// MessageID is the RFC 5322 Message-ID header, used for In-Reply-To
	// threading over SMTP. Empty when the transport does not expose it.
	MessageID string `json:"message_id,omitempty"`

	From    string `json:"from"`
	Subject string `json:"subject"`

	// Body is the plain-text body, truncated by the transport to bound the
	// classification input size.
	Body string `json:"body"`

	ReceivedAt time.Time `json:"received_at"`
}

// IsEmpty reports whether the message has neither a subject nor a body.
func (e EmailMessage) IsEmpty() bool {
	return isBlank(e.Subject) && isBlank(e.Body)
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
		default:
			return false
		}
	}
	return true
}
