package models

import "time"

// EmailMessage is the provider-agnostic representation of a mail message.
// Adapters normalize every provider-specific shape (MIME part trees,
// recipient wrappers, label encodings) into this type.
type EmailMessage struct {
	ID         string     `json:"id"`
	ThreadID   string     `json:"thread_id,omitempty"`
	From       string     `json:"from"`
	To         []string   `json:"to,omitempty"`
	Cc         []string   `json:"cc,omitempty"`
	Bcc        []string   `json:"bcc,omitempty"`
	Subject    string     `json:"subject,omitempty"`
	TextBody   string     `json:"text_body,omitempty"`
	HTMLBody   string     `json:"html_body,omitempty"`
	Labels     []string   `json:"labels,omitempty"`
	Read       bool       `json:"read"`
	Starred    bool       `json:"starred"`
	SentAt     time.Time  `json:"sent_at"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	InReplyTo  string     `json:"in_reply_to,omitempty"`
}

// OutgoingEmail is the payload for a send operation.
type OutgoingEmail struct {
	To       []string `json:"to"       validate:"required,min=1"`
	Cc       []string `json:"cc,omitempty"`
	Bcc      []string `json:"bcc,omitempty"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text_body,omitempty"`
	HTMLBody string   `json:"html_body,omitempty"`
}
