package email

import (
	"context"
	"time"
)

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      []string // Recipient email addresses
	From    string   // Sender address, e.g. "Tutorbook <reminders@example.com>"
	Subject string
	HTML    string // HTML body
	Text    string // Plain-text alternative
	ReplyTo string
	Tags    map[string]string // Provider tags, e.g. lesson_id
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender is the interface for sending emails via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	// SendBatch returns results in request order. On error the results cover
	// the leading requests that were accepted before the failure.
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}
