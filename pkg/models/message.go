package models

import "time"

// MessageSummary is one row of an inbox listing
type MessageSummary struct {
	ID      string    // Opaque token standing in for the IMAP UID
	Subject string    // Decoded subject, placeholder when missing
	From    string    // Formatted sender list
	To      string    // Formatted recipient list
	Date    time.Time // Envelope date, zero when missing or unparseable
}

// Inbox is a mailbox listing ready for rendering
type Inbox struct {
	Address  string
	Messages []MessageSummary
}

// Header is one decoded header field
type Header struct {
	Key   string
	Value string
}

// MessageDetail is a fully decoded message
type MessageDetail struct {
	ID          string
	Headers     []Header
	Subject     string
	From        string
	To          string
	Date        time.Time
	TextBody    string         // Plain text body, empty when absent
	HTMLBody    string         // Sanitized HTML body, empty when absent
	Preview     string         // Best single body for display
	PreviewHTML bool           // Preview is sanitized markup rather than plain text
	Attachments []string       // Attachment file names
	Codes       []DetectedCode // Verification codes found in the body
	Truncated   bool           // A body part was too large and was cut
}

// DetectedCode represents a detected verification code
type DetectedCode struct {
	Type  string `json:"type"`  // "otp", "verification", "security", "code", "token"
	Value string `json:"value"` // The code itself
}
