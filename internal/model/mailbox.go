package model

import "time"

// ProviderType identifies the upstream disposable-mail service that issued
// a mailbox.
type ProviderType string

const (
	ProviderMailGW     ProviderType = "mailgw"
	ProviderOneSecMail ProviderType = "1secmail"
)

// Session is the single active temporary mailbox of a client instance.
type Session struct {
	// Address is the full mailbox address, e.g. tmpab12cd3@example.com.
	Address string `json:"address"`

	// Credential is the bearer token for token-authenticated providers.
	// Empty for anonymous providers.
	Credential string `json:"-"`

	// Provider identifies which adapter allocated the mailbox.
	Provider ProviderType `json:"provider"`

	// CreatedAt is when the mailbox was allocated.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the hard wall-clock deadline. It is never extended.
	ExpiresAt time.Time `json:"expires_at"`

	// Expired is set once the countdown reaches zero. An expired session
	// is kept but inert.
	Expired bool `json:"expired"`
}

// Remaining returns the time left until ExpiresAt, measured from now.
// The result is negative once the deadline has passed.
func (s Session) Remaining(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// Login returns the local part of the address.
func (s Session) Login() string {
	login, _ := s.split()
	return login
}

// Domain returns the domain part of the address.
func (s Session) Domain() string {
	_, domain := s.split()
	return domain
}

func (s Session) split() (string, string) {
	for i := len(s.Address) - 1; i >= 0; i-- {
		if s.Address[i] == '@' {
			return s.Address[:i], s.Address[i+1:]
		}
	}
	return s.Address, ""
}

// MessageSummary is one row of a mailbox listing.
type MessageSummary struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	From      string    `json:"from"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageDetail is the full content of a single message.
type MessageDetail struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`

	// Date is the provider timestamp as received: the creation time when
	// present, else the update time, else empty.
	Date string `json:"date"`

	// HTML is the rich body, already sanitized by the adapter.
	HTML string `json:"html"`

	// Text is the plain-text body.
	Text string `json:"text"`

	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment describes a file attached to a message. Content is never
// downloaded.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// MailboxRecord is a history entry for a previously allocated mailbox.
// It never carries message content or credentials.
type MailboxRecord struct {
	ID           string       `db:"id" json:"id"`
	Address      string       `db:"address" json:"address"`
	Provider     ProviderType `db:"provider" json:"provider"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	ExpiresAt    time.Time    `db:"expires_at" json:"expires_at"`
	MessageCount int          `db:"message_count" json:"message_count"`
}
