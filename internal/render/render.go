package render

import (
	"github.com/nhle/tempmail/internal/model"
)

const (
	// EmptyListPlaceholder is shown instead of rows when a mailbox is empty.
	EmptyListPlaceholder = "No messages yet. Waiting for incoming mail…"

	// NoSubject stands in for a missing subject.
	NoSubject = "(no subject)"

	// NoContent stands in for a message with neither body.
	NoContent = "(no content)"
)

// Order returns the messages newest first. Providers list oldest first, so
// this is the input reversed. The input is not modified.
func Order(msgs []model.MessageSummary) []model.MessageSummary {
	out := make([]model.MessageSummary, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}

// Subject returns s, or NoSubject when s is empty.
func Subject(s string) string {
	if s == "" {
		return NoSubject
	}
	return s
}

// BodyKind says which representation of a message body is displayed.
type BodyKind int

const (
	BodyRich BodyKind = iota
	BodyPlain
	BodyEmpty
)

// Body is the displayable body of a message.
type Body struct {
	Kind BodyKind

	// Content is sanitized HTML for BodyRich, raw text for BodyPlain and
	// NoContent for BodyEmpty. Plain text must still be escaped by the
	// surface that shows it.
	Content string
}

// BodyOf picks the body to show: rich HTML when present, then plain text,
// then the NoContent placeholder.
func BodyOf(d *model.MessageDetail) Body {
	switch {
	case d == nil:
		return Body{Kind: BodyEmpty, Content: NoContent}
	case d.HTML != "":
		return Body{Kind: BodyRich, Content: d.HTML}
	case d.Text != "":
		return Body{Kind: BodyPlain, Content: d.Text}
	default:
		return Body{Kind: BodyEmpty, Content: NoContent}
	}
}
