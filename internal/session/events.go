package session

import (
	"time"

	"github.com/nhle/tempmail/internal/model"
)

// Event is anything the Manager publishes on its event channel.
type Event interface {
	sessionEvent()
}

// GeneratingEvent is published when an allocation starts (InProgress true)
// and again when it finishes, whatever the outcome.
type GeneratingEvent struct {
	InProgress bool
}

// SessionStartedEvent is published once a new mailbox is active.
type SessionStartedEvent struct {
	Session model.Session
}

// AllocationFailedEvent is published once per failed Generate call.
type AllocationFailedEvent struct {
	Err error
}

// TickEvent is published by the countdown ticker.
type TickEvent struct {
	Address   string
	Remaining time.Duration
	Display   string
}

// MessagesEvent carries the complete message list from one poll. It
// replaces whatever the consumer showed before.
type MessagesEvent struct {
	Address  string
	Messages []model.MessageSummary
}

// ExpiredEvent is published once when a session reaches its deadline.
type ExpiredEvent struct {
	Address string
	Display string
}

func (GeneratingEvent) sessionEvent()       {}
func (SessionStartedEvent) sessionEvent()   {}
func (AllocationFailedEvent) sessionEvent() {}
func (TickEvent) sessionEvent()             {}
func (MessagesEvent) sessionEvent()         {}
func (ExpiredEvent) sessionEvent()          {}
