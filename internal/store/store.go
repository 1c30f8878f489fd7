package store

import (
	"context"

	"github.com/nhle/tempmail/internal/model"
)

// Store defines the persistence interface for the local mailbox history.
// Only metadata is stored, never message content or credentials.
type Store interface {
	RecordMailbox(ctx context.Context, rec *model.MailboxRecord) error
	UpdateMessageCount(ctx context.Context, address string, count int) error
	RecentMailboxes(ctx context.Context, limit int) ([]model.MailboxRecord, error)
	ClearMailboxes(ctx context.Context) (int64, error)
	Close() error
}
