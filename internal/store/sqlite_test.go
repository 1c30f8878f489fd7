package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/store"
	"github.com/nhle/tempmail/internal/testutil"
)

func record(address string, created time.Time) *model.MailboxRecord {
	return &model.MailboxRecord{
		Address:   address,
		Provider:  model.ProviderOneSecMail,
		CreatedAt: created,
		ExpiresAt: created.Add(10 * time.Minute),
	}
}

func TestRecordAndListMailboxes(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := record("a@x.test", base)
	require.NoError(t, s.RecordMailbox(ctx, first))
	assert.NotEmpty(t, first.ID)
	require.NoError(t, s.RecordMailbox(ctx, record("b@x.test", base.Add(time.Minute))))
	require.NoError(t, s.RecordMailbox(ctx, record("c@x.test", base.Add(2*time.Minute))))

	all, err := s.RecentMailboxes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c@x.test", all[0].Address, "newest first")
	assert.Equal(t, model.ProviderOneSecMail, all[0].Provider)
	assert.True(t, all[2].CreatedAt.Equal(base))
	assert.True(t, all[2].ExpiresAt.Equal(base.Add(10*time.Minute)))

	limited, err := s.RecentMailboxes(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestUpdateMessageCountTargetsLatestEntry(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordMailbox(ctx, record("same@x.test", base)))
	require.NoError(t, s.RecordMailbox(ctx, record("same@x.test", base.Add(time.Hour))))

	require.NoError(t, s.UpdateMessageCount(ctx, "same@x.test", 4))

	all, err := s.RecentMailboxes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 4, all[0].MessageCount)
	assert.Equal(t, 0, all[1].MessageCount)

	assert.Error(t, s.UpdateMessageCount(ctx, "missing@x.test", 1))
}

func TestClearMailboxes(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordMailbox(ctx, record("a@x.test", time.Now())))
	require.NoError(t, s.RecordMailbox(ctx, record("b@x.test", time.Now())))

	n, err := s.ClearMailboxes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := s.RecentMailboxes(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordMailbox(ctx, record("a@x.test", time.Now())))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	all, err := s.RecentMailboxes(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
