package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Store_And_Fetch_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	at := time.Now().UTC()
	diskMessages := []DiskMessage{
		{uuid.New(), "alice", "bob", "hi bob", "", at},
		{uuid.New(), "bob", "alice", "hi alice", "", at.Add(1 * time.Minute)},
		{uuid.New(), "alice", "bob", "", "1700000000.png", at.Add(2 * time.Minute)},
	}
	for _, dm := range diskMessages {
		req.NoError(repository.StoreMessage(dm))
	}

	// Both directions land under the same conversation, oldest first
	fetched, _, err := repository.GetConversation("alice", "bob", nil)
	req.NoError(err)
	req.Len(fetched, len(diskMessages))
	req.Equal(diskMessages, fetched)

	// The pair key is direction independent
	reversed, _, err := repository.GetConversation("bob", "alice", nil)
	req.NoError(err)
	req.Equal(fetched, reversed)
}

func Test_Conversations_Are_Isolated(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	at := time.Now().UTC()
	req.NoError(repository.StoreMessage(DiskMessage{uuid.New(), "alice", "bob", "for bob", "", at}))
	req.NoError(repository.StoreMessage(DiskMessage{uuid.New(), "alice", "clara", "for clara", "", at}))

	fetched, _, err := repository.GetConversation("alice", "bob", nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("for bob", fetched[0].Text)
}

func Test_Fetch_Conversation_With_Limit_And_Cursor(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	limit := 2
	repository := NewMessageRepository(db, slog.Default(), &limit)
	at := time.Now().UTC()
	var all []DiskMessage
	for i := 0; i < 5; i++ {
		dm := DiskMessage{uuid.New(), "alice", "bob", "msg", "", at.Add(time.Duration(i) * time.Minute)}
		all = append(all, dm)
		req.NoError(repository.StoreMessage(dm))
	}

	// First page
	page1, cursor, err := repository.GetConversation("alice", "bob", nil)
	req.NoError(err)
	req.Len(page1, limit)
	req.Equal(all[:2], page1)
	req.NotNil(cursor)

	// Second page resumes after the cursor
	page2, cursor, err := repository.GetConversation("alice", "bob", cursor)
	req.NoError(err)
	req.Len(page2, limit)
	req.Equal(all[2:4], page2)

	// Last page
	page3, _, err := repository.GetConversation("alice", "bob", cursor)
	req.NoError(err)
	req.Len(page3, 1)
	req.Equal(all[4], page3[0])
}

func Test_Empty_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	fetched, _, err := repository.GetConversation("alice", "nobody", nil)
	req.NoError(err)
	req.Empty(fetched)
}
