package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/require"

	"github.com/toolhub/toolhub/server/profile"
	"github.com/toolhub/toolhub/store"
	"github.com/toolhub/toolhub/store/db/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	p := &profile.Profile{
		Mode:   "prod",
		Driver: "sqlite",
		DSN:    "file:" + t.TempDir() + "/toolhub_test.db",
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	st := store.New(driver)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func createTestSession(t *testing.T, st *store.Store, creatorID string) *store.ChatSession {
	t.Helper()
	session, err := st.CreateChatSession(context.Background(), &store.ChatSession{
		UID:       uuid.New().String(),
		CreatorID: creatorID,
		Model:     "test-model",
	})
	require.NoError(t, err)
	return session
}

func appendTestMessage(t *testing.T, st *store.Store, session *store.ChatSession, role, content string) *store.ChatMessage {
	t.Helper()
	message, err := st.CreateChatMessage(context.Background(), &store.ChatMessage{
		UID:       shortuuid.New(),
		SessionID: session.ID,
		CreatorID: session.CreatorID,
		Role:      role,
		Content:   content,
	})
	require.NoError(t, err)
	require.NoError(t, st.IncrementChatSessionOnMessage(context.Background(), session.ID, message.TokensUsed))
	return message
}
