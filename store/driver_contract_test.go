package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/toolhub/toolhub/server/profile"
	"github.com/toolhub/toolhub/store"
	"github.com/toolhub/toolhub/store/db/mysql"
	"github.com/toolhub/toolhub/store/db/postgres"
)

func newPostgresTestStore(t *testing.T) *store.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("container tests skipped in short mode")
	}
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("toolhub"),
		tcpostgres.WithUsername("toolhub"),
		tcpostgres.WithPassword("toolhub"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("start postgres container: %v", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	driver, err := postgres.NewDB(&profile.Profile{Mode: "prod", Driver: "postgres", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	st := store.New(driver)
	require.NoError(t, st.Migrate(ctx))
	return st
}

func newMySQLTestStore(t *testing.T) *store.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("container tests skipped in short mode")
	}
	ctx := context.Background()
	container, err := tcmysql.Run(ctx, "mysql:8.4",
		tcmysql.WithDatabase("toolhub"),
		tcmysql.WithUsername("toolhub"),
		tcmysql.WithPassword("toolhub"),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("start mysql container: %v", err)
	}
	dsn, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	driver, err := mysql.NewDB(&profile.Profile{Mode: "prod", Driver: "mysql", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	st := store.New(driver)
	require.NoError(t, st.Migrate(ctx))
	return st
}

func TestPostgresDriverContract(t *testing.T) {
	runDriverContract(t, newPostgresTestStore(t))
}

func TestMySQLDriverContract(t *testing.T) {
	runDriverContract(t, newMySQLTestStore(t))
}

// runDriverContract exercises the store behaviors every driver must share.
func runDriverContract(t *testing.T, st *store.Store) {
	ctx := context.Background()

	session := createTestSession(t, st, "user-1")
	require.NotZero(t, session.ID)
	require.NotZero(t, session.CreatedTs)
	require.Nil(t, session.Title)

	// Partial update leaves unnamed fields alone.
	title := "database shopping"
	updated, err := st.UpdateChatSession(ctx, &store.UpdateChatSession{
		UID:       session.UID,
		CreatorID: session.CreatorID,
		Title:     &title,
	})
	require.NoError(t, err)
	require.Equal(t, &title, updated.Title)
	require.Equal(t, session.Model, updated.Model)

	// Updates scoped to another owner hit nothing.
	_, err = st.UpdateChatSession(ctx, &store.UpdateChatSession{
		UID:       session.UID,
		CreatorID: "user-2",
		Title:     &title,
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	appendTestMessage(t, st, session, store.RoleUser, "first")
	appendTestMessage(t, st, session, store.RoleAssistant, "second")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, st.IncrementChatSessionOnMessage(ctx, session.ID, 3))
		}()
	}
	wg.Wait()

	session, err = st.GetChatSession(ctx, &store.FindChatSession{UID: &session.UID})
	require.NoError(t, err)
	require.EqualValues(t, 12, session.MessageCount)
	require.EqualValues(t, 12, session.MessagesSinceSummary)
	require.EqualValues(t, 30, session.TotalTokens)

	// Chronological list, then the newest-first tail.
	messages, err := st.ListChatMessages(ctx, &store.FindChatMessage{SessionID: session.ID})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "first", messages[0].Content)
	limit := 1
	tail, err := st.ListChatMessages(ctx, &store.FindChatMessage{
		SessionID:  session.ID,
		Descending: true,
		Limit:      &limit,
	})
	require.NoError(t, err)
	require.Equal(t, "second", tail[0].Content)

	// Batch import keeps caller order and never touches counters.
	batch := []*store.ChatMessage{
		{UID: shortuuid.New(), SessionID: session.ID, CreatorID: session.CreatorID, Role: store.RoleUser, Content: "imported-1"},
		{UID: shortuuid.New(), SessionID: session.ID, CreatorID: session.CreatorID, Role: store.RoleAssistant, Content: "imported-2"},
	}
	imported, err := st.CreateChatMessages(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, "imported-1", imported[0].Content)
	require.Equal(t, "imported-2", imported[1].Content)
	session, err = st.GetChatSession(ctx, &store.FindChatSession{UID: &session.UID})
	require.NoError(t, err)
	require.EqualValues(t, 12, session.MessageCount)

	// Summary apply resets the counter in the same statement.
	now := time.Now().Unix()
	require.NoError(t, st.ApplyChatSessionSummary(ctx, &store.ApplyChatSessionSummary{
		SessionID:        session.ID,
		Summary:          "they compared databases",
		SummaryUpdatedTs: now,
	}))
	session, err = st.GetChatSession(ctx, &store.FindChatSession{UID: &session.UID})
	require.NoError(t, err)
	require.Equal(t, "they compared databases", session.Summary)
	require.EqualValues(t, 0, session.MessagesSinceSummary)
	require.EqualValues(t, 12, session.MessageCount)

	server, err := st.CreateToolServer(ctx, &store.ToolServer{
		UID:           shortuuid.New(),
		CreatorID:     "user-1",
		Name:          "search",
		TransportType: "http",
		Config:        []byte(`{"url":"http://localhost:1234"}`),
		Status:        store.ToolServerStatusPending,
	})
	require.NoError(t, err)
	require.Equal(t, store.ToolServerStatusPending, server.Status)
	require.NoError(t, st.DeleteToolServer(ctx, server.UID, "user-1"))

	// Deleting the session cascades to its messages.
	require.NoError(t, st.DeleteChatSession(ctx, &store.DeleteChatSession{
		UID:       session.UID,
		CreatorID: session.CreatorID,
	}))
	messages, err = st.ListChatMessages(ctx, &store.FindChatMessage{SessionID: session.ID})
	require.NoError(t, err)
	require.Empty(t, messages)
}
