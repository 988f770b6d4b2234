package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/toolhub/toolhub/store"
)

func TestToolServerLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.CreateToolServer(ctx, &store.ToolServer{
		UID:           uuid.New().String(),
		CreatorID:     "user-1",
		Name:          "search",
		TransportType: "http",
		Config:        json.RawMessage(`{"url":"http://localhost:9000"}`),
	})
	require.NoError(t, err)
	require.Equal(t, store.ToolServerStatusPending, created.Status)
	require.Nil(t, created.LastPingTs)

	status := store.ToolServerStatusConnected
	now := time.Now().Unix()
	empty := ""
	updated, err := st.UpdateToolServer(ctx, &store.UpdateToolServer{
		UID:          created.UID,
		CreatorID:    "user-1",
		Status:       &status,
		LastPingTs:   &now,
		ErrorMessage: &empty,
	})
	require.NoError(t, err)
	require.Equal(t, store.ToolServerStatusConnected, updated.Status)
	require.NotNil(t, updated.LastPingTs)

	owner := "user-1"
	list, err := st.ListToolServers(ctx, &store.FindToolServer{CreatorID: &owner})
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Cross-owner access collapses to not found.
	_, err = st.UpdateToolServer(ctx, &store.UpdateToolServer{
		UID:       created.UID,
		CreatorID: "user-2",
		Status:    &status,
	})
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, st.DeleteToolServer(ctx, created.UID, "user-2"), store.ErrNotFound)

	require.NoError(t, st.DeleteToolServer(ctx, created.UID, "user-1"))
	_, err = st.GetToolServer(ctx, &store.FindToolServer{UID: &created.UID})
	require.ErrorIs(t, err, store.ErrNotFound)
}
