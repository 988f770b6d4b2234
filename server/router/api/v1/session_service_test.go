package v1_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionEndpointsRequireAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/chat/sessions"},
		{http.MethodPost, "/api/v1/chat/sessions"},
		{http.MethodPatch, "/api/v1/chat/sessions"},
		{http.MethodDelete, "/api/v1/chat/sessions?sessionId=x"},
		{http.MethodGet, "/api/v1/chat/messages?sessionId=x"},
		{http.MethodPost, "/api/v1/chat/messages"},
		{http.MethodGet, "/api/v1/chat/summarize?sessionId=x"},
	} {
		rec := env.request(t, tc.method, tc.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestSessionCRUD(t *testing.T) {
	env := newTestEnv(t, nil)
	token := userToken(t, "user-1")

	rec := env.request(t, http.MethodPost, "/api/v1/chat/sessions", token, map[string]any{
		"title":    "Trip planning",
		"metadata": map[string]any{"source": "web"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)["session"].(map[string]any)
	sessionID := created["id"].(string)
	require.NotEmpty(t, sessionID)
	require.Equal(t, "Trip planning", created["title"])
	require.Equal(t, "test-model", created["model"])
	require.EqualValues(t, 0, created["message_count"])

	rec = env.request(t, http.MethodGet, "/api/v1/chat/sessions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decodeBody(t, rec)["sessions"].([]any)
	require.Len(t, sessions, 1)

	rec = env.request(t, http.MethodPatch, "/api/v1/chat/sessions", token, map[string]any{
		"sessionId":   sessionID,
		"is_archived": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	patched := decodeBody(t, rec)["session"].(map[string]any)
	require.Equal(t, true, patched["is_archived"])
	require.Equal(t, "Trip planning", patched["title"])

	// Archived sessions drop out of the default listing.
	rec = env.request(t, http.MethodGet, "/api/v1/chat/sessions", token, nil)
	require.Empty(t, decodeBody(t, rec)["sessions"])
	rec = env.request(t, http.MethodGet, "/api/v1/chat/sessions?includeArchived=true", token, nil)
	require.Len(t, decodeBody(t, rec)["sessions"], 1)

	rec = env.request(t, http.MethodDelete, "/api/v1/chat/sessions?sessionId="+sessionID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decodeBody(t, rec)["success"])

	rec = env.request(t, http.MethodDelete, "/api/v1/chat/sessions?sessionId="+sessionID, token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionCrossOwnerReturnsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := userToken(t, "user-a")
	intruder := userToken(t, "user-b")

	rec := env.request(t, http.MethodPost, "/api/v1/chat/sessions", owner, map[string]any{})
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID := decodeBody(t, rec)["session"].(map[string]any)["id"].(string)

	rec = env.request(t, http.MethodPatch, "/api/v1/chat/sessions", intruder, map[string]any{
		"sessionId": sessionID,
		"title":     "mine now",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodDelete, "/api/v1/chat/sessions?sessionId="+sessionID, intruder, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/chat/messages?sessionId="+sessionID, intruder, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// The intruder's listing never shows it either.
	rec = env.request(t, http.MethodGet, "/api/v1/chat/sessions?includeArchived=true", intruder, nil)
	require.Empty(t, decodeBody(t, rec)["sessions"])
}

func TestSessionValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	token := userToken(t, "user-1")

	rec := env.request(t, http.MethodPatch, "/api/v1/chat/sessions", token, map[string]any{"title": "no id"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodDelete, "/api/v1/chat/sessions", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/chat/sessions?limit=nope", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
