package v1_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toolhub/toolhub/server/summarizer"
)

func completionStub(content string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}

func appendMessages(t *testing.T, env *testEnv, token, sessionID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		rec := env.request(t, http.MethodPost, "/api/v1/chat/messages", token, map[string]any{
			"sessionId": sessionID,
			"role":      "user",
			"content":   fmt.Sprintf("turn %d", i),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
}

func TestSummarizeUnconfigured(t *testing.T) {
	env := newTestEnv(t, nil)
	token := userToken(t, "user-1")
	sessionID := createSessionViaAPI(t, env, token)

	rec := env.request(t, http.MethodPost, "/api/v1/chat/summarize", token, map[string]any{
		"sessionId": sessionID,
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSummarizeStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	token := userToken(t, "user-1")
	sessionID := createSessionViaAPI(t, env, token)

	rec := env.request(t, http.MethodGet, "/api/v1/chat/summarize?sessionId="+sessionID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody(t, rec)
	require.Equal(t, false, status["needs_summary"])
	require.EqualValues(t, 0, status["messages_since_summary"])
	require.EqualValues(t, summarizer.MessagesThreshold, status["threshold"])
	require.Equal(t, false, status["has_existing_summary"])
	require.Nil(t, status["last_summary_at"])

	appendMessages(t, env, token, sessionID, summarizer.MessagesThreshold)

	rec = env.request(t, http.MethodGet, "/api/v1/chat/summarize?sessionId="+sessionID, token, nil)
	status = decodeBody(t, rec)
	require.Equal(t, true, status["needs_summary"])
	require.EqualValues(t, summarizer.MessagesThreshold, status["messages_since_summary"])
}

func TestForceSummarize(t *testing.T) {
	env := newTestEnv(t, completionStub("short recap"))
	token := userToken(t, "user-1")
	sessionID := createSessionViaAPI(t, env, token)
	appendMessages(t, env, token, sessionID, 3)

	rec := env.request(t, http.MethodPost, "/api/v1/chat/summarize", token, map[string]any{
		"sessionId":   sessionID,
		"forceUpdate": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	require.Equal(t, "short recap", body["summary"])
	require.EqualValues(t, 3, body["messages_summarized"])

	rec = env.request(t, http.MethodGet, "/api/v1/chat/summarize?sessionId="+sessionID, token, nil)
	status := decodeBody(t, rec)
	require.Equal(t, true, status["has_existing_summary"])
	require.EqualValues(t, 0, status["messages_since_summary"])
	require.NotNil(t, status["last_summary_at"])
}

func TestSummarizeBelowThresholdNoOp(t *testing.T) {
	env := newTestEnv(t, completionStub("unused"))
	token := userToken(t, "user-1")
	sessionID := createSessionViaAPI(t, env, token)
	appendMessages(t, env, token, sessionID, 2)

	rec := env.request(t, http.MethodPost, "/api/v1/chat/summarize", token, map[string]any{
		"sessionId": sessionID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, false, body["success"])
	require.Equal(t, false, body["needs_summary"])
	require.EqualValues(t, 2, body["messages_since_summary"])
}

func TestForceSummarizeEmptySession(t *testing.T) {
	env := newTestEnv(t, completionStub("unused"))
	token := userToken(t, "user-1")
	sessionID := createSessionViaAPI(t, env, token)

	rec := env.request(t, http.MethodPost, "/api/v1/chat/summarize", token, map[string]any{
		"sessionId":   sessionID,
		"forceUpdate": true,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "No messages to summarize")
}

func TestSummarizeValidation(t *testing.T) {
	env := newTestEnv(t, completionStub("unused"))
	token := userToken(t, "user-1")

	rec := env.request(t, http.MethodPost, "/api/v1/chat/summarize", token, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/chat/summarize", token, map[string]any{
		"sessionId": "missing",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}
