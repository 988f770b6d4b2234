package summarizer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/require"

	"github.com/toolhub/toolhub/plugin/llm"
	"github.com/toolhub/toolhub/server/profile"
	"github.com/toolhub/toolhub/server/summarizer"
	"github.com/toolhub/toolhub/store"
	"github.com/toolhub/toolhub/store/db/sqlite"
)

type stubUpstream struct {
	mu       sync.Mutex
	prompts  []string
	response string
	fail     bool
}

func (u *stubUpstream) handler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Messages []llm.Message `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	u.mu.Lock()
	for _, m := range body.Messages {
		u.prompts = append(u.prompts, m.Content)
	}
	fail := u.fail
	u.mu.Unlock()

	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	resp := map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": u.response}}},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (u *stubUpstream) lastPrompt(t *testing.T) string {
	t.Helper()
	u.mu.Lock()
	defer u.mu.Unlock()
	require.NotEmpty(t, u.prompts)
	return u.prompts[len(u.prompts)-1]
}

func (u *stubUpstream) calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.prompts)
}

func newTestSummarizer(t *testing.T, upstream *stubUpstream) (*summarizer.Summarizer, *store.Store) {
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

	server := httptest.NewServer(http.HandlerFunc(upstream.handler))
	t.Cleanup(server.Close)
	client, err := llm.NewClient("test-key", server.URL, "test-model")
	require.NoError(t, err)

	return summarizer.New(st, client), st
}

func seedSession(t *testing.T, st *store.Store, messageCount int) *store.ChatSession {
	t.Helper()
	ctx := context.Background()
	session, err := st.CreateChatSession(ctx, &store.ChatSession{
		UID:       uuid.New().String(),
		CreatorID: "user-1",
	})
	require.NoError(t, err)
	for i := 0; i < messageCount; i++ {
		_, err := st.CreateChatMessage(ctx, &store.ChatMessage{
			UID:       shortuuid.New(),
			SessionID: session.ID,
			CreatorID: "user-1",
			Role:      store.RoleUser,
			Content:   fmt.Sprintf("msg-%02d", i),
		})
		require.NoError(t, err)
		require.NoError(t, st.IncrementChatSessionOnMessage(ctx, session.ID, 0))
	}
	refreshed, err := st.GetChatSession(ctx, &store.FindChatSession{UID: &session.UID})
	require.NoError(t, err)
	return refreshed
}

func TestSummarizeBelowThresholdIsNoOp(t *testing.T) {
	upstream := &stubUpstream{response: "a summary"}
	s, st := newTestSummarizer(t, upstream)
	session := seedSession(t, st, summarizer.MessagesThreshold-1)

	result, err := s.Summarize(context.Background(), session, false)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Zero(t, upstream.calls())

	got, err := st.GetChatSession(context.Background(), &store.FindChatSession{UID: &session.UID})
	require.NoError(t, err)
	require.Equal(t, int32(summarizer.MessagesThreshold-1), got.MessagesSinceSummary)
	require.Empty(t, got.Summary)
}

func TestSummarizeAtThreshold(t *testing.T) {
	upstream := &stubUpstream{response: "the conversation so far"}
	s, st := newTestSummarizer(t, upstream)
	session := seedSession(t, st, summarizer.MessagesThreshold)
	require.True(t, summarizer.Due(session))

	result, err := s.Summarize(context.Background(), session, false)
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.Equal(t, "the conversation so far", result.Summary)
	require.Equal(t, summarizer.MessagesThreshold, result.MessagesSummarized)

	prompt := upstream.lastPrompt(t)
	require.Contains(t, prompt, "msg-00")
	require.Contains(t, prompt, fmt.Sprintf("msg-%02d", summarizer.MessagesThreshold-1))
	require.NotContains(t, prompt, "Existing summary")

	got, err := st.GetChatSession(context.Background(), &store.FindChatSession{UID: &session.UID})
	require.NoError(t, err)
	require.Equal(t, "the conversation so far", got.Summary)
	require.Equal(t, int32(0), got.MessagesSinceSummary)
	require.NotNil(t, got.SummaryUpdatedTs)
	require.Equal(t, int32(summarizer.MessagesThreshold), got.MessageCount)
}

func TestSummarizeMergesExistingSummary(t *testing.T) {
	upstream := &stubUpstream{response: "merged summary"}
	s, st := newTestSummarizer(t, upstream)
	session := seedSession(t, st, 3)

	require.NoError(t, st.ApplyChatSessionSummary(context.Background(), &store.ApplyChatSessionSummary{
		SessionID:        session.ID,
		Summary:          "we discussed databases",
		SummaryUpdatedTs: 1,
	}))
	// Three more turns since the stored summary.
	for i := 0; i < 3; i++ {
		_, err := st.CreateChatMessage(context.Background(), &store.ChatMessage{
			UID:       shortuuid.New(),
			SessionID: session.ID,
			CreatorID: "user-1",
			Role:      store.RoleAssistant,
			Content:   fmt.Sprintf("followup-%d", i),
		})
		require.NoError(t, err)
		require.NoError(t, st.IncrementChatSessionOnMessage(context.Background(), session.ID, 0))
	}
	session, err := st.GetChatSession(context.Background(), &store.FindChatSession{UID: &session.UID})
	require.NoError(t, err)

	result, err := s.Summarize(context.Background(), session, true)
	require.NoError(t, err)
	require.Equal(t, "merged summary", result.Summary)
	require.Equal(t, 3, result.MessagesSummarized)

	prompt := upstream.lastPrompt(t)
	require.Contains(t, prompt, "Existing summary")
	require.Contains(t, prompt, "we discussed databases")
	require.Contains(t, prompt, "followup-2")
	// Turns already covered by the stored summary stay out of the prompt.
	require.NotContains(t, prompt, "msg-00")
}

func TestSummarizeCapsFetchedMessages(t *testing.T) {
	upstream := &stubUpstream{response: "long summary"}
	s, st := newTestSummarizer(t, upstream)
	session := seedSession(t, st, 60)

	result, err := s.Summarize(context.Background(), session, false)
	require.NoError(t, err)
	require.Equal(t, summarizer.MaxMessagesToFetch, result.MessagesSummarized)

	prompt := upstream.lastPrompt(t)
	require.Contains(t, prompt, "msg-59")
	require.Contains(t, prompt, "msg-10")
	require.NotContains(t, prompt, "msg-09")
}

func TestSummarizeForceOnEmptySession(t *testing.T) {
	upstream := &stubUpstream{response: "unused"}
	s, st := newTestSummarizer(t, upstream)
	session := seedSession(t, st, 0)

	_, err := s.Summarize(context.Background(), session, true)
	require.ErrorIs(t, err, summarizer.ErrNoMessages)
	require.Zero(t, upstream.calls())

	result, err := s.Summarize(context.Background(), session, false)
	require.NoError(t, err)
	require.True(t, result.Skipped)
}

func TestSummarizeFailureLeavesSessionUntouched(t *testing.T) {
	upstream := &stubUpstream{response: "unused", fail: true}
	s, st := newTestSummarizer(t, upstream)
	session := seedSession(t, st, summarizer.MessagesThreshold)

	_, err := s.Summarize(context.Background(), session, false)
	require.Error(t, err)

	got, err := st.GetChatSession(context.Background(), &store.FindChatSession{UID: &session.UID})
	require.NoError(t, err)
	require.Empty(t, got.Summary)
	require.Nil(t, got.SummaryUpdatedTs)
	require.Equal(t, int32(summarizer.MessagesThreshold), got.MessagesSinceSummary)
}
