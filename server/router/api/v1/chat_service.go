package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/lithammer/shortuuid/v4"

	"github.com/toolhub/toolhub/plugin/llm"
	"github.com/toolhub/toolhub/store"
)

// SessionIDHeader carries the resolved session id on chat responses, so a
// client that started without a session learns which one was created.
const SessionIDHeader = "X-Session-Id"

const assistantPersona = `You are a helpful assistant. Answer clearly and concisely, and say so when you do not know something.`

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	SessionID string     `json:"sessionId"`
	Messages  []chatTurn `json:"messages"`
}

func (s *APIV1Service) handleChat(c *echo.Context) error {
	if s.LLM == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "chat is not configured (missing API key)")
	}
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	var req chatRequest
	if err := c.Bind(&req); err != nil || len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "messages required")
	}
	lastTurn := req.Messages[len(req.Messages)-1]
	if lastTurn.Role != store.RoleUser || strings.TrimSpace(lastTurn.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "last message must be a non-empty user turn")
	}

	ctx := c.Request().Context()

	// Resolve or create the session before any streaming starts.
	var session *store.ChatSession
	if req.SessionID != "" {
		session, err = s.getOwnedSession(c, user.ID, req.SessionID)
		if err != nil {
			return err
		}
	} else {
		session, err = s.Store.CreateChatSession(ctx, &store.ChatSession{
			UID:       uuid.New().String(),
			CreatorID: user.ID,
			Model:     s.Profile.LLMModel,
		})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	rw := c.Response()
	rw.Header().Set(SessionIDHeader, session.UID)
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set("X-Accel-Buffering", "no")
	rw.WriteHeader(http.StatusOK)

	emit := func(eventType, payload string) {
		data, _ := json.Marshal(map[string]string{"type": eventType, "content": payload})
		fmt.Fprintf(rw, "data: %s\n\n", data)
		if f, ok := rw.(http.Flusher); ok {
			f.Flush()
		}
	}

	// Persist the user turn. The reply is generated even if this fails.
	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		UID:        shortuuid.New(),
		SessionID:  session.ID,
		CreatorID:  user.ID,
		Role:       store.RoleUser,
		Content:    lastTurn.Content,
		TokensUsed: int32(len(lastTurn.Content) / 4),
	}); err != nil {
		slog.Warn("failed to persist user message", "session", session.UID, "err", err)
	} else if err := s.Store.IncrementChatSessionOnMessage(ctx, session.ID, int32(len(lastTurn.Content)/4)); err != nil {
		slog.Warn("failed to bump session counters", "session", session.UID, "err", err)
	}

	if session.MessageCount == 0 && session.Title == nil {
		go s.autoTitleSession(context.Background(), session.UID, user.ID, lastTurn.Content)
	}

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	messages = append(messages, llm.Message{
		Role:    store.RoleSystem,
		Content: buildSystemPrompt(session.Summary),
	})
	for _, turn := range req.Messages {
		role, err := store.NormalizeRole(turn.Role)
		if err != nil {
			continue
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}

	result, err := s.LLM.Stream(ctx, llm.CompletionRequest{Messages: messages, Model: session.Model},
		func(delta string) error {
			emit("token", delta)
			return nil
		})
	if err != nil {
		// Covers upstream failures and client disconnects alike. Nothing is
		// persisted for a partial reply.
		slog.Warn("chat stream aborted", "session", session.UID, "err", err)
		emit("error", err.Error())
		return nil
	}

	tokensUsed := result.TotalTokens
	if tokensUsed == 0 {
		tokensUsed = int32(len(result.Content) / 4)
	}
	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		UID:        shortuuid.New(),
		SessionID:  session.ID,
		CreatorID:  user.ID,
		Role:       store.RoleAssistant,
		Content:    result.Content,
		Model:      session.Model,
		TokensUsed: tokensUsed,
	}); err != nil {
		slog.Warn("failed to persist assistant message", "session", session.UID, "err", err)
	} else if err := s.Store.IncrementChatSessionOnMessage(ctx, session.ID, tokensUsed); err != nil {
		slog.Warn("failed to bump session counters", "session", session.UID, "err", err)
	} else if s.Trigger != nil {
		if refreshed, err := s.Store.GetChatSession(ctx, &store.FindChatSession{UID: &session.UID}); err == nil {
			s.Trigger.MaybeSummarize(refreshed)
		}
	}

	emit("done", session.UID)
	return nil
}

func buildSystemPrompt(summary string) string {
	prompt := assistantPersona + "\n\nToday's date: " + time.Now().Format("2006-01-02") + "."
	if summary != "" {
		prompt += "\n\nSummary of earlier conversation:\n" + summary
	}
	return prompt
}

// autoTitleSession names an untitled session from its first user turn.
func (s *APIV1Service) autoTitleSession(ctx context.Context, sessionUID, userID, firstMessage string) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(
		"Generate a short (5-7 word) title for a chat that starts with:\n%q\nReturn only the title, no quotes.",
		firstMessage,
	)
	completion, err := s.LLM.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: store.RoleUser, Content: prompt}},
	})
	if err != nil {
		slog.Warn("auto-title failed", "session", sessionUID, "err", err)
		return
	}
	title := strings.Trim(strings.TrimSpace(completion.Content), `"`)
	if title == "" {
		return
	}
	if _, err := s.Store.UpdateChatSession(ctx, &store.UpdateChatSession{
		UID:       sessionUID,
		CreatorID: userID,
		Title:     &title,
	}); err != nil {
		slog.Warn("auto-title update failed", "session", sessionUID, "err", err)
	}
}
