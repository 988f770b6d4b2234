package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"
	"github.com/lithammer/shortuuid/v4"

	"github.com/toolhub/toolhub/store"
)

type messageResponse struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id"`
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	Model      string          `json:"model,omitempty"`
	TokensUsed int32           `json:"tokens_used"`
	ToolCalls  json.RawMessage `json:"tool_calls,omitempty"`
	Metadata   map[string]any  `json:"metadata"`
	CreatedAt  int64           `json:"created_at"`
	UpdatedAt  int64           `json:"updated_at"`
}

func toMessageResponse(m *store.ChatMessage, sessionUID string) messageResponse {
	return messageResponse{
		ID:         m.UID,
		SessionID:  sessionUID,
		Role:       m.Role,
		Content:    m.Content,
		Model:      m.Model,
		TokensUsed: m.TokensUsed,
		ToolCalls:  m.ToolCalls,
		Metadata:   m.Metadata,
		CreatedAt:  m.CreatedTs,
		UpdatedAt:  m.UpdatedTs,
	}
}

func (s *APIV1Service) listChatMessages(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	sessionID := c.QueryParam("sessionId")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId required")
	}
	session, err := s.getOwnedSession(c, user.ID, sessionID)
	if err != nil {
		return err
	}
	find := &store.FindChatMessage{SessionID: session.ID}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		find.Limit = &limit
		if v := c.QueryParam("offset"); v != "" {
			offset, err := strconv.Atoi(v)
			if err != nil || offset < 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
			}
			find.Offset = &offset
		}
	}
	messages, err := s.Store.ListChatMessages(c.Request().Context(), find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]messageResponse, 0, len(messages))
	for _, message := range messages {
		resp = append(resp, toMessageResponse(message, session.UID))
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": resp})
}

type createMessageRequest struct {
	SessionID  string          `json:"sessionId"`
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	Model      string          `json:"model"`
	TokensUsed int32           `json:"tokens_used"`
	ToolCalls  json.RawMessage `json:"tool_calls"`
	Metadata   map[string]any  `json:"metadata"`
}

func (s *APIV1Service) createChatMessage(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	var req createMessageRequest
	if err := c.Bind(&req); err != nil || req.SessionID == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId and content required")
	}
	role, err := store.NormalizeRole(req.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	session, err := s.getOwnedSession(c, user.ID, req.SessionID)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	message, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		UID:        shortuuid.New(),
		SessionID:  session.ID,
		CreatorID:  user.ID,
		Role:       role,
		Content:    req.Content,
		Model:      req.Model,
		TokensUsed: req.TokensUsed,
		ToolCalls:  req.ToolCalls,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// The message is saved even when the counter bump fails.
	if err := s.Store.IncrementChatSessionOnMessage(ctx, session.ID, message.TokensUsed); err != nil {
		slog.Warn("failed to bump session counters", "session", session.UID, "err", err)
	} else if s.Trigger != nil {
		if refreshed, err := s.Store.GetChatSession(ctx, &store.FindChatSession{UID: &session.UID}); err == nil {
			s.Trigger.MaybeSummarize(refreshed)
		}
	}

	return c.JSON(http.StatusCreated, map[string]any{"message": toMessageResponse(message, session.UID)})
}

type importMessagesRequest struct {
	SessionID string                 `json:"sessionId"`
	Messages  []createMessageRequest `json:"messages"`
}

// importChatMessages bulk-loads a conversation transcript. Imported rows do
// not count toward the summarization threshold.
func (s *APIV1Service) importChatMessages(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	var req importMessagesRequest
	if err := c.Bind(&req); err != nil || req.SessionID == "" || len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId and messages required")
	}
	session, err := s.getOwnedSession(c, user.ID, req.SessionID)
	if err != nil {
		return err
	}
	creates := make([]*store.ChatMessage, 0, len(req.Messages))
	for _, in := range req.Messages {
		role, err := store.NormalizeRole(in.Role)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if in.Content == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "message content required")
		}
		creates = append(creates, &store.ChatMessage{
			UID:        shortuuid.New(),
			SessionID:  session.ID,
			CreatorID:  user.ID,
			Role:       role,
			Content:    in.Content,
			Model:      in.Model,
			TokensUsed: in.TokensUsed,
			ToolCalls:  in.ToolCalls,
			Metadata:   in.Metadata,
		})
	}
	messages, err := s.Store.CreateChatMessages(c.Request().Context(), creates)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]messageResponse, 0, len(messages))
	for _, message := range messages {
		resp = append(resp, toMessageResponse(message, session.UID))
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": resp})
}
