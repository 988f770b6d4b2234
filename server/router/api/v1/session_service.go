package v1

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/toolhub/toolhub/store"
)

type sessionResponse struct {
	ID                   string         `json:"id"`
	Title                *string        `json:"title"`
	Model                string         `json:"model"`
	Metadata             map[string]any `json:"metadata"`
	IsArchived           bool           `json:"is_archived"`
	MessageCount         int32          `json:"message_count"`
	TotalTokens          int64          `json:"total_tokens"`
	Summary              string         `json:"summary,omitempty"`
	SummaryUpdatedAt     *int64         `json:"summary_updated_at,omitempty"`
	MessagesSinceSummary int32          `json:"messages_since_summary"`
	LastMessageAt        *int64         `json:"last_message_at,omitempty"`
	CreatedAt            int64          `json:"created_at"`
	UpdatedAt            int64          `json:"updated_at"`
}

func toSessionResponse(s *store.ChatSession) sessionResponse {
	return sessionResponse{
		ID:                   s.UID,
		Title:                s.Title,
		Model:                s.Model,
		Metadata:             s.Metadata,
		IsArchived:           s.IsArchived,
		MessageCount:         s.MessageCount,
		TotalTokens:          s.TotalTokens,
		Summary:              s.Summary,
		SummaryUpdatedAt:     s.SummaryUpdatedTs,
		MessagesSinceSummary: s.MessagesSinceSummary,
		LastMessageAt:        s.LastMessageTs,
		CreatedAt:            s.CreatedTs,
		UpdatedAt:            s.UpdatedTs,
	}
}

func (s *APIV1Service) listChatSessions(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	find := &store.FindChatSession{
		CreatorID:       &user.ID,
		IncludeArchived: c.QueryParam("includeArchived") == "true",
	}
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
	sessions, err := s.Store.ListChatSessions(c.Request().Context(), find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, toSessionResponse(session))
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": resp})
}

type createSessionRequest struct {
	Title    *string        `json:"title"`
	Model    string         `json:"model"`
	Metadata map[string]any `json:"metadata"`
}

func (s *APIV1Service) createChatSession(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	model := req.Model
	if model == "" {
		model = s.Profile.LLMModel
	}
	session, err := s.Store.CreateChatSession(c.Request().Context(), &store.ChatSession{
		UID:       uuid.New().String(),
		CreatorID: user.ID,
		Title:     req.Title,
		Model:     model,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]any{"session": toSessionResponse(session)})
}

type updateSessionRequest struct {
	SessionID  string         `json:"sessionId"`
	Title      *string        `json:"title"`
	IsArchived *bool          `json:"is_archived"`
	Metadata   map[string]any `json:"metadata"`
}

func (s *APIV1Service) updateChatSession(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	var req updateSessionRequest
	if err := c.Bind(&req); err != nil || req.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId required")
	}
	session, err := s.Store.UpdateChatSession(c.Request().Context(), &store.UpdateChatSession{
		UID:        req.SessionID,
		CreatorID:  user.ID,
		Title:      req.Title,
		IsArchived: req.IsArchived,
		Metadata:   req.Metadata,
	})
	if err != nil {
		if err == store.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"session": toSessionResponse(session)})
}

func (s *APIV1Service) deleteChatSession(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	sessionID := c.QueryParam("sessionId")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId required")
	}
	if err := s.Store.DeleteChatSession(c.Request().Context(), &store.DeleteChatSession{
		UID:       sessionID,
		CreatorID: user.ID,
	}); err != nil {
		if err == store.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// getOwnedSession resolves a session uid for the user, mapping cross-owner
// and unknown ids to the same not-found error.
func (s *APIV1Service) getOwnedSession(c *echo.Context, userID, sessionUID string) (*store.ChatSession, error) {
	session, err := s.Store.GetChatSession(c.Request().Context(), &store.FindChatSession{
		UID:       &sessionUID,
		CreatorID: &userID,
	})
	if err != nil {
		if err == store.ErrNotFound {
			return nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return session, nil
}
