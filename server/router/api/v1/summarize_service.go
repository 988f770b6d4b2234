package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/toolhub/toolhub/server/summarizer"
)

type summarizeRequest struct {
	SessionID   string `json:"sessionId"`
	ForceUpdate bool   `json:"forceUpdate"`
}

func (s *APIV1Service) summarizeSession(c *echo.Context) error {
	if s.Summarizer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "summarization is not configured (missing API key)")
	}
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	var req summarizeRequest
	if err := c.Bind(&req); err != nil || req.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId required")
	}
	session, err := s.getOwnedSession(c, user.ID, req.SessionID)
	if err != nil {
		return err
	}

	result, err := s.Summarizer.Summarize(c.Request().Context(), session, req.ForceUpdate)
	if err != nil {
		if err == summarizer.ErrNoMessages {
			return echo.NewHTTPError(http.StatusBadRequest, "No messages to summarize")
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error":     err.Error(),
			"timestamp": time.Now().Unix(),
		})
	}
	if result.Skipped {
		return c.JSON(http.StatusOK, map[string]any{
			"success":                false,
			"needs_summary":          false,
			"messages_since_summary": session.MessagesSinceSummary,
			"threshold":              summarizer.MessagesThreshold,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":             true,
		"summary":             result.Summary,
		"messages_summarized": result.MessagesSummarized,
	})
}

func (s *APIV1Service) getSummarizeStatus(c *echo.Context) error {
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
	return c.JSON(http.StatusOK, map[string]any{
		"needs_summary":          summarizer.Due(session),
		"messages_since_summary": session.MessagesSinceSummary,
		"threshold":              summarizer.MessagesThreshold,
		"has_existing_summary":   session.Summary != "",
		"last_summary_at":        session.SummaryUpdatedTs,
	})
}
