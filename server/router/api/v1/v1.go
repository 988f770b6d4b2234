// Package v1 exposes the JSON API under /api/v1.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/toolhub/toolhub/plugin/llm"
	"github.com/toolhub/toolhub/server/auth"
	"github.com/toolhub/toolhub/server/profile"
	"github.com/toolhub/toolhub/server/summarizer"
	"github.com/toolhub/toolhub/store"
)

type APIV1Service struct {
	Secret     string
	Profile    *profile.Profile
	Store      *store.Store
	LLM        *llm.Client
	Summarizer *summarizer.Summarizer
	Trigger    *summarizer.Trigger

	authenticator *auth.Authenticator
}

// NewAPIV1Service wires the handler set. llmClient may be nil when no API
// key is configured; generation endpoints then fail with 503 while the
// store endpoints keep working.
func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store, llmClient *llm.Client) *APIV1Service {
	s := &APIV1Service{
		Secret:        secret,
		Profile:       profile,
		Store:         store,
		LLM:           llmClient,
		authenticator: auth.NewAuthenticator(secret),
	}
	if llmClient != nil {
		s.Summarizer = summarizer.New(store, llmClient)
		s.Trigger = summarizer.NewTrigger(s.Summarizer)
	}
	return s
}

func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.GET("/chat/sessions", s.listChatSessions)
	g.POST("/chat/sessions", s.createChatSession)
	g.PATCH("/chat/sessions", s.updateChatSession)
	g.DELETE("/chat/sessions", s.deleteChatSession)

	g.GET("/chat/messages", s.listChatMessages)
	g.POST("/chat/messages", s.createChatMessage)
	g.PUT("/chat/messages", s.importChatMessages)

	g.POST("/chat", s.handleChat)

	g.POST("/chat/summarize", s.summarizeSession)
	g.GET("/chat/summarize", s.getSummarizeStatus)

	g.GET("/toolservers", s.listToolServers)
	g.POST("/toolservers", s.createToolServer)
	g.PATCH("/toolservers", s.updateToolServer)
	g.DELETE("/toolservers", s.deleteToolServer)
	g.POST("/toolservers/ping", s.pingToolServer)
}

func (s *APIV1Service) requireAuth(c *echo.Context) (*auth.User, error) {
	user, err := s.authenticator.Authenticate(
		c.Request().Header.Get("Authorization"),
		c.Request().Header.Get("Cookie"),
	)
	if err != nil || user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return user, nil
}
