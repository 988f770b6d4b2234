package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/toolhub/toolhub/store"
)

type toolServerResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	TransportType string          `json:"transport_type"`
	Config        json.RawMessage `json:"config"`
	Status        string          `json:"status"`
	LastPingAt    *int64          `json:"last_ping_at,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	CreatedAt     int64           `json:"created_at"`
	UpdatedAt     int64           `json:"updated_at"`
}

func toToolServerResponse(t *store.ToolServer) toolServerResponse {
	return toolServerResponse{
		ID:            t.UID,
		Name:          t.Name,
		Description:   t.Description,
		TransportType: t.TransportType,
		Config:        t.Config,
		Status:        t.Status,
		LastPingAt:    t.LastPingTs,
		ErrorMessage:  t.ErrorMessage,
		CreatedAt:     t.CreatedTs,
		UpdatedAt:     t.UpdatedTs,
	}
}

func (s *APIV1Service) listToolServers(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	servers, err := s.Store.ListToolServers(c.Request().Context(), &store.FindToolServer{
		CreatorID: &user.ID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]toolServerResponse, 0, len(servers))
	for _, server := range servers {
		resp = append(resp, toToolServerResponse(server))
	}
	return c.JSON(http.StatusOK, map[string]any{"servers": resp})
}

type createToolServerRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	TransportType string          `json:"transport_type"`
	Config        json.RawMessage `json:"config"`
}

func (s *APIV1Service) createToolServer(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	var req createToolServerRequest
	if err := c.Bind(&req); err != nil || req.Name == "" || req.TransportType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and transport_type required")
	}
	server, err := s.Store.CreateToolServer(c.Request().Context(), &store.ToolServer{
		UID:           uuid.New().String(),
		CreatorID:     user.ID,
		Name:          req.Name,
		Description:   req.Description,
		TransportType: req.TransportType,
		Config:        req.Config,
		Status:        store.ToolServerStatusPending,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]any{"server": toToolServerResponse(server)})
}

type updateToolServerRequest struct {
	ServerID    string          `json:"serverId"`
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Config      json.RawMessage `json:"config"`
}

func (s *APIV1Service) updateToolServer(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	var req updateToolServerRequest
	if err := c.Bind(&req); err != nil || req.ServerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "serverId required")
	}
	server, err := s.Store.UpdateToolServer(c.Request().Context(), &store.UpdateToolServer{
		UID:         req.ServerID,
		CreatorID:   user.ID,
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config,
	})
	if err != nil {
		if err == store.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "server not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"server": toToolServerResponse(server)})
}

func (s *APIV1Service) deleteToolServer(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	serverID := c.QueryParam("serverId")
	if serverID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "serverId required")
	}
	if err := s.Store.DeleteToolServer(c.Request().Context(), serverID, user.ID); err != nil {
		if err == store.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "server not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

type pingToolServerRequest struct {
	ServerID string `json:"serverId"`
}

// pingToolServer probes the server's configured endpoint and records the
// outcome on the registration.
func (s *APIV1Service) pingToolServer(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	var req pingToolServerRequest
	if err := c.Bind(&req); err != nil || req.ServerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "serverId required")
	}
	ctx := c.Request().Context()
	server, err := s.Store.GetToolServer(ctx, &store.FindToolServer{
		UID:       &req.ServerID,
		CreatorID: &user.ID,
	})
	if err != nil {
		if err == store.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "server not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	status, errorMessage := probeToolServer(ctx, server)
	now := time.Now().Unix()
	updated, err := s.Store.UpdateToolServer(ctx, &store.UpdateToolServer{
		UID:          server.UID,
		CreatorID:    user.ID,
		Status:       &status,
		LastPingTs:   &now,
		ErrorMessage: &errorMessage,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"server": toToolServerResponse(updated)})
}

func probeToolServer(ctx context.Context, server *store.ToolServer) (status, errorMessage string) {
	var config struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(server.Config, &config); err != nil || config.URL == "" {
		return store.ToolServerStatusError, "config has no url"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.URL, nil)
	if err != nil {
		return store.ToolServerStatusError, err.Error()
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return store.ToolServerStatusError, err.Error()
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return store.ToolServerStatusError, resp.Status
	}
	return store.ToolServerStatusConnected, ""
}
