package store

import "encoding/json"

// Tool server connection states.
const (
	ToolServerStatusPending   = "pending"
	ToolServerStatusConnected = "connected"
	ToolServerStatusError     = "error"
)

// ToolServer is a user-registered connection to an external tool server.
type ToolServer struct {
	ID        int32
	UID       string
	CreatorID string

	Name          string
	Description   string
	TransportType string
	// Config holds transport-specific settings (endpoint URL, headers, ...)
	// as free-form JSON.
	Config json.RawMessage

	Status       string
	LastPingTs   *int64
	ErrorMessage string

	CreatedTs int64
	UpdatedTs int64
}

// FindToolServer filters for ListToolServers.
type FindToolServer struct {
	UID       *string
	CreatorID *string
}

// UpdateToolServer carries fields accepted by UpdateToolServer.
type UpdateToolServer struct {
	UID       string
	CreatorID string

	Name        *string
	Description *string
	Config      json.RawMessage

	// Status/LastPingTs/ErrorMessage are set by the reachability probe.
	Status       *string
	LastPingTs   *int64
	ErrorMessage *string
}
