// Package httpapi provides HTTP handlers and data transfer objects for the user count API.
package httpapi

// RootResponse describes the service and its endpoints
type RootResponse struct {
	Message   string    `json:"message"`
	Version   string    `json:"version"`
	Endpoints Endpoints `json:"endpoints"`
}

// Endpoints lists the paths served by the API
type Endpoints struct {
	UserCount string `json:"userCount"`
	Health    string `json:"health"`
}

// UserCountResponse represents the user count response
type UserCountResponse struct {
	TotalUsers int64 `json:"totalUsers"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}
