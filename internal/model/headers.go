package model

// Headers shared by the client and the services.
const (
	UserIDHeader    = "X-User-Id"
	RequestIDHeader = "X-Request-Id"
)
