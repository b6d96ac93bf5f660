// Package api provides the HTTP surface over the mapping engine: train,
// predict, and feedback.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string
}
