// Package httpserver wraps net/http.Server with address validation, timeouts
// sized for probing rounds, and graceful shutdown.
package httpserver
