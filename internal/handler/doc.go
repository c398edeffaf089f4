// Package handler exposes the validator over HTTP: /validate runs a probing
// round, /services reports the cached view and /health answers liveness.
// Every response is JSON and per-dependency failures never change the HTTP
// status code.
package handler
