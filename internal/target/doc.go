// Package target defines the static registry of downstream services that the
// validator probes. The registry is built once at startup and is read-only
// afterwards.
package target
