// Package config loads the validator configuration from config.yaml and
// environment variables. It covers the listen address, the probe timeout and
// slow threshold, the list of dependency targets and the telemetry exporters.
// Configuration is read once at startup and never reloaded.
package config
