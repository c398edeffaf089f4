// Package healthcheck implements the single-target probe. A probe issues one
// bounded HTTP GET against a dependency, measures how long it took and folds
// the outcome into a Status: healthy, slow or offline.
package healthcheck
