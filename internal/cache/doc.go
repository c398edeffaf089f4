// Package cache holds the most recent probe result per service name.
//
// A Cache is shared by every in-flight validation round. Readers take a
// point-in-time copy with GetAll; a round publishes its results with PutMany
// or Merge under a single write lock, so a reader never sees half of a round.
// Keys are only added or replaced, never removed.
package cache
