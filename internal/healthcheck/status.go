package healthcheck

import (
	"fmt"
	"time"
)

// Status is the health tier of a probed service. Values are ordered by
// severity: StatusHealthy < StatusSlow < StatusOffline.
type Status int

const (
	StatusHealthy Status = iota
	StatusSlow
	StatusOffline
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusSlow:
		return "slow"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the defined tiers.
func (s Status) Valid() bool {
	return s >= StatusHealthy && s <= StatusOffline
}

// MarshalText encodes the status as its lowercase wire name.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("healthcheck: invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a lowercase wire name.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus maps a wire name back to its Status.
func ParseStatus(name string) (Status, error) {
	switch name {
	case "healthy":
		return StatusHealthy, nil
	case "slow":
		return StatusSlow, nil
	case "offline":
		return StatusOffline, nil
	default:
		return 0, fmt.Errorf("healthcheck: unknown status %q", name)
	}
}

// ServiceHealthInfo is the result of one probe. LastCheck is taken when the
// probe starts, not when it completes.
type ServiceHealthInfo struct {
	Status    Status    `json:"status"`
	LatencyMS uint64    `json:"latency_ms"`
	LastCheck time.Time `json:"last_check"`
}
