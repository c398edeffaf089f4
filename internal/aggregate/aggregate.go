// Package aggregate reduces per-service probe results to one verdict for the
// whole fleet.
package aggregate

import "github.com/angeloszaimis/health-validator/internal/healthcheck"

// Verdict is the overall health of a set of services.
type Verdict string

const (
	VerdictHealthy   Verdict = "healthy"
	VerdictDegraded  Verdict = "degraded"
	VerdictUnhealthy Verdict = "unhealthy"
)

// Overall returns the worst-case verdict: unhealthy if any service is offline,
// degraded if any is slow, healthy otherwise. An empty map is healthy.
func Overall(services map[string]healthcheck.ServiceHealthInfo) Verdict {
	worst := healthcheck.StatusHealthy
	for _, info := range services {
		if info.Status > worst {
			worst = info.Status
		}
	}

	return FromStatus(worst)
}

// FromStatus maps the worst observed status to its verdict.
func FromStatus(worst healthcheck.Status) Verdict {
	switch worst {
	case healthcheck.StatusHealthy:
		return VerdictHealthy
	case healthcheck.StatusSlow:
		return VerdictDegraded
	default:
		return VerdictUnhealthy
	}
}
