package ports

import "context"

// HealthChecker checks external dependency health.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
