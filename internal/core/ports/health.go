package ports

import "context"

// HealthChecker reports liveness of one backing dependency.
type HealthChecker interface {
	Name() string
	Ping(ctx context.Context) error
}
