package health

import "context"

// StorePinger checks vector store availability.
type StorePinger interface {
	Ready() bool
	Ping(ctx context.Context) error
}

// ModelChecker checks model runtime availability.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}
