package domain

import "context"

// Repository is the read port for order aggregates. Writes go through the
// unit of work so that persistence and event dispatch stay coordinated.
type Repository interface {
	// GetByID returns the aggregate or a NotFoundError.
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByCustomerID(ctx context.Context, customerID string) ([]*Order, error)
	GetByStatus(ctx context.Context, status Status) ([]*Order, error)
}
