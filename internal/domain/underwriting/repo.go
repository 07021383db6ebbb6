package underwriting

import (
	"context"

	"github.com/google/uuid"
)

// PlanRepository stores the single current plan of each user.
type PlanRepository interface {
	// GetByUser returns the user's plan with its details, or nil if none.
	GetByUser(ctx context.Context, userID uuid.UUID) (*Plan, error)
	// Save inserts the plan or updates the existing one in place, replacing
	// every detail collection. created reports whether a new plan row was
	// inserted. The write is atomic.
	Save(ctx context.Context, p *Plan) (created bool, err error)
}
