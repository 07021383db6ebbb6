package claims

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts a claim and fills its ID and ProcessedAt.
	Create(ctx context.Context, c *ClaimStatus) error
	// ListByUser returns a page of a user's claims in insertion order and the
	// total count.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ClaimStatus, int, error)
	// GetPolicyContext reads the user's plan and medical background in one
	// query. Absent records leave their fields empty.
	GetPolicyContext(ctx context.Context, userID uuid.UUID) (*PolicyContext, error)
}
