package profile

import (
	"context"

	"github.com/google/uuid"
)

// Repository reads the records a user fills in through the profile forms and
// stores lab snapshots. Getters return (nil, nil) when the row is absent.
type Repository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	GetHealth(ctx context.Context, userID uuid.UUID) (*HealthInformation, error)
	GetLifestyle(ctx context.Context, userID uuid.UUID) (*Lifestyle, error)
	GetLabs(ctx context.Context, userID uuid.UUID) (*LabSnapshot, error)
	ListConditionRisks(ctx context.Context, userID uuid.UUID) ([]ConditionRisk, error)
	UpsertLabs(ctx context.Context, labs *LabSnapshot) error
}
