package underwriting

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/healthshield/backoffice/internal/domain/profile"
)

func testPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := DefaultPolicy()
	require.NoError(t, err)
	return p
}

// baselineSnapshot scores exactly 0.5: a 30 year old non-smoker with normal
// labs, no reported history and no predictions.
func baselineSnapshot() *profile.Snapshot {
	id := uuid.New()
	return &profile.Snapshot{
		Profile: &profile.Profile{
			UserID:       id,
			Age:          30,
			Gender:       "Male",
			AnnualIncome: decimal.NewFromInt(800000),
			HeightCM:     175,
			WeightKG:     70,
		},
		Health:    &profile.HealthInformation{UserID: id, MedicalHistory: profile.NoMajorIssues},
		Lifestyle: &profile.Lifestyle{UserID: id, SmokingStatus: "Never", AlcoholConsumption: "None", PhysicalActivity: "Moderate", StressLevel: "Low", SleepHours: 7},
		Labs:      &profile.LabSnapshot{UserID: id, BMI: 22.9, SystolicBP: 120, DiastolicBP: 80},
	}
}

func withRisks(s *profile.Snapshot, risks ...profile.ConditionRisk) *profile.Snapshot {
	s.Risks = append(s.Risks, risks...)
	return s
}

func high(name string) profile.ConditionRisk {
	return profile.ConditionRisk{ConditionName: name, Probability: 0.8, RiskLevel: profile.RiskHigh}
}

func medium(name string) profile.ConditionRisk {
	return profile.ConditionRisk{ConditionName: name, Probability: 0.5, RiskLevel: profile.RiskMedium}
}

func low(name string) profile.ConditionRisk {
	return profile.ConditionRisk{ConditionName: name, Probability: 0.1, RiskLevel: profile.RiskLow}
}

// zeroRand always draws the first remaining item.
type zeroRand struct{}

func (zeroRand) Intn(int) int { return 0 }

// lastRand always draws the last remaining item.
type lastRand struct{}

func (lastRand) Intn(n int) int { return n - 1 }
