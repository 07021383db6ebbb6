package underwriting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/healthshield/backoffice/internal/domain/profile"
)

func TestScore_Factors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *profile.Snapshot)
		want   float64
	}{
		{"baseline", func(s *profile.Snapshot) {}, 0.50},
		{"one high risk", func(s *profile.Snapshot) { withRisks(s, high("Diabetes")) }, 0.60},
		{"one medium risk", func(s *profile.Snapshot) { withRisks(s, medium("Diabetes")) }, 0.55},
		{"low risk adds nothing", func(s *profile.Snapshot) { withRisks(s, low("Diabetes")) }, 0.50},
		{"former smoker", func(s *profile.Snapshot) { s.Lifestyle.SmokingStatus = "Former" }, 0.60},
		{"current smoker", func(s *profile.Snapshot) { s.Lifestyle.SmokingStatus = "Current" }, 0.60},
		{"moderate alcohol", func(s *profile.Snapshot) { s.Lifestyle.AlcoholConsumption = "Moderate" }, 0.55},
		{"heavy alcohol", func(s *profile.Snapshot) { s.Lifestyle.AlcoholConsumption = "Heavy" }, 0.55},
		{"light alcohol", func(s *profile.Snapshot) { s.Lifestyle.AlcoholConsumption = "Light" }, 0.50},
		{"obese", func(s *profile.Snapshot) { s.Labs.BMI = 30.1 }, 0.55},
		{"bmi 30 is not obese", func(s *profile.Snapshot) { s.Labs.BMI = 30 }, 0.50},
		{"underweight", func(s *profile.Snapshot) { s.Labs.BMI = 18.4 }, 0.55},
		{"systolic high", func(s *profile.Snapshot) { s.Labs.SystolicBP = 141 }, 0.55},
		{"diastolic high", func(s *profile.Snapshot) { s.Labs.DiastolicBP = 91 }, 0.55},
		{"both pressures high count once", func(s *profile.Snapshot) { s.Labs.SystolicBP, s.Labs.DiastolicBP = 160, 100 }, 0.55},
		{"age 41", func(s *profile.Snapshot) { s.Profile.Age = 41 }, 0.55},
		{"age 50", func(s *profile.Snapshot) { s.Profile.Age = 50 }, 0.55},
		{"age 51", func(s *profile.Snapshot) { s.Profile.Age = 51 }, 0.60},
		{"age 40", func(s *profile.Snapshot) { s.Profile.Age = 40 }, 0.50},
		{"reported history", func(s *profile.Snapshot) { s.Health.MedicalHistory = "Hypertension since 2019" }, 0.60},
		{"empty history", func(s *profile.Snapshot) { s.Health.MedicalHistory = "" }, 0.50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := baselineSnapshot()
			tt.mutate(s)
			assert.InDelta(t, tt.want, Score(s), 1e-9)
		})
	}
}

func TestScore_CappedAtOne(t *testing.T) {
	s := withRisks(baselineSnapshot(), high("Heart_Disease_Risk"), high("Diabetes"), high("Cancer_Risk"))
	s.Lifestyle.SmokingStatus = "Current"
	s.Lifestyle.AlcoholConsumption = "Heavy"
	s.Labs.BMI = 35
	s.Labs.SystolicBP = 170
	s.Profile.Age = 70
	s.Health.MedicalHistory = "Myocardial infarction"

	assert.Equal(t, 1.0, Score(s))
}

func TestScore_AlwaysWithinBounds(t *testing.T) {
	smoking := []string{"Never", "Former", "Current"}
	alcohol := []string{"None", "Light", "Moderate", "Heavy"}
	bmis := []float64{15, 22, 35}
	ages := []int{18, 45, 75}
	histories := []string{profile.NoMajorIssues, "", "Asthma"}
	riskSets := [][]profile.ConditionRisk{
		nil,
		{low("A")},
		{medium("A"), medium("B")},
		{high("A"), high("B"), high("C"), high("D"), high("E"), high("F")},
	}

	for _, sm := range smoking {
		for _, al := range alcohol {
			for _, bmi := range bmis {
				for _, age := range ages {
					for _, h := range histories {
						for _, rs := range riskSets {
							s := baselineSnapshot()
							s.Lifestyle.SmokingStatus = sm
							s.Lifestyle.AlcoholConsumption = al
							s.Labs.BMI = bmi
							s.Profile.Age = age
							s.Health.MedicalHistory = h
							s.Risks = rs

							got := Score(s)
							if got < 0.5 || got > 1.0 {
								t.Fatalf("score %v out of [0.5, 1.0] for %+v", got, s)
							}
						}
					}
				}
			}
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	s := withRisks(baselineSnapshot(), medium("Diabetes"))
	s.Profile.Age = 47
	first := Score(s)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(s))
	}
}
