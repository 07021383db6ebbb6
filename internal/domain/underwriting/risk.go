package underwriting

import "github.com/healthshield/backoffice/internal/domain/profile"

// Risk contributions in hundredths, so sums stay exact.
const (
	riskBase          = 50
	riskPerHigh       = 10
	riskPerMedium     = 5
	riskSmoker        = 10
	riskAlcohol       = 5
	riskBMI           = 5
	riskBloodPressure = 5
	riskAgeOver50     = 10
	riskAgeOver40     = 5
	riskHistory       = 10
	riskCap           = 100
)

// Score converts a snapshot into a risk score in [0.5, 1.0]. It is pure and
// deterministic; nil parts of the snapshot contribute nothing.
func Score(s *profile.Snapshot) float64 {
	pts := riskBase
	pts += riskPerHigh*s.CountRisk(profile.RiskHigh) + riskPerMedium*s.CountRisk(profile.RiskMedium)

	if l := s.Lifestyle; l != nil {
		if l.SmokingStatus != "Never" {
			pts += riskSmoker
		}
		if l.AlcoholConsumption == "Moderate" || l.AlcoholConsumption == "Heavy" {
			pts += riskAlcohol
		}
	}
	if lab := s.Labs; lab != nil {
		if lab.BMI > 30 || lab.BMI < 18.5 {
			pts += riskBMI
		}
		if lab.SystolicBP > 140 || lab.DiastolicBP > 90 {
			pts += riskBloodPressure
		}
	}
	if p := s.Profile; p != nil {
		switch {
		case p.Age > 50:
			pts += riskAgeOver50
		case p.Age > 40:
			pts += riskAgeOver40
		}
	}
	if s.Health.ReportsHistory() {
		pts += riskHistory
	}

	if pts > riskCap {
		pts = riskCap
	}
	return float64(pts) / 100
}
