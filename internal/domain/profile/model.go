package profile

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Risk levels of a ConditionRisk.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// NoMajorIssues is the medical history text the profile form stores when the
// user reports nothing.
const NoMajorIssues = "No major issues"

// Profile maps to the profiles table.
type Profile struct {
	UserID       uuid.UUID       `db:"user_id" json:"user_id"`
	FullName     string          `db:"full_name" json:"full_name"`
	DateOfBirth  *time.Time      `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Age          int             `db:"age" json:"age"`
	Gender       string          `db:"gender" json:"gender"`
	Phone        string          `db:"phone" json:"phone,omitempty"`
	District     string          `db:"district" json:"district,omitempty"`
	State        string          `db:"state" json:"state,omitempty"`
	Occupation   string          `db:"occupation" json:"occupation,omitempty"`
	AnnualIncome decimal.Decimal `db:"annual_income" json:"annual_income"`
	HeightCM     float64         `db:"height_cm" json:"height_cm"`
	WeightKG     float64         `db:"weight_kg" json:"weight_kg"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// BMI derives body-mass index from height and weight. ok is false when the
// height is unknown.
func (p *Profile) BMI() (bmi float64, ok bool) {
	if p.HeightCM <= 0 {
		return 0, false
	}
	m := p.HeightCM / 100
	return p.WeightKG / (m * m), true
}

// HealthInformation maps to the health_information table.
type HealthInformation struct {
	UserID               uuid.UUID `db:"user_id" json:"user_id"`
	MedicalHistory       string    `db:"medical_history" json:"medical_history"`
	FamilyMedicalHistory string    `db:"family_medical_history" json:"family_medical_history,omitempty"`
	Allergies            string    `db:"allergies" json:"allergies,omitempty"`
	CurrentMedications   string    `db:"current_medications" json:"current_medications,omitempty"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// ReportsHistory reports whether the user recorded a medical history other
// than the "No major issues" placeholder.
func (h *HealthInformation) ReportsHistory() bool {
	if h == nil {
		return false
	}
	text := h.MedicalHistory
	return text != "" && text != NoMajorIssues
}

// Lifestyle maps to the lifestyle table. The categorical fields hold
// Never/Former/Current (smoking), None/Light/Moderate/Heavy (alcohol),
// None/Light/Moderate/High (activity) and Low/Medium/High (stress).
type Lifestyle struct {
	UserID                uuid.UUID `db:"user_id" json:"user_id"`
	SmokingStatus         string    `db:"smoking_status" json:"smoking_status"`
	AlcoholConsumption    string    `db:"alcohol_consumption" json:"alcohol_consumption"`
	PhysicalActivity      string    `db:"physical_activity" json:"physical_activity"`
	FamilyHistoryCVD      bool      `db:"family_history_cvd" json:"family_history_cvd"`
	FamilyHistoryDiabetes bool      `db:"family_history_diabetes" json:"family_history_diabetes"`
	FamilyHistoryCancer   bool      `db:"family_history_cancer" json:"family_history_cancer"`
	StressLevel           string    `db:"stress_level" json:"stress_level"`
	SleepHours            int       `db:"sleep_hours" json:"sleep_hours"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// LabSnapshot maps to the lab_snapshots table: the latest lab measurements of
// a user, one row per user.
type LabSnapshot struct {
	UserID              uuid.UUID `db:"user_id" json:"user_id"`
	BMI                 float64   `db:"bmi" json:"bmi"`
	SystolicBP          float64   `db:"systolic_bp" json:"systolic_bp"`
	DiastolicBP         float64   `db:"diastolic_bp" json:"diastolic_bp"`
	CholesterolTotal    float64   `db:"cholesterol_total" json:"cholesterol_total"`
	CholesterolHDL      float64   `db:"cholesterol_hdl" json:"cholesterol_hdl"`
	CholesterolLDL      float64   `db:"cholesterol_ldl" json:"cholesterol_ldl"`
	Triglycerides       float64   `db:"triglycerides" json:"triglycerides"`
	BloodGlucoseFasting float64   `db:"blood_glucose_fasting" json:"blood_glucose_fasting"`
	HbA1c               float64   `db:"hba1c" json:"hba1c"`
	FruitsVeggiesDaily  float64   `db:"fruits_veggies_daily" json:"fruits_veggies_daily"`
	Creatinine          float64   `db:"creatinine" json:"creatinine"`
	EGFR                float64   `db:"egfr" json:"egfr"`
	ALT                 float64   `db:"alt" json:"alt"`
	AST                 float64   `db:"ast" json:"ast"`
	TSH                 float64   `db:"tsh" json:"tsh"`
	T4                  float64   `db:"t4" json:"t4"`
	VitaminD            float64   `db:"vitamin_d" json:"vitamin_d"`
	Calcium             float64   `db:"calcium" json:"calcium"`
	Hemoglobin          float64   `db:"hemoglobin" json:"hemoglobin"`
	WhiteBloodCellCount float64   `db:"white_blood_cell_count" json:"white_blood_cell_count"`
	PlateletCount       float64   `db:"platelet_count" json:"platelet_count"`
	CReactiveProtein    float64   `db:"c_reactive_protein" json:"c_reactive_protein"`
	VitaminB12          float64   `db:"vitamin_b12" json:"vitamin_b12"`
	Folate              float64   `db:"folate" json:"folate"`
	Ferritin            float64   `db:"ferritin" json:"ferritin"`
	UricAcid            float64   `db:"uric_acid" json:"uric_acid"`
	PSA                 float64   `db:"psa" json:"psa"`
	BoneDensityTScore   float64   `db:"bone_density_t_score" json:"bone_density_t_score"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// ConditionRisk maps to the condition_risks table: one prediction per
// (user, condition).
type ConditionRisk struct {
	ConditionName string  `db:"condition_name" json:"condition_name"`
	Probability   float64 `db:"probability" json:"probability"`
	RiskLevel     string  `db:"risk_level" json:"risk_level"`
}

// Snapshot is the read-only bundle plan generation works from. It is
// assembled per request and never stored.
type Snapshot struct {
	Profile   *Profile           `json:"profile"`
	Health    *HealthInformation `json:"health"`
	Lifestyle *Lifestyle         `json:"lifestyle"`
	Labs      *LabSnapshot       `json:"labs"`
	Risks     []ConditionRisk    `json:"condition_risks"`
}

// CountRisk returns the number of predictions at the given level.
func (s *Snapshot) CountRisk(level string) int {
	n := 0
	for _, r := range s.Risks {
		if r.RiskLevel == level {
			n++
		}
	}
	return n
}

// HighRiskCount returns the number of High predictions.
func (s *Snapshot) HighRiskCount() int { return s.CountRisk(RiskHigh) }

// HasHighRisk reports whether any prediction is High.
func (s *Snapshot) HasHighRisk() bool { return s.HighRiskCount() > 0 }

// HasHighRiskFor reports whether the named condition is predicted High.
func (s *Snapshot) HasHighRiskFor(condition string) bool {
	for _, r := range s.Risks {
		if r.ConditionName == condition && r.RiskLevel == RiskHigh {
			return true
		}
	}
	return false
}

// HighRiskConditions returns the names of High predictions in stored order.
func (s *Snapshot) HighRiskConditions() []string {
	var names []string
	for _, r := range s.Risks {
		if r.RiskLevel == RiskHigh {
			names = append(names, r.ConditionName)
		}
	}
	return names
}
