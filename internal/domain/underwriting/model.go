package underwriting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan types.
const (
	PlanIndividual      = "Individual"
	PlanSeniorCitizen   = "Senior Citizen"
	PlanCriticalIllness = "Critical Illness"
)

// Copayment services, in the order plans list them.
const (
	ServicePrimaryCare = "Primary Care Visit"
	ServiceSpecialist  = "Specialist Visit"
	ServiceEmergency   = "Emergency Room Visit"
	ServiceGenericDrug = "Generic Prescription Drugs"
)

// Waiting period categories, in the order plans list them.
const (
	WaitingGeneral            = "General Waiting Period"
	WaitingPreExisting        = "Pre-existing Diseases"
	WaitingSpecificProcedures = "Specific Procedures"
)

// Copayment is the amount a member pays per use of a service.
type Copayment struct {
	Service string `db:"service" json:"service"`
	Amount  string `db:"amount" json:"amount"`
	Value   int64  `db:"value" json:"-"`
}

// WaitingPeriod is the number of months before a category is covered.
type WaitingPeriod struct {
	Category string `db:"category" json:"category"`
	Months   int    `db:"months" json:"months"`
}

// Plan maps to the plans table plus its detail tables (coverage_details,
// copayments, additional_benefits, policy_exclusions, waiting_periods).
type Plan struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	Company        string          `db:"company" json:"company"`
	PlanName       string          `db:"plan_name" json:"plan_name"`
	Tier           Tier            `db:"tier" json:"tier"`
	PlanType       string          `db:"plan_type" json:"plan_type"`
	NetworkType    string          `db:"network_type" json:"network_type"`
	RiskScore      float64         `db:"risk_score" json:"risk_score"`
	MonthlyPremium decimal.Decimal `db:"monthly_premium" json:"monthly_premium"`
	AnnualPremium  decimal.Decimal `db:"annual_premium" json:"annual_premium"`
	SumInsured     decimal.Decimal `db:"sum_insured" json:"sum_insured"`
	Deductible     string          `db:"deductible" json:"deductible"`
	OutOfPocketMax string          `db:"out_of_pocket_max" json:"out_of_pocket_max"`
	EffectiveDate  time.Time       `db:"effective_date" json:"effective_date"`
	ExpirationDate time.Time       `db:"expiration_date" json:"expiration_date"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`

	CoverageDetails    []string        `json:"coverage_details"`
	Copayments         []Copayment     `json:"copayments"`
	AdditionalBenefits []string        `json:"additional_benefits"`
	GeneralExclusions  []string        `json:"general_exclusions"`
	WaitingPeriods     []WaitingPeriod `json:"waiting_periods"`
}

// Copay returns the copayment for service.
func (p *Plan) Copay(service string) (Copayment, bool) {
	for _, c := range p.Copayments {
		if c.Service == service {
			return c, true
		}
	}
	return Copayment{}, false
}

// WaitingMonths returns the waiting period for category.
func (p *Plan) WaitingMonths(category string) (int, bool) {
	for _, w := range p.WaitingPeriods {
		if w.Category == category {
			return w.Months, true
		}
	}
	return 0, false
}

const dateLayout = "2006-01-02"

// PlanView is the API representation of a plan.
type PlanView struct {
	PlanID             uuid.UUID       `json:"plan_id"`
	Company            string          `json:"company"`
	PlanName           string          `json:"plan_name"`
	Tier               Tier            `json:"tier"`
	PlanType           string          `json:"plan_type"`
	NetworkType        string          `json:"network_type"`
	MonthlyPremium     decimal.Decimal `json:"monthly_premium"`
	AnnualPremium      decimal.Decimal `json:"annual_premium"`
	SumInsured         decimal.Decimal `json:"sum_insured"`
	Deductible         string          `json:"deductible"`
	OutOfPocketMax     string          `json:"out_of_pocket_max"`
	EffectiveDate      string          `json:"effective_date"`
	ExpirationDate     string          `json:"expiration_date"`
	CoverageDetails    []string        `json:"coverage_details"`
	Copayments         []Copayment     `json:"copayments"`
	AdditionalBenefits []string        `json:"additional_benefits"`
	GeneralExclusions  []string        `json:"general_exclusions"`
	WaitingPeriods     map[string]int  `json:"waiting_periods"`
}

// View renders p for API responses.
func (p *Plan) View() PlanView {
	waiting := make(map[string]int, len(p.WaitingPeriods))
	for _, w := range p.WaitingPeriods {
		waiting[w.Category] = w.Months
	}
	return PlanView{
		PlanID:             p.ID,
		Company:            p.Company,
		PlanName:           p.PlanName,
		Tier:               p.Tier,
		PlanType:           p.PlanType,
		NetworkType:        p.NetworkType,
		MonthlyPremium:     p.MonthlyPremium,
		AnnualPremium:      p.AnnualPremium,
		SumInsured:         p.SumInsured,
		Deductible:         p.Deductible,
		OutOfPocketMax:     p.OutOfPocketMax,
		EffectiveDate:      p.EffectiveDate.Format(dateLayout),
		ExpirationDate:     p.ExpirationDate.Format(dateLayout),
		CoverageDetails:    p.CoverageDetails,
		Copayments:         p.Copayments,
		AdditionalBenefits: p.AdditionalBenefits,
		GeneralExclusions:  p.GeneralExclusions,
		WaitingPeriods:     waiting,
	}
}
