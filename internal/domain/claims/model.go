package claims

import (
	"time"

	"github.com/google/uuid"
)

// Decision is the adjudication outcome of a claim.
type Decision string

const (
	DecisionApproved  Decision = "Claim Approved"
	DecisionCancelled Decision = "Claim Cancelled"
	DecisionInReview  Decision = "Claim in review"
)

// ClaimStatus maps to the claim_status table. Rows are written once and never
// updated.
type ClaimStatus struct {
	ID          int64     `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Decision    Decision  `db:"decision" json:"decision"`
	Reason      string    `db:"reason" json:"reason"`
	BillName    string    `db:"bill_name" json:"bill_name"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}

// ClaimView is a claim history entry.
type ClaimView struct {
	BillName string   `json:"bill_name"`
	Status   Decision `json:"status"`
	Reason   string   `json:"reason"`
	Date     string   `json:"date"`
}

func (c *ClaimStatus) View() ClaimView {
	return ClaimView{
		BillName: c.BillName,
		Status:   c.Decision,
		Reason:   c.Reason,
		Date:     c.ProcessedAt.Format("2006-01-02"),
	}
}

// PolicyContext is what the classifier is told about the claimant: their plan
// terms and detail collections, flattened to text, plus medical background.
// Every field is empty when the underlying record is absent, and UserExists
// is false when the claimant has no account at all.
type PolicyContext struct {
	UserExists         bool
	HasPlan            bool
	Company            string
	PlanName           string
	Tier               string
	PlanType           string
	NetworkType        string
	SumInsured         string
	Deductible         string
	OutOfPocketMax     string
	EffectiveDate      string
	ExpirationDate     string
	CoverageItems      string
	Copayments         string
	AdditionalBenefits string
	GeneralExclusions  string
	WaitingPeriods     string
	LatestPrescription string
	MedicalHistory     string
	CurrentMedications string
}
