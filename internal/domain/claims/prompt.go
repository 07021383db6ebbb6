package claims

import (
	"fmt"
	"strings"
)

const classificationInstructions = `Based on the provided information and policy details:
1. Does the treatment mentioned in the hospital bill fall under your insurance coverage?
2. Is the reason for treatment consistent with your medical history and current condition?

Your task:
- If everything aligns and the treatment is covered, respond with 'Answer: Claim Approved' followed by a brief reason.
- If the treatment is not covered under the policy, respond with 'Answer: Claim Cancelled' followed by a brief reason.
- If you are unsure and a manual review is needed, respond with 'Answer: Claim in review' followed by a brief reason.

Address the policyholder directly as "you" and "your", never as "the user".
Keep the reason under 100 characters.
Return format: 'Answer: Claim Approved/Claim Cancelled/Claim in review. Reason: <reason>'`

// BuildPrompt renders the classification request for one claim.
func BuildPrompt(billText, treatmentReason string, pc *PolicyContext) string {
	var b strings.Builder
	b.WriteString("Please evaluate the following insurance claim.\n\n")
	fmt.Fprintf(&b, "Hospital bill text:\n%s\n\n", strings.TrimSpace(billText))
	fmt.Fprintf(&b, "Reason for treatment: %s\n\n", strings.TrimSpace(treatmentReason))
	b.WriteString("Policy and medical details:\n")
	b.WriteString(renderContext(pc))
	b.WriteString("\n")
	b.WriteString(classificationInstructions)
	b.WriteString("\n")
	return b.String()
}

func renderContext(pc *PolicyContext) string {
	if pc == nil {
		pc = &PolicyContext{}
	}
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			value = "not available"
		}
		fmt.Fprintf(&b, "- %s: %s\n", label, value)
	}
	if !pc.HasPlan {
		b.WriteString("- Insurance plan: none on record\n")
	} else {
		line("Company", pc.Company)
		line("Plan name", pc.PlanName)
		line("Tier", pc.Tier)
		line("Plan type", pc.PlanType)
		line("Network type", pc.NetworkType)
		line("Sum insured", pc.SumInsured)
		line("Deductible", pc.Deductible)
		line("Out-of-pocket maximum", pc.OutOfPocketMax)
		line("Effective date", pc.EffectiveDate)
		line("Expiration date", pc.ExpirationDate)
		line("Coverage", pc.CoverageItems)
		line("Copayments", pc.Copayments)
		line("Additional benefits", pc.AdditionalBenefits)
		line("General exclusions", pc.GeneralExclusions)
		line("Waiting periods", pc.WaitingPeriods)
	}
	line("Latest prescription", pc.LatestPrescription)
	line("Medical history", pc.MedicalHistory)
	line("Current medications", pc.CurrentMedications)
	return b.String()
}
