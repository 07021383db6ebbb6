package underwriting

import "github.com/shopspring/decimal"

type tierRule struct {
	tier      Tier
	riskBelow float64
	incomeMin decimal.Decimal
}

// Checked in order; the first rule whose risk and income bounds both hold wins.
var tierRules = []tierRule{
	{Platinum, 0.3, decimal.NewFromInt(1500000)},
	{Gold, 0.5, decimal.NewFromInt(1000000)},
	{Silver, 0.7, decimal.NewFromInt(500000)},
}

// SelectTier maps a risk score and annual income to a tier. Income must
// strictly exceed a rule's minimum. Bronze is returned when no rule matches.
func SelectTier(risk float64, income decimal.Decimal) Tier {
	for _, r := range tierRules {
		if risk < r.riskBelow && income.GreaterThan(r.incomeMin) {
			return r.tier
		}
	}
	return Bronze
}
