package underwriting

import (
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	one        = decimal.NewFromInt(1)
	half       = decimal.NewFromFloat(0.5)
	ageLoading = decimal.NewFromFloat(0.02)
	highRiskSI = decimal.NewFromFloat(0.1)
	twelve     = decimal.NewFromInt(12)
)

// Pricing is the monetary part of a plan.
type Pricing struct {
	MonthlyPremium decimal.Decimal
	AnnualPremium  decimal.Decimal
	SumInsured     decimal.Decimal
	Deductible     int64
	OutOfPocketMax int64
	Copayments     []Copayment
}

// Pricer computes plan amounts from the policy tables.
type Pricer struct {
	policy *Policy
}

func NewPricer(policy *Policy) *Pricer {
	return &Pricer{policy: policy}
}

// Price computes every amount for a tier, risk score, age, income and
// number of High condition risks.
func (p *Pricer) Price(tier Tier, risk float64, age int, income decimal.Decimal, highRisks int) Pricing {
	monthly := p.MonthlyPremium(tier, risk, age)
	return Pricing{
		MonthlyPremium: monthly,
		AnnualPremium:  monthly.Mul(twelve),
		SumInsured:     p.SumInsured(tier, income, highRisks),
		Deductible:     p.Deductible(tier, risk),
		OutOfPocketMax: p.OutOfPocketMax(tier, risk),
		Copayments:     p.Copayments(tier, risk),
	}
}

// MonthlyPremium is base * (1 + (age-18)*0.02) * (1 + risk*0.5), clamped to
// the policy bounds and rounded to 2 decimals.
func (p *Pricer) MonthlyPremium(tier Tier, risk float64, age int) decimal.Decimal {
	ageFactor := one.Add(decimal.NewFromInt(int64(age - 18)).Mul(ageLoading))
	premium := p.policy.BasePremium[tier].Mul(ageFactor).Mul(riskFactor(risk))

	b := p.policy.Bounds
	if premium.LessThan(b.PremiumFloor) {
		premium = b.PremiumFloor
	}
	if premium.GreaterThan(b.PremiumCeiling) {
		premium = b.PremiumCeiling
	}
	return premium.Round(2)
}

// SumInsured is income * multiplier * (1 + 0.1*highRisks), capped at the
// ceiling and rounded to the nearest unit. It never drops below one unit.
func (p *Pricer) SumInsured(tier Tier, income decimal.Decimal, highRisks int) decimal.Decimal {
	b := p.policy.Bounds
	si := income.
		Mul(p.policy.BaseMultiplier[tier]).
		Mul(one.Add(highRiskSI.Mul(decimal.NewFromInt(int64(highRisks)))))
	if si.GreaterThan(b.SumInsuredCeiling) {
		si = b.SumInsuredCeiling
	}
	// Halfway values go to the even unit.
	si = si.Div(b.SumInsuredUnit).RoundBank(0).Mul(b.SumInsuredUnit)
	if si.LessThan(b.SumInsuredUnit) {
		si = b.SumInsuredUnit
	}
	return si
}

// Deductible is base * (1 + risk), truncated.
func (p *Pricer) Deductible(tier Tier, risk float64) int64 {
	return p.policy.BaseDeductible[tier].Mul(one.Add(decimal.NewFromFloat(risk))).IntPart()
}

// OutOfPocketMax is base * (1 + risk*0.5), truncated.
func (p *Pricer) OutOfPocketMax(tier Tier, risk float64) int64 {
	return p.policy.BaseOutOfPocketMax[tier].Mul(riskFactor(risk)).IntPart()
}

// Copayments returns the four service copays. The primary care rate is
// base * (1 + risk*0.5) truncated; specialist is 2x, emergency 5x and generic
// drugs half of it, rounded down.
func (p *Pricer) Copayments(tier Tier, risk float64) []Copayment {
	primary := p.policy.BaseCopay[tier].Mul(riskFactor(risk)).IntPart()
	return []Copayment{
		p.copay(ServicePrimaryCare, primary),
		p.copay(ServiceSpecialist, primary*2),
		p.copay(ServiceEmergency, primary*5),
		p.copay(ServiceGenericDrug, primary/2),
	}
}

func (p *Pricer) copay(service string, v int64) Copayment {
	return Copayment{Service: service, Amount: p.FormatCurrency(v), Value: v}
}

// FormatCurrency renders a whole amount as "<symbol><digits>".
func (p *Pricer) FormatCurrency(v int64) string {
	return p.policy.CurrencySymbol + strconv.FormatInt(v, 10)
}

func riskFactor(risk float64) decimal.Decimal {
	return one.Add(decimal.NewFromFloat(risk).Mul(half))
}
