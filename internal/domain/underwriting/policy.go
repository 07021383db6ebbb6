package underwriting

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed default_policy.yml
var defaultPolicyYAML []byte

// Tier is a coverage level.
type Tier string

const (
	Bronze   Tier = "Bronze"
	Silver   Tier = "Silver"
	Gold     Tier = "Gold"
	Platinum Tier = "Platinum"
)

// Tiers lists every tier from lowest to highest.
var Tiers = []Tier{Bronze, Silver, Gold, Platinum}

// Network types.
const (
	NetworkHMO = "HMO"
	NetworkPPO = "PPO"
	NetworkEPO = "EPO"
)

var knownNetworks = map[string]bool{NetworkHMO: true, NetworkPPO: true, NetworkEPO: true}

// TierValues holds one amount per tier.
type TierValues map[Tier]decimal.Decimal

// CoverageCatalog lists the coverage lines a plan can carry.
type CoverageCatalog struct {
	Basic        []string `yaml:"basic"`
	Additional   []string `yaml:"additional"`
	GoldPlatinum []string `yaml:"gold_platinum"`
}

// WaitingPeriodTable holds waiting periods in months.
type WaitingPeriodTable struct {
	General            int `yaml:"general"`
	PreExistingHigh    int `yaml:"pre_existing_high"`
	PreExistingLow     int `yaml:"pre_existing_low"`
	SpecificProcedures int `yaml:"specific_procedures"`
}

// Bounds are the hard limits applied to computed amounts.
type Bounds struct {
	PremiumFloor      decimal.Decimal `yaml:"premium_floor"`
	PremiumCeiling    decimal.Decimal `yaml:"premium_ceiling"`
	SumInsuredCeiling decimal.Decimal `yaml:"sum_insured_ceiling"`
	SumInsuredUnit    decimal.Decimal `yaml:"sum_insured_unit"`
}

// Policy is the table set plan generation prices and assembles from.
type Policy struct {
	CurrencySymbol     string             `yaml:"currency_symbol"`
	Companies          []string           `yaml:"companies"`
	NetworkTypes       []string           `yaml:"network_types"`
	BasePremium        TierValues         `yaml:"base_premium"`
	BaseMultiplier     TierValues         `yaml:"base_multiplier"`
	BaseDeductible     TierValues         `yaml:"base_deductible"`
	BaseOutOfPocketMax TierValues         `yaml:"base_out_of_pocket_max"`
	BaseCopay          TierValues         `yaml:"base_copay"`
	BenefitCount       map[Tier]int       `yaml:"benefit_count"`
	Coverage           CoverageCatalog    `yaml:"coverage"`
	Benefits           []string           `yaml:"benefits"`
	Exclusions         []string           `yaml:"exclusions"`
	ExclusionCount     int                `yaml:"exclusion_count"`
	WaitingPeriods     WaitingPeriodTable `yaml:"waiting_periods"`
	Bounds             Bounds             `yaml:"bounds"`
}

type policyFile struct {
	Insurance *Policy `yaml:"insurance"`
}

// DefaultPolicy returns the policy tables compiled into the binary.
func DefaultPolicy() (*Policy, error) {
	return ParsePolicy(defaultPolicyYAML)
}

// LoadPolicy reads a policy file. An empty path yields the default policy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML document with an `insurance:` root, fills the
// optional settings and validates the result.
func ParsePolicy(data []byte) (*Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse policy YAML: %w", err)
	}
	if f.Insurance == nil {
		return nil, fmt.Errorf("policy validation failed: missing insurance section")
	}
	p := f.Insurance
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("policy validation failed: %w", err)
	}
	return p, nil
}

func (p *Policy) applyDefaults() {
	if p.CurrencySymbol == "" {
		p.CurrencySymbol = "₹"
	}
	if len(p.NetworkTypes) == 0 {
		p.NetworkTypes = []string{NetworkHMO, NetworkPPO, NetworkEPO}
	}
	if p.BenefitCount == nil {
		p.BenefitCount = map[Tier]int{Bronze: 2, Silver: 3, Gold: 4, Platinum: 5}
	}
	if p.ExclusionCount == 0 {
		p.ExclusionCount = 3
	}
	b := &p.Bounds
	if b.PremiumFloor.IsZero() {
		b.PremiumFloor = decimal.NewFromInt(500)
	}
	if b.PremiumCeiling.IsZero() {
		b.PremiumCeiling = decimal.NewFromInt(20000)
	}
	if b.SumInsuredCeiling.IsZero() {
		b.SumInsuredCeiling = decimal.NewFromInt(50000000)
	}
	if b.SumInsuredUnit.IsZero() {
		b.SumInsuredUnit = decimal.NewFromInt(100000)
	}
}

// Validate rejects incomplete tables, non-positive bases and catalogs too
// small for the number of items drawn from them.
func (p *Policy) Validate() error {
	if len(p.Companies) == 0 {
		return fmt.Errorf("at least one company is required")
	}
	for _, n := range p.NetworkTypes {
		if !knownNetworks[n] {
			return fmt.Errorf("unknown network type %q", n)
		}
	}

	tables := []struct {
		name   string
		values TierValues
	}{
		{"base_premium", p.BasePremium},
		{"base_multiplier", p.BaseMultiplier},
		{"base_deductible", p.BaseDeductible},
		{"base_out_of_pocket_max", p.BaseOutOfPocketMax},
		{"base_copay", p.BaseCopay},
	}
	for _, tbl := range tables {
		for _, t := range Tiers {
			v, ok := tbl.values[t]
			if !ok {
				return fmt.Errorf("%s: missing tier %s", tbl.name, t)
			}
			if !v.IsPositive() {
				return fmt.Errorf("%s: %s must be positive", tbl.name, t)
			}
		}
	}

	maxBenefits := 0
	for _, t := range Tiers {
		n, ok := p.BenefitCount[t]
		if !ok {
			return fmt.Errorf("benefit_count: missing tier %s", t)
		}
		if n < 0 {
			return fmt.Errorf("benefit_count: %s must not be negative", t)
		}
		if n > maxBenefits {
			maxBenefits = n
		}
	}
	if len(p.Benefits) < maxBenefits {
		return fmt.Errorf("benefits: catalog has %d items, %d are drawn for the highest tier", len(p.Benefits), maxBenefits)
	}
	if p.ExclusionCount < 0 || len(p.Exclusions) < p.ExclusionCount {
		return fmt.Errorf("exclusions: catalog has %d items, %d are drawn", len(p.Exclusions), p.ExclusionCount)
	}
	if len(p.Coverage.Basic) == 0 {
		return fmt.Errorf("coverage.basic must not be empty")
	}

	w := p.WaitingPeriods
	if w.General < 0 || w.PreExistingHigh < 0 || w.PreExistingLow < 0 || w.SpecificProcedures < 0 {
		return fmt.Errorf("waiting_periods must not be negative")
	}

	b := p.Bounds
	if !b.PremiumFloor.IsPositive() || b.PremiumCeiling.LessThan(b.PremiumFloor) {
		return fmt.Errorf("bounds: premium floor must be positive and not above the ceiling")
	}
	if !b.SumInsuredUnit.IsPositive() || !b.SumInsuredCeiling.IsPositive() {
		return fmt.Errorf("bounds: sum insured ceiling and unit must be positive")
	}
	if !b.SumInsuredCeiling.Mod(b.SumInsuredUnit).IsZero() {
		return fmt.Errorf("bounds: sum insured ceiling must be a multiple of the rounding unit")
	}
	return nil
}
