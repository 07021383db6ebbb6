package underwriting

import (
	"math/rand"
	"strings"

	"github.com/healthshield/backoffice/internal/domain/profile"
)

// Condition names as stored by the prediction pipeline.
const (
	ConditionHeartDisease = "Heart_Disease_Risk"
	ConditionDiabetes     = "Diabetes"
	ConditionCancer       = "Cancer_Risk"
)

// conditionPrograms are appended to the drawn benefits when the matching
// condition is predicted High.
var conditionPrograms = []struct {
	condition string
	program   string
}{
	{ConditionHeartDisease, "Cardiovascular Health Program"},
	{ConditionDiabetes, "Diabetes Management Program"},
	{ConditionCancer, "Cancer Screening Program"},
}

// RandSource supplies the randomness for network, company, benefit and
// exclusion draws. *rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// DefaultRandSource draws from the goroutine-safe top-level math/rand source.
func DefaultRandSource() RandSource { return globalRand{} }

// NewSeededRandSource returns a deterministic source for tests and replays.
// It must not be shared between goroutines.
func NewSeededRandSource(seed int64) RandSource {
	return rand.New(rand.NewSource(seed))
}

// Assembly is the non-monetary part of a plan.
type Assembly struct {
	Company            string
	NetworkType        string
	PlanType           string
	CoverageDetails    []string
	AdditionalBenefits []string
	GeneralExclusions  []string
	WaitingPeriods     []WaitingPeriod
}

// Assembler derives coverage, benefits, exclusions and waiting periods.
type Assembler struct {
	policy *Policy
	rnd    RandSource
}

func NewAssembler(policy *Policy, rnd RandSource) *Assembler {
	if rnd == nil {
		rnd = DefaultRandSource()
	}
	return &Assembler{policy: policy, rnd: rnd}
}

// Assemble draws network, company, benefits and exclusions, in that order,
// and derives the rest from tier, age and the condition risks.
func (a *Assembler) Assemble(tier Tier, snap *profile.Snapshot) Assembly {
	network := pick(a.rnd, a.policy.NetworkTypes)
	company := pick(a.rnd, a.policy.Companies)
	age := 0
	if snap.Profile != nil {
		age = snap.Profile.Age
	}
	return Assembly{
		Company:            company,
		NetworkType:        network,
		PlanType:           PlanType(age, snap),
		CoverageDetails:    a.CoverageDetails(tier, network, snap),
		AdditionalBenefits: a.AdditionalBenefits(tier, snap),
		GeneralExclusions:  a.GeneralExclusions(),
		WaitingPeriods:     a.WaitingPeriods(snap),
	}
}

// CoverageDetails lists basic coverage, PPO extras, gold/platinum extras and
// one enhanced line per High condition. Repeated lines keep their first
// position.
func (a *Assembler) CoverageDetails(tier Tier, network string, snap *profile.Snapshot) []string {
	c := a.policy.Coverage
	lines := make([]string, 0, len(c.Basic)+len(c.Additional)+len(c.GoldPlatinum)+len(snap.Risks))
	lines = append(lines, c.Basic...)
	if network == NetworkPPO {
		lines = append(lines, c.Additional...)
	}
	if tier == Gold || tier == Platinum {
		lines = append(lines, c.GoldPlatinum...)
	}
	for _, name := range snap.HighRiskConditions() {
		lines = append(lines, "Enhanced coverage for "+strings.ReplaceAll(name, "_", " "))
	}
	return dedupe(lines)
}

// AdditionalBenefits draws the tier's quota from the catalog without
// replacement, then appends the condition programs. Programs do not count
// against the quota and may repeat a drawn item.
func (a *Assembler) AdditionalBenefits(tier Tier, snap *profile.Snapshot) []string {
	benefits := sample(a.rnd, a.policy.Benefits, a.policy.BenefitCount[tier])
	for _, cp := range conditionPrograms {
		if snap.HasHighRiskFor(cp.condition) {
			benefits = append(benefits, cp.program)
		}
	}
	return benefits
}

// GeneralExclusions draws the configured number of exclusions without
// replacement.
func (a *Assembler) GeneralExclusions() []string {
	return sample(a.rnd, a.policy.Exclusions, a.policy.ExclusionCount)
}

// WaitingPeriods returns the three waiting periods. Pre-existing diseases
// wait longer when any condition is High.
func (a *Assembler) WaitingPeriods(snap *profile.Snapshot) []WaitingPeriod {
	w := a.policy.WaitingPeriods
	preExisting := w.PreExistingLow
	if snap.HasHighRisk() {
		preExisting = w.PreExistingHigh
	}
	return []WaitingPeriod{
		{Category: WaitingGeneral, Months: w.General},
		{Category: WaitingPreExisting, Months: preExisting},
		{Category: WaitingSpecificProcedures, Months: w.SpecificProcedures},
	}
}

// PlanType is Senior Citizen from age 60, else Critical Illness when any
// condition is High, else Individual.
func PlanType(age int, snap *profile.Snapshot) string {
	switch {
	case age >= 60:
		return PlanSeniorCitizen
	case snap.HasHighRisk():
		return PlanCriticalIllness
	default:
		return PlanIndividual
	}
}

func pick(rnd RandSource, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[rnd.Intn(len(items))]
}

// sample draws k items without replacement, in draw order, using a partial
// Fisher-Yates shuffle over a copy.
func sample(rnd RandSource, items []string, k int) []string {
	if k > len(items) {
		k = len(items)
	}
	if k <= 0 {
		return []string{}
	}
	pool := append([]string(nil), items...)
	out := make([]string, 0, k)
	for i := 0; i < k; i++ {
		j := i + rnd.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		out = append(out, pool[i])
	}
	return out
}

func dedupe(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := lines[:0]
	for _, l := range lines {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
