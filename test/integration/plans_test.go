package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/healthshield/backoffice/internal/domain/underwriting"
)

func testPlan(userID uuid.UUID, details int) *underwriting.Plan {
	p := &underwriting.Plan{
		UserID:         userID,
		Company:        "Star Health",
		PlanName:       "Gold PPO Health Shield",
		Tier:           underwriting.Gold,
		PlanType:       underwriting.PlanIndividual,
		NetworkType:    underwriting.NetworkPPO,
		RiskScore:      0.6,
		MonthlyPremium: decimal.NewFromInt(3003),
		AnnualPremium:  decimal.NewFromInt(36036),
		SumInsured:     decimal.NewFromInt(6000000),
		Deductible:     "₹24000",
		OutOfPocketMax: "₹97500",
		EffectiveDate:  day(2025, 3, 14),
		ExpirationDate: day(2026, 3, 14),
	}
	for i := 0; i < details; i++ {
		n := string(rune('A' + i))
		p.CoverageDetails = append(p.CoverageDetails, "Coverage "+n)
		p.Copayments = append(p.Copayments, underwriting.Copayment{Service: "Service " + n, Amount: "₹300", Value: 300})
		p.AdditionalBenefits = append(p.AdditionalBenefits, "Benefit "+n)
		p.GeneralExclusions = append(p.GeneralExclusions, "Exclusion "+n)
		p.WaitingPeriods = append(p.WaitingPeriods, underwriting.WaitingPeriod{Category: "Category " + n, Months: 12})
	}
	return p
}

var planDetailTables = []string{"coverage_details", "copayments", "additional_benefits", "policy_exclusions", "waiting_periods"}

func TestPlanRepoPG_SaveReplacesDetails(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	userID := createTestUser(t, ctx, pool)
	repo := underwriting.NewPlanRepoPG(pool)

	first := testPlan(userID, 4)
	created, err := repo.Save(ctx, first)
	if err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if !created {
		t.Error("first Save should create the plan")
	}
	for _, table := range planDetailTables {
		if n := countRows(t, ctx, pool, table, first.ID); n != 4 {
			t.Errorf("%s: expected 4 rows after first save, got %d", table, n)
		}
	}

	var complete bool
	if err := pool.QueryRow(ctx, `SELECT profile_complete FROM users WHERE id = $1`, userID).Scan(&complete); err != nil {
		t.Fatalf("read user: %v", err)
	}
	if !complete {
		t.Error("creating a plan should mark the profile complete")
	}

	second := testPlan(userID, 2)
	second.Tier = underwriting.Silver
	created, err = repo.Save(ctx, second)
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if created {
		t.Error("second Save should update the existing plan")
	}
	if second.ID != first.ID {
		t.Errorf("plan id changed on update: %s -> %s", first.ID, second.ID)
	}
	for _, table := range planDetailTables {
		if n := countRows(t, ctx, pool, table, first.ID); n != 2 {
			t.Errorf("%s: expected 2 rows after second save, got %d", table, n)
		}
	}

	var plans int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM plans WHERE user_id = $1`, userID).Scan(&plans); err != nil {
		t.Fatalf("count plans: %v", err)
	}
	if plans != 1 {
		t.Errorf("expected one plan row per user, got %d", plans)
	}

	got, err := repo.GetByUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if got == nil {
		t.Fatal("expected a plan")
	}
	if got.Tier != underwriting.Silver {
		t.Errorf("expected Silver after update, got %s", got.Tier)
	}
	if len(got.CoverageDetails) != 2 || got.CoverageDetails[1] != "Coverage B" {
		t.Errorf("unexpected coverage details %v", got.CoverageDetails)
	}
	if len(got.Copayments) != 2 || got.Copayments[0].Value != 300 {
		t.Errorf("unexpected copayments %+v", got.Copayments)
	}
	if !got.SumInsured.Equal(decimal.NewFromInt(6000000)) {
		t.Errorf("unexpected sum insured %s", got.SumInsured)
	}
	if !got.EffectiveDate.Equal(day(2025, 3, 14)) {
		t.Errorf("unexpected effective date %s", got.EffectiveDate)
	}
}

func TestPlanRepoPG_FailedSaveRollsBack(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	userID := createTestUser(t, ctx, pool)
	repo := underwriting.NewPlanRepoPG(pool)

	first := testPlan(userID, 3)
	if _, err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	// The last waiting period breaks the months >= 0 check after the
	// deletes and every other insert of the batch have run.
	broken := testPlan(userID, 1)
	broken.Company = "Other Insurer"
	broken.WaitingPeriods = append(broken.WaitingPeriods, underwriting.WaitingPeriod{Category: "Invalid", Months: -1})
	if _, err := repo.Save(ctx, broken); err == nil {
		t.Fatal("expected Save to fail on a negative waiting period")
	}

	for _, table := range planDetailTables {
		if n := countRows(t, ctx, pool, table, first.ID); n != 3 {
			t.Errorf("%s: expected the 3 earlier rows to survive, got %d", table, n)
		}
	}
	got, err := repo.GetByUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if got.Company != "Star Health" {
		t.Errorf("plan header should be unchanged, got company %q", got.Company)
	}
	if len(got.WaitingPeriods) != 3 || got.WaitingPeriods[2].Category != "Category C" {
		t.Errorf("unexpected waiting periods %+v", got.WaitingPeriods)
	}
}

func TestPlanRepoPG_GetByUserWithoutPlan(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	userID := createTestUser(t, ctx, pool)

	got, err := underwriting.NewPlanRepoPG(pool).GetByUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if got != nil {
		t.Errorf("expected no plan, got %+v", got)
	}
}

func TestPlanRepoPG_SaveUnknownUserFails(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()

	p := testPlan(uuid.New(), 1)
	if _, err := underwriting.NewPlanRepoPG(pool).Save(ctx, p); err == nil {
		t.Fatal("expected a foreign key violation for a user that does not exist")
	}
}
