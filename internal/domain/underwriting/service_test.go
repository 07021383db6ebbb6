package underwriting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthshield/backoffice/internal/domain/profile"
	"github.com/healthshield/backoffice/internal/platform/apperr"
)

// -- Mock PlanRepository --

// mockPlanRepo keeps one plan per user and replaces it in place on Save,
// details included.
type mockPlanRepo struct {
	plans    map[uuid.UUID]*Plan
	complete map[uuid.UUID]bool
	saves    int
	failWith error
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{
		plans:    make(map[uuid.UUID]*Plan),
		complete: make(map[uuid.UUID]bool),
	}
}

func (m *mockPlanRepo) GetByUser(_ context.Context, userID uuid.UUID) (*Plan, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.plans[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockPlanRepo) Save(_ context.Context, p *Plan) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	m.saves++
	now := time.Now()
	existing, ok := m.plans[p.UserID]
	if ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = uuid.New()
		p.CreatedAt = now
		m.complete[p.UserID] = true
	}
	p.UpdatedAt = now
	cp := *p
	cp.CoverageDetails = append([]string(nil), p.CoverageDetails...)
	cp.Copayments = append([]Copayment(nil), p.Copayments...)
	cp.AdditionalBenefits = append([]string(nil), p.AdditionalBenefits...)
	cp.GeneralExclusions = append([]string(nil), p.GeneralExclusions...)
	cp.WaitingPeriods = append([]WaitingPeriod(nil), p.WaitingPeriods...)
	m.plans[p.UserID] = &cp
	return !ok, nil
}

// -- Stub snapshot source --

type stubSnapshots struct {
	snaps map[uuid.UUID]*profile.Snapshot
	err   error
}

func (s *stubSnapshots) Snapshot(_ context.Context, id uuid.UUID) (*profile.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	snap, ok := s.snaps[id]
	if !ok {
		return nil, apperr.MissingData("profile.snapshot", "user data is incomplete: missing profile")
	}
	return snap, nil
}

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestService(t *testing.T, snaps *stubSnapshots, repo *mockPlanRepo) *Service {
	t.Helper()
	svc := NewService(snaps, repo, testPolicy(t), zerolog.Nop())
	svc.SetRandSource(NewSeededRandSource(7))
	svc.SetClock(func() time.Time { return fixedNow })
	return svc
}

func seededSnapshot(snaps *stubSnapshots, s *profile.Snapshot) uuid.UUID {
	if snaps.snaps == nil {
		snaps.snaps = make(map[uuid.UUID]*profile.Snapshot)
	}
	id := s.Profile.UserID
	snaps.snaps[id] = s
	return id
}

func TestService_Build(t *testing.T) {
	svc := newTestService(t, &stubSnapshots{}, newMockPlanRepo())

	// One medium prediction at age 45 scores 0.6; income 1.2M lands in Silver.
	snap := withRisks(baselineSnapshot(), medium(ConditionDiabetes))
	snap.Profile.Age = 45
	snap.Profile.AnnualIncome = decimal.NewFromInt(1200000)

	plan, err := svc.Build(snap.Profile.UserID, snap)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, plan.RiskScore, 1e-9)
	assert.Equal(t, Silver, plan.Tier)
	assert.Equal(t, "Silver "+plan.NetworkType+" Health Shield", plan.PlanName)
	assert.Equal(t, PlanIndividual, plan.PlanType)
	assert.Contains(t, svc.Policy().Companies, plan.Company)

	// 1500 * (1 + 27*0.02) * (1 + 0.3) = 3003
	assert.True(t, plan.MonthlyPremium.Equal(decimal.NewFromInt(3003)), "monthly %s", plan.MonthlyPremium)
	assert.True(t, plan.AnnualPremium.Equal(decimal.NewFromInt(36036)))
	assert.True(t, plan.SumInsured.Equal(decimal.NewFromInt(6000000)))
	assert.Equal(t, "₹24000", plan.Deductible)
	assert.Equal(t, "₹97500", plan.OutOfPocketMax)

	primary, ok := plan.Copay(ServicePrimaryCare)
	require.True(t, ok)
	assert.Equal(t, "₹390", primary.Amount)

	months, ok := plan.WaitingMonths(WaitingPreExisting)
	require.True(t, ok)
	assert.Equal(t, 24, months)

	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), plan.EffectiveDate)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), plan.ExpirationDate)
	assert.Len(t, plan.AdditionalBenefits, 3)
	assert.Len(t, plan.GeneralExclusions, 3)
}

func TestService_Build_Rejects(t *testing.T) {
	svc := newTestService(t, &stubSnapshots{}, newMockPlanRepo())

	_, err := svc.Build(uuid.New(), &profile.Snapshot{})
	assert.ErrorIs(t, err, apperr.ErrMissingData)

	_, err = svc.Build(uuid.New(), nil)
	assert.ErrorIs(t, err, apperr.ErrMissingData)

	for name, strip := range map[string]func(*profile.Snapshot){
		"health":    func(s *profile.Snapshot) { s.Health = nil },
		"lifestyle": func(s *profile.Snapshot) { s.Lifestyle = nil },
		"labs":      func(s *profile.Snapshot) { s.Labs = nil },
	} {
		snap := baselineSnapshot()
		strip(snap)
		_, err = svc.Build(snap.Profile.UserID, snap)
		assert.ErrorIs(t, err, apperr.ErrMissingData, name)
	}

	snap := baselineSnapshot()
	snap.Profile.Age = -1
	_, err = svc.Build(snap.Profile.UserID, snap)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	snap = baselineSnapshot()
	snap.Profile.AnnualIncome = decimal.NewFromInt(-5)
	_, err = svc.Build(snap.Profile.UserID, snap)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestService_Generate_CreatesThenReplaces(t *testing.T) {
	snaps := &stubSnapshots{}
	repo := newMockPlanRepo()
	svc := newTestService(t, snaps, repo)
	ctx := context.Background()

	id := seededSnapshot(snaps, withRisks(baselineSnapshot(), high(ConditionHeartDisease)))

	first, created, err := svc.Generate(ctx, id)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.True(t, repo.complete[id], "first plan should mark the profile complete")

	// Drop the High prediction so the regenerated plan has fewer details.
	snaps.snaps[id].Risks = nil
	second, created, err := svc.Generate(ctx, id)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.plans, 1)

	stored, err := svc.Current(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, second.CoverageDetails, stored.CoverageDetails)
	assert.Equal(t, second.AdditionalBenefits, stored.AdditionalBenefits)
	assert.Len(t, stored.CoverageDetails, len(svc.Policy().Coverage.Basic)+countPPO(second))
	assert.Equal(t, PlanIndividual, stored.PlanType)
	assert.Equal(t, 2, repo.saves)
}

func countPPO(p *Plan) int {
	if p.NetworkType == NetworkPPO {
		return 2
	}
	return 0
}

func TestService_Generate_MissingDataWritesNothing(t *testing.T) {
	repo := newMockPlanRepo()
	svc := newTestService(t, &stubSnapshots{}, repo)

	_, _, err := svc.Generate(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrMissingData)
	assert.Zero(t, repo.saves)
	assert.Empty(t, repo.plans)
}

func TestService_Generate_SnapshotStorageError(t *testing.T) {
	repo := newMockPlanRepo()
	storageErr := apperr.Persistence("profile.snapshot", errors.New("connection refused"))
	svc := newTestService(t, &stubSnapshots{err: storageErr}, repo)

	_, _, err := svc.Generate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Zero(t, repo.saves)
}

func TestService_Generate_SaveError(t *testing.T) {
	snaps := &stubSnapshots{}
	repo := newMockPlanRepo()
	repo.failWith = errors.New("deadlock detected")
	svc := newTestService(t, snaps, repo)
	id := seededSnapshot(snaps, baselineSnapshot())

	_, _, err := svc.Generate(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
}

func TestService_Generate_NilUser(t *testing.T) {
	svc := newTestService(t, &stubSnapshots{}, newMockPlanRepo())
	_, _, err := svc.Generate(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestService_Current(t *testing.T) {
	repo := newMockPlanRepo()
	svc := newTestService(t, &stubSnapshots{}, repo)

	p, err := svc.Current(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, p)

	repo.failWith = errors.New("boom")
	_, err = svc.Current(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}
