package underwriting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthshield/backoffice/internal/domain/profile"
	"github.com/healthshield/backoffice/internal/platform/apperr"
)

// SnapshotSource assembles the inputs of plan generation.
type SnapshotSource interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (*profile.Snapshot, error)
}

// Plans run for a year from issuance.
const planTermDays = 365

// Service generates and serves insurance plans.
type Service struct {
	snapshots SnapshotSource
	plans     PlanRepository
	policy    *Policy
	pricer    *Pricer
	rnd       RandSource
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(snapshots SnapshotSource, plans PlanRepository, policy *Policy, logger zerolog.Logger) *Service {
	return &Service{
		snapshots: snapshots,
		plans:     plans,
		policy:    policy,
		pricer:    NewPricer(policy),
		rnd:       DefaultRandSource(),
		now:       time.Now,
		logger:    logger,
	}
}

// SetRandSource replaces the source used for network, company, benefit and
// exclusion draws.
func (s *Service) SetRandSource(r RandSource) { s.rnd = r }

// SetClock replaces the clock used for effective dates.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Policy() *Policy { return s.policy }

// Build runs scoring, tiering, pricing and assembly for a complete snapshot.
// It performs no I/O. A snapshot without its profile, health, lifestyle or
// lab record is MissingData.
func (s *Service) Build(userID uuid.UUID, snap *profile.Snapshot) (*Plan, error) {
	const op = "plan.build"
	if snap == nil {
		return nil, apperr.MissingData(op, "user data is missing")
	}
	var missing []string
	if snap.Profile == nil {
		missing = append(missing, "profile")
	}
	if snap.Health == nil {
		missing = append(missing, "health information")
	}
	if snap.Lifestyle == nil {
		missing = append(missing, "lifestyle information")
	}
	if snap.Labs == nil {
		missing = append(missing, "lab results")
	}
	if len(missing) > 0 {
		return nil, apperr.MissingData(op, "user data is incomplete: missing "+strings.Join(missing, ", "))
	}
	prof := snap.Profile
	if prof.Age < 0 {
		return nil, apperr.InvalidInput(op, fmt.Sprintf("age must not be negative, got %d", prof.Age))
	}
	if prof.AnnualIncome.IsNegative() {
		return nil, apperr.InvalidInput(op, "annual income must not be negative")
	}

	risk := Score(snap)
	tier := SelectTier(risk, prof.AnnualIncome)
	pricing := s.pricer.Price(tier, risk, prof.Age, prof.AnnualIncome, snap.HighRiskCount())
	asm := NewAssembler(s.policy, s.rnd).Assemble(tier, snap)

	effective := truncateToDay(s.now())
	return &Plan{
		UserID:             userID,
		Company:            asm.Company,
		PlanName:           fmt.Sprintf("%s %s Health Shield", tier, asm.NetworkType),
		Tier:               tier,
		PlanType:           asm.PlanType,
		NetworkType:        asm.NetworkType,
		RiskScore:          risk,
		MonthlyPremium:     pricing.MonthlyPremium,
		AnnualPremium:      pricing.AnnualPremium,
		SumInsured:         pricing.SumInsured,
		Deductible:         s.pricer.FormatCurrency(pricing.Deductible),
		OutOfPocketMax:     s.pricer.FormatCurrency(pricing.OutOfPocketMax),
		EffectiveDate:      effective,
		ExpirationDate:     effective.AddDate(0, 0, planTermDays),
		CoverageDetails:    asm.CoverageDetails,
		Copayments:         pricing.Copayments,
		AdditionalBenefits: asm.AdditionalBenefits,
		GeneralExclusions:  asm.GeneralExclusions,
		WaitingPeriods:     asm.WaitingPeriods,
	}, nil
}

// Generate builds a fresh plan for userID and stores it as the current plan,
// replacing any previous one in place. created reports whether this is the
// user's first plan. Nothing is written when inputs are missing.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID) (*Plan, bool, error) {
	const op = "plan.generate"
	if userID == uuid.Nil {
		return nil, false, apperr.InvalidInput(op, "user id is required")
	}

	snap, err := s.snapshots.Snapshot(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("plan generation: snapshot unavailable")
		return nil, false, err
	}

	plan, err := s.Build(userID, snap)
	if err != nil {
		return nil, false, err
	}

	created, err := s.plans.Save(ctx, plan)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("plan generation: save failed")
		return nil, false, apperr.Persistence(op, err)
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("plan_id", plan.ID.String()).
		Str("tier", string(plan.Tier)).
		Float64("risk_score", plan.RiskScore).
		Bool("created", created).
		Msg("plan generated")
	return plan, created, nil
}

// Current returns the user's stored plan, or nil when none exists.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*Plan, error) {
	const op = "plan.get"
	if userID == uuid.Nil {
		return nil, apperr.InvalidInput(op, "user id is required")
	}
	p, err := s.plans.GetByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return p, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
