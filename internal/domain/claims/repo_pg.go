package claims

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthshield/backoffice/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &claimRepoPG{pool: pool}
}

func (r *claimRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *claimRepoPG) Create(ctx context.Context, c *ClaimStatus) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO claim_status (user_id, decision, reason, bill_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, processed_at`,
		c.UserID, c.Decision, c.Reason, c.BillName,
	).Scan(&c.ID, &c.ProcessedAt)
}

func (r *claimRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ClaimStatus, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim_status WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, decision, reason, bill_name, processed_at
		FROM claim_status WHERE user_id = $1
		ORDER BY id LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[ClaimStatus])
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// The context is anchored on users so a claimant without a plan or health
// record still gets a row.
const policyContextQuery = `
SELECT
	pl.id IS NOT NULL,
	COALESCE(pl.company, ''),
	COALESCE(pl.plan_name, ''),
	COALESCE(pl.tier, ''),
	COALESCE(pl.plan_type, ''),
	COALESCE(pl.network_type, ''),
	COALESCE(pl.sum_insured::text, ''),
	COALESCE(pl.deductible, ''),
	COALESCE(pl.out_of_pocket_max, ''),
	COALESCE(to_char(pl.effective_date, 'YYYY-MM-DD'), ''),
	COALESCE(to_char(pl.expiration_date, 'YYYY-MM-DD'), ''),
	COALESCE((SELECT string_agg(cd.coverage_item, ', ' ORDER BY cd.position)
		FROM coverage_details cd WHERE cd.plan_id = pl.id), ''),
	COALESCE((SELECT string_agg(cp.service || ': ' || cp.amount, ', ' ORDER BY cp.position)
		FROM copayments cp WHERE cp.plan_id = pl.id), ''),
	COALESCE((SELECT string_agg(ab.benefit_description, ', ' ORDER BY ab.position)
		FROM additional_benefits ab WHERE ab.plan_id = pl.id), ''),
	COALESCE((SELECT string_agg(pe.exclusion, ', ' ORDER BY pe.position)
		FROM policy_exclusions pe WHERE pe.plan_id = pl.id), ''),
	COALESCE((SELECT string_agg(wp.category || ': ' || wp.months || ' months', ', ' ORDER BY wp.position)
		FROM waiting_periods wp WHERE wp.plan_id = pl.id), ''),
	COALESCE((SELECT pr.description FROM prescriptions pr
		WHERE pr.user_id = u.id ORDER BY pr.prescribed_on DESC, pr.id DESC LIMIT 1), ''),
	COALESCE(hi.medical_history, ''),
	COALESCE(hi.current_medications, '')
FROM users u
LEFT JOIN plans pl ON pl.user_id = u.id
LEFT JOIN health_information hi ON hi.user_id = u.id
WHERE u.id = $1`

func (r *claimRepoPG) GetPolicyContext(ctx context.Context, userID uuid.UUID) (*PolicyContext, error) {
	var pc PolicyContext
	err := r.conn(ctx).QueryRow(ctx, policyContextQuery, userID).Scan(
		&pc.HasPlan, &pc.Company, &pc.PlanName, &pc.Tier, &pc.PlanType, &pc.NetworkType,
		&pc.SumInsured, &pc.Deductible, &pc.OutOfPocketMax, &pc.EffectiveDate, &pc.ExpirationDate,
		&pc.CoverageItems, &pc.Copayments, &pc.AdditionalBenefits, &pc.GeneralExclusions, &pc.WaitingPeriods,
		&pc.LatestPrescription, &pc.MedicalHistory, &pc.CurrentMedications,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &PolicyContext{}, nil
	}
	if err != nil {
		return nil, err
	}
	pc.UserExists = true
	return &pc, nil
}
