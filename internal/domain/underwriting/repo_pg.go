package underwriting

import (
	"context"
	"errors"
	"fmt"

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

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository {
	return &planRepoPG{pool: pool}
}

func (r *planRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const planCols = `id, user_id, company, plan_name, tier, plan_type, network_type, risk_score,
	monthly_premium, annual_premium, sum_insured, deductible, out_of_pocket_max,
	effective_date, expiration_date, created_at, updated_at`

func (r *planRepoPG) scanRow(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.UserID, &p.Company, &p.PlanName, &p.Tier, &p.PlanType, &p.NetworkType, &p.RiskScore,
		&p.MonthlyPremium, &p.AnnualPremium, &p.SumInsured, &p.Deductible, &p.OutOfPocketMax,
		&p.EffectiveDate, &p.ExpirationDate, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *planRepoPG) GetByUser(ctx context.Context, userID uuid.UUID) (*Plan, error) {
	p, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+planCols+` FROM plans WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadDetails(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *planRepoPG) loadDetails(ctx context.Context, p *Plan) error {
	var err error
	if p.CoverageDetails, err = r.listStrings(ctx, `SELECT coverage_item FROM coverage_details WHERE plan_id = $1 ORDER BY position`, p.ID); err != nil {
		return err
	}
	if p.AdditionalBenefits, err = r.listStrings(ctx, `SELECT benefit_description FROM additional_benefits WHERE plan_id = $1 ORDER BY position`, p.ID); err != nil {
		return err
	}
	if p.GeneralExclusions, err = r.listStrings(ctx, `SELECT exclusion FROM policy_exclusions WHERE plan_id = $1 ORDER BY position`, p.ID); err != nil {
		return err
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT service, amount, value FROM copayments WHERE plan_id = $1 ORDER BY position`, p.ID)
	if err != nil {
		return err
	}
	p.Copayments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Copayment, error) {
		var c Copayment
		err := row.Scan(&c.Service, &c.Amount, &c.Value)
		return c, err
	})
	if err != nil {
		return err
	}

	rows, err = r.conn(ctx).Query(ctx, `SELECT category, months FROM waiting_periods WHERE plan_id = $1 ORDER BY position`, p.ID)
	if err != nil {
		return err
	}
	p.WaitingPeriods, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (WaitingPeriod, error) {
		var w WaitingPeriod
		err := row.Scan(&w.Category, &w.Months)
		return w, err
	})
	return err
}

func (r *planRepoPG) listStrings(ctx context.Context, sql string, planID uuid.UUID) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, planID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

var detailTables = []string{"coverage_details", "copayments", "additional_benefits", "policy_exclusions", "waiting_periods"}

// Save runs in one transaction holding a per-user advisory lock, so
// concurrent regenerations for the same user serialize and readers never see
// a half-replaced detail set.
func (r *planRepoPG) Save(ctx context.Context, p *Plan) (bool, error) {
	created := false
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, p.UserID.String()); err != nil {
			return fmt.Errorf("lock plan: %w", err)
		}

		var existing uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM plans WHERE user_id = $1`, p.UserID).Scan(&existing)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			created = true
			if err := r.insertPlan(ctx, tx, p); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("find plan: %w", err)
		default:
			p.ID = existing
			if err := r.updatePlan(ctx, tx, p); err != nil {
				return err
			}
		}

		if err := r.replaceDetails(ctx, tx, p); err != nil {
			return err
		}

		if created {
			if _, err := tx.Exec(ctx, `UPDATE users SET profile_complete = TRUE, updated_at = NOW() WHERE id = $1`, p.UserID); err != nil {
				return fmt.Errorf("mark profile complete: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *planRepoPG) insertPlan(ctx context.Context, tx pgx.Tx, p *Plan) error {
	p.ID = uuid.New()
	err := tx.QueryRow(ctx, `
		INSERT INTO plans (id, user_id, company, plan_name, tier, plan_type, network_type, risk_score,
			monthly_premium, annual_premium, sum_insured, deductible, out_of_pocket_max,
			effective_date, expiration_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.Company, p.PlanName, p.Tier, p.PlanType, p.NetworkType, p.RiskScore,
		p.MonthlyPremium, p.AnnualPremium, p.SumInsured, p.Deductible, p.OutOfPocketMax,
		p.EffectiveDate, p.ExpirationDate).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (r *planRepoPG) updatePlan(ctx context.Context, tx pgx.Tx, p *Plan) error {
	err := tx.QueryRow(ctx, `
		UPDATE plans SET company=$2, plan_name=$3, tier=$4, plan_type=$5, network_type=$6, risk_score=$7,
			monthly_premium=$8, annual_premium=$9, sum_insured=$10, deductible=$11, out_of_pocket_max=$12,
			effective_date=$13, expiration_date=$14, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Company, p.PlanName, p.Tier, p.PlanType, p.NetworkType, p.RiskScore,
		p.MonthlyPremium, p.AnnualPremium, p.SumInsured, p.Deductible, p.OutOfPocketMax,
		p.EffectiveDate, p.ExpirationDate).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return nil
}

func (r *planRepoPG) replaceDetails(ctx context.Context, tx pgx.Tx, p *Plan) error {
	b := &pgx.Batch{}
	for _, table := range detailTables {
		b.Queue(`DELETE FROM `+table+` WHERE plan_id = $1`, p.ID)
	}
	for i, item := range p.CoverageDetails {
		b.Queue(`INSERT INTO coverage_details (plan_id, position, coverage_item) VALUES ($1,$2,$3)`, p.ID, i, item)
	}
	for i, c := range p.Copayments {
		b.Queue(`INSERT INTO copayments (plan_id, position, service, amount, value) VALUES ($1,$2,$3,$4,$5)`, p.ID, i, c.Service, c.Amount, c.Value)
	}
	for i, item := range p.AdditionalBenefits {
		b.Queue(`INSERT INTO additional_benefits (plan_id, position, benefit_description) VALUES ($1,$2,$3)`, p.ID, i, item)
	}
	for i, item := range p.GeneralExclusions {
		b.Queue(`INSERT INTO policy_exclusions (plan_id, position, exclusion) VALUES ($1,$2,$3)`, p.ID, i, item)
	}
	for i, w := range p.WaitingPeriods {
		b.Queue(`INSERT INTO waiting_periods (plan_id, position, category, months) VALUES ($1,$2,$3,$4)`, p.ID, i, w.Category, w.Months)
	}

	br := tx.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("replace plan details: %w", err)
		}
	}
	return br.Close()
}
