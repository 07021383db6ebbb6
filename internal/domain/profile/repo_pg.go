package profile

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// absent turns pgx.ErrNoRows into a nil result.
func absent[T any](v *T, err error) (*T, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

const profileCols = `user_id, COALESCE(full_name, ''), date_of_birth, age, COALESCE(gender, ''),
	COALESCE(phone, ''), COALESCE(district, ''), COALESCE(state, ''), COALESCE(occupation, ''),
	annual_income, COALESCE(height_cm, 0), COALESCE(weight_kg, 0), updated_at`

func (r *repoPG) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.FullName, &p.DateOfBirth, &p.Age, &p.Gender,
			&p.Phone, &p.District, &p.State, &p.Occupation,
			&p.AnnualIncome, &p.HeightCM, &p.WeightKG, &p.UpdatedAt)
	return absent(&p, err)
}

func (r *repoPG) GetHealth(ctx context.Context, userID uuid.UUID) (*HealthInformation, error) {
	var h HealthInformation
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT user_id, COALESCE(medical_history, ''), COALESCE(family_medical_history, ''),
			COALESCE(allergies, ''), COALESCE(current_medications, ''), updated_at
		FROM health_information WHERE user_id = $1`, userID).
		Scan(&h.UserID, &h.MedicalHistory, &h.FamilyMedicalHistory,
			&h.Allergies, &h.CurrentMedications, &h.UpdatedAt)
	return absent(&h, err)
}

func (r *repoPG) GetLifestyle(ctx context.Context, userID uuid.UUID) (*Lifestyle, error) {
	var l Lifestyle
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT user_id, smoking_status, alcohol_consumption, physical_activity,
			family_history_cvd, family_history_diabetes, family_history_cancer,
			stress_level, sleep_hours, updated_at
		FROM lifestyle WHERE user_id = $1`, userID).
		Scan(&l.UserID, &l.SmokingStatus, &l.AlcoholConsumption, &l.PhysicalActivity,
			&l.FamilyHistoryCVD, &l.FamilyHistoryDiabetes, &l.FamilyHistoryCancer,
			&l.StressLevel, &l.SleepHours, &l.UpdatedAt)
	return absent(&l, err)
}

const labCols = `bmi, systolic_bp, diastolic_bp, cholesterol_total, cholesterol_hdl, cholesterol_ldl,
	triglycerides, blood_glucose_fasting, hba1c, fruits_veggies_daily, creatinine, egfr,
	alt, ast, tsh, t4, vitamin_d, calcium, hemoglobin, white_blood_cell_count, platelet_count,
	c_reactive_protein, vitamin_b12, folate, ferritin, uric_acid, psa, bone_density_t_score`

func labFields(l *LabSnapshot) []interface{} {
	return []interface{}{
		&l.BMI, &l.SystolicBP, &l.DiastolicBP, &l.CholesterolTotal, &l.CholesterolHDL, &l.CholesterolLDL,
		&l.Triglycerides, &l.BloodGlucoseFasting, &l.HbA1c, &l.FruitsVeggiesDaily, &l.Creatinine, &l.EGFR,
		&l.ALT, &l.AST, &l.TSH, &l.T4, &l.VitaminD, &l.Calcium, &l.Hemoglobin, &l.WhiteBloodCellCount, &l.PlateletCount,
		&l.CReactiveProtein, &l.VitaminB12, &l.Folate, &l.Ferritin, &l.UricAcid, &l.PSA, &l.BoneDensityTScore,
	}
}

func (r *repoPG) GetLabs(ctx context.Context, userID uuid.UUID) (*LabSnapshot, error) {
	l := LabSnapshot{}
	dest := append([]interface{}{&l.UserID}, labFields(&l)...)
	dest = append(dest, &l.UpdatedAt)
	err := r.conn(ctx).QueryRow(ctx, `SELECT user_id, `+labCols+`, updated_at FROM lab_snapshots WHERE user_id = $1`, userID).
		Scan(dest...)
	return absent(&l, err)
}

func (r *repoPG) ListConditionRisks(ctx context.Context, userID uuid.UUID) ([]ConditionRisk, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT condition_name, probability, risk_level
		FROM condition_risks WHERE user_id = $1
		ORDER BY condition_name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ConditionRisk
	for rows.Next() {
		var cr ConditionRisk
		if err := rows.Scan(&cr.ConditionName, &cr.Probability, &cr.RiskLevel); err != nil {
			return nil, err
		}
		items = append(items, cr)
	}
	return items, rows.Err()
}

func (r *repoPG) UpsertLabs(ctx context.Context, l *LabSnapshot) error {
	args := []interface{}{l.UserID,
		l.BMI, l.SystolicBP, l.DiastolicBP, l.CholesterolTotal, l.CholesterolHDL, l.CholesterolLDL,
		l.Triglycerides, l.BloodGlucoseFasting, l.HbA1c, l.FruitsVeggiesDaily, l.Creatinine, l.EGFR,
		l.ALT, l.AST, l.TSH, l.T4, l.VitaminD, l.Calcium, l.Hemoglobin, l.WhiteBloodCellCount, l.PlateletCount,
		l.CReactiveProtein, l.VitaminB12, l.Folate, l.Ferritin, l.UricAcid, l.PSA, l.BoneDensityTScore,
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lab_snapshots (user_id, `+labCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			$21,$22,$23,$24,$25,$26,$27,$28,$29)
		ON CONFLICT (user_id) DO UPDATE SET
			bmi = EXCLUDED.bmi, systolic_bp = EXCLUDED.systolic_bp, diastolic_bp = EXCLUDED.diastolic_bp,
			cholesterol_total = EXCLUDED.cholesterol_total, cholesterol_hdl = EXCLUDED.cholesterol_hdl,
			cholesterol_ldl = EXCLUDED.cholesterol_ldl, triglycerides = EXCLUDED.triglycerides,
			blood_glucose_fasting = EXCLUDED.blood_glucose_fasting, hba1c = EXCLUDED.hba1c,
			fruits_veggies_daily = EXCLUDED.fruits_veggies_daily, creatinine = EXCLUDED.creatinine,
			egfr = EXCLUDED.egfr, alt = EXCLUDED.alt, ast = EXCLUDED.ast, tsh = EXCLUDED.tsh, t4 = EXCLUDED.t4,
			vitamin_d = EXCLUDED.vitamin_d, calcium = EXCLUDED.calcium, hemoglobin = EXCLUDED.hemoglobin,
			white_blood_cell_count = EXCLUDED.white_blood_cell_count, platelet_count = EXCLUDED.platelet_count,
			c_reactive_protein = EXCLUDED.c_reactive_protein, vitamin_b12 = EXCLUDED.vitamin_b12,
			folate = EXCLUDED.folate, ferritin = EXCLUDED.ferritin, uric_acid = EXCLUDED.uric_acid,
			psa = EXCLUDED.psa, bone_density_t_score = EXCLUDED.bone_density_t_score,
			updated_at = NOW()
		RETURNING updated_at`, args...).Scan(&l.UpdatedAt)
}
