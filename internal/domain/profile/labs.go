package profile

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultBMI is used when a report carries no BMI and the profile has no
// height to derive one from.
const DefaultBMI = 24.22

type labSetter func(l *LabSnapshot, v float64)

// reportTests maps test names as printed on lab reports to snapshot fields.
var reportTests = map[string]labSetter{
	"Hemoglobin":             func(l *LabSnapshot, v float64) { l.Hemoglobin = v },
	"White Blood Cell Count": func(l *LabSnapshot, v float64) { l.WhiteBloodCellCount = v },
	"Platelet Count":         func(l *LabSnapshot, v float64) { l.PlateletCount = v },
	"BMI":                    func(l *LabSnapshot, v float64) { l.BMI = v },
	"Systolic BP":            func(l *LabSnapshot, v float64) { l.SystolicBP = v },
	"Diastolic BP":           func(l *LabSnapshot, v float64) { l.DiastolicBP = v },
	"Cholesterol (Total)":    func(l *LabSnapshot, v float64) { l.CholesterolTotal = v },
	"HDL":                    func(l *LabSnapshot, v float64) { l.CholesterolHDL = v },
	"LDL":                    func(l *LabSnapshot, v float64) { l.CholesterolLDL = v },
	"Triglycerides":          func(l *LabSnapshot, v float64) { l.Triglycerides = v },
	"Blood Glucose Fasting":  func(l *LabSnapshot, v float64) { l.BloodGlucoseFasting = v },
	"HbA1c":                  func(l *LabSnapshot, v float64) { l.HbA1c = v },
	"Creatinine":             func(l *LabSnapshot, v float64) { l.Creatinine = v },
	"eGFR":                   func(l *LabSnapshot, v float64) { l.EGFR = v },
	"ALT":                    func(l *LabSnapshot, v float64) { l.ALT = v },
	"AST":                    func(l *LabSnapshot, v float64) { l.AST = v },
	"TSH":                    func(l *LabSnapshot, v float64) { l.TSH = v },
	"T4":                     func(l *LabSnapshot, v float64) { l.T4 = v },
	"Vitamin D":              func(l *LabSnapshot, v float64) { l.VitaminD = v },
	"Calcium":                func(l *LabSnapshot, v float64) { l.Calcium = v },
	"C Reactive Protein":     func(l *LabSnapshot, v float64) { l.CReactiveProtein = v },
	"Vitamin B12":            func(l *LabSnapshot, v float64) { l.VitaminB12 = v },
	"Folate":                 func(l *LabSnapshot, v float64) { l.Folate = v },
	"Ferritin":               func(l *LabSnapshot, v float64) { l.Ferritin = v },
	"Uric Acid":              func(l *LabSnapshot, v float64) { l.UricAcid = v },
	"PSA":                    func(l *LabSnapshot, v float64) { l.PSA = v },
	"Bone Density T Score":   func(l *LabSnapshot, v float64) { l.BoneDensityTScore = v },
}

// DefaultLabs returns a snapshot holding population defaults. BMI is derived
// from the profile when its height is known.
func DefaultLabs(userID uuid.UUID, p *Profile) *LabSnapshot {
	l := &LabSnapshot{
		UserID:              userID,
		BMI:                 DefaultBMI,
		SystolicBP:          120,
		DiastolicBP:         80,
		CholesterolTotal:    200,
		CholesterolHDL:      50,
		CholesterolLDL:      130,
		Triglycerides:       150,
		BloodGlucoseFasting: 90,
		HbA1c:               5.5,
		FruitsVeggiesDaily:  3,
		Creatinine:          1.0,
		EGFR:                90,
		ALT:                 25,
		AST:                 25,
		TSH:                 2.0,
		T4:                  1.2,
		VitaminD:            30,
		Calcium:             9.5,
		Hemoglobin:          16.3,
		WhiteBloodCellCount: 5.2,
		PlateletCount:       321,
		CReactiveProtein:    2,
		VitaminB12:          400,
		Folate:              10,
		Ferritin:            100,
		UricAcid:            5.0,
		PSA:                 1.0,
		BoneDensityTScore:   0.0,
	}
	if p != nil {
		if bmi, ok := p.BMI(); ok {
			l.BMI = bmi
		}
	}
	return l
}

// BuildLabs overlays the recognised, parseable values in fields onto the
// defaults. Unknown test names and unparseable values are ignored.
func BuildLabs(userID uuid.UUID, p *Profile, fields map[string]string) (*LabSnapshot, int) {
	l := DefaultLabs(userID, p)
	applied := 0
	for name, raw := range fields {
		set, ok := reportTests[strings.TrimSpace(name)]
		if !ok {
			continue
		}
		v, ok := parseLabValue(raw)
		if !ok {
			continue
		}
		set(l, v)
		applied++
	}
	return l, applied
}

// parseLabValue reads the leading number of a value such as "13.5 g/dL".
func parseLabValue(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if fields := strings.Fields(raw); len(fields) > 1 {
		raw = fields[0]
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
