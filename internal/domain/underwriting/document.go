package underwriting

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// The PDF core fonts are cp1252 and cannot render the rupee sign.
var pdfText = strings.NewReplacer("₹", "INR ")

// RenderPDF renders a one-document summary of a plan.
func RenderPDF(p *Plan) ([]byte, error) {
	v := p.View()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(v.PlanName, true)
	pdf.SetAuthor(v.Company, true)
	pdf.SetMargins(18, 18, 18)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(pdfText.Replace(s)) }

	heading := func(s string) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, text(s), "B", 1, "L", false, 0, "")
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "", 10)
	}
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(60, 6, text(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, text(value), "", "L", false)
	}
	bullets := func(items []string) {
		if len(items) == 0 {
			pdf.CellFormat(0, 6, "None", "", 1, "L", false, 0, "")
			return
		}
		for _, it := range items {
			pdf.MultiCell(0, 6, text("- "+it), "", "L", false)
		}
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, text(v.PlanName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, text(v.Company), "", 1, "L", false, 0, "")

	heading("Plan terms")
	row("Tier", string(v.Tier))
	row("Plan type", v.PlanType)
	row("Network", v.NetworkType)
	row("Monthly premium", "INR "+v.MonthlyPremium.StringFixed(2))
	row("Annual premium", "INR "+v.AnnualPremium.StringFixed(2))
	row("Sum insured", "INR "+v.SumInsured.StringFixed(0))
	row("Deductible", v.Deductible)
	row("Out-of-pocket maximum", v.OutOfPocketMax)
	row("Effective", v.EffectiveDate)
	row("Expires", v.ExpirationDate)

	heading("Copayments")
	for _, c := range v.Copayments {
		row(c.Service, c.Amount)
	}

	heading("Coverage")
	bullets(v.CoverageDetails)

	heading("Additional benefits")
	bullets(v.AdditionalBenefits)

	heading("General exclusions")
	bullets(v.GeneralExclusions)

	heading("Waiting periods")
	for _, w := range p.WaitingPeriods {
		row(w.Category, fmt.Sprintf("%d months", w.Months))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render plan pdf: %w", err)
	}
	return buf.Bytes(), nil
}
