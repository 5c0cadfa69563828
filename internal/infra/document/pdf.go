// Package document renders issued policies as PDF and HTML and signs the
// verification token printed on them.
package document

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// Renderer implements port.DocumentRenderer.
type Renderer struct {
	brand string
}

// NewRenderer creates a renderer printing brand in headers and footers.
func NewRenderer(brand string) *Renderer {
	if brand == "" {
		brand = "Income Insurance"
	}
	return &Renderer{brand: brand}
}

// RenderPDF renders an A4 policy summary.
func (r *Renderer) RenderPDF(doc *domain.PolicyDocument) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetTitle("Policy "+doc.PolicyNumber, true)
	pdf.SetAuthor(r.brand, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(0xF9, 0x63, 0x02)
	pdf.CellFormat(0, 12, tr(r.brand), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0x1F, 0x29, 0x37)
	pdf.CellFormat(0, 8, "Motor Insurance Policy Summary", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	section := func(title string, rows [][2]string) {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetTextColor(0x1F, 0x29, 0x37)
		pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
		for _, row := range rows {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(55, 6, tr(row[0]), "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 6, tr(row[1]), "", "L", false)
		}
		pdf.Ln(3)
	}

	policy := [][2]string{
		{"Policy Number:", doc.PolicyNumber},
		{"Effective Date:", doc.EffectiveDate},
		{"Expiry Date:", doc.ExpiryDate},
	}
	if doc.PaymentReference != "" {
		policy = append(policy, [2]string{"Payment Reference:", doc.PaymentReference})
	}
	section("Policy Details", policy)
	section("Policyholder Information", [][2]string{
		{"Name:", doc.Policyholder.Name},
		{"NRIC:", doc.Policyholder.NRIC},
		{"Contact:", doc.Policyholder.Phone},
		{"Email:", doc.Policyholder.Email},
	})
	section("Vehicle Information", [][2]string{
		{"Vehicle Type:", doc.Vehicle.Type},
		{"Make:", doc.Vehicle.Make},
		{"Model:", doc.Vehicle.Model},
		{"Engine Capacity:", doc.Vehicle.EngineCapacity},
	})

	coverage := [][2]string{
		{"Coverage Type:", doc.Coverage.Type},
		{"Plan:", doc.Coverage.Plan},
		{"Annual Premium:", money(doc.Coverage.Premium)},
		{fmt.Sprintf("NCD Discount (%d%%):", doc.Coverage.NCDPercent), money(doc.Coverage.NCDDiscount)},
	}
	if doc.Coverage.TelematicsDiscount > 0 {
		coverage = append(coverage, [2]string{"Smart Driver Discount:", money(doc.Coverage.TelematicsDiscount)})
	}
	if doc.Coverage.GreenVehicleDiscount > 0 {
		coverage = append(coverage, [2]string{"Green Vehicle Discount:", money(doc.Coverage.GreenVehicleDiscount)})
	}
	for _, a := range doc.Coverage.Addons {
		coverage = append(coverage, [2]string{a.Item + ":", money(a.Amount)})
	}
	section("Coverage Details", coverage)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, "Policy Exclusions", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0x78, 0x35, 0x0F)
	pdf.CellFormat(0, 6, "This policy does not cover:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0x92, 0x40, 0x0E)
	for _, e := range doc.Exclusions {
		pdf.SetX(24)
		pdf.MultiCell(0, 5, tr("• "+e), "", "L", false)
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0x6B, 0x72, 0x80)
	pdf.MultiCell(0, 5, "This is a computer-generated document. No signature is required.", "", "L", false)
	if doc.VerificationToken != "" {
		pdf.SetFont("Courier", "", 6)
		pdf.MultiCell(0, 3, "Verification: "+doc.VerificationToken, "", "L", false)
		pdf.SetFont("Helvetica", "", 9)
	}
	pdf.MultiCell(0, 5, tr(r.brand+" Limited. All rights reserved."), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render policy pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
