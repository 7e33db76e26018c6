package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	Title       = "Factura de compra"
	ContentType = "application/pdf"
)

// Invoice is the data printed on a purchase invoice
type Invoice struct {
	CourseTitle string
	Amount      float64
	Currency    string
	PaymentID   string
	IssuedAt    time.Time
}

// Filename is the attachment name used for emails and downloads
func Filename(paymentID string) string {
	return fmt.Sprintf("Factura-%s.pdf", paymentID)
}

// Lines returns the body lines in print order
func Lines(inv Invoice) []string {
	amount := fmt.Sprintf("Importe: $%.2f", inv.Amount)
	if inv.Currency != "" {
		amount += " " + inv.Currency
	}
	return []string{
		"Curso: " + inv.CourseTitle,
		amount,
		"Pago ID: " + inv.PaymentID,
		"Fecha: " + inv.IssuedAt.Format("02/01/2006"),
	}
}

// Render produces a one page A4 PDF
func Render(inv Invoice) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(Title, true)
	pdf.SetCreator("course-marketplace", true)
	pdf.SetCreationDate(inv.IssuedAt)
	pdf.SetModificationDate(inv.IssuedAt)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr(Title), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range Lines(inv) {
		pdf.CellFormat(0, 8, tr(line), "", 1, "L", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 6, tr("Gracias por tu compra."), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	return buf.Bytes(), nil
}
