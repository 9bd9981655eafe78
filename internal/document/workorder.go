// Package document renders printable work orders.
package document

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/pricing"
)

const (
	pageWidth   = 210.0
	margin      = 12.0
	contentW    = pageWidth - 2*margin
	rowH        = 6.0
	fontFamily  = "Helvetica"
	dateDisplay = "01/02/2006"
)

var (
	accent = [3]int{68, 114, 196}
	green  = [3]int{112, 173, 71}
)

// Company is the letterhead printed on every document.
type Company struct {
	Name    string
	Details []string
}

// Renderer draws work orders as A4 PDFs.
type Renderer struct {
	company Company
}

func NewRenderer(company Company) *Renderer {
	return &Renderer{company: company}
}

type column struct {
	title string
	width float64
	align string
}

// RenderWorkOrder writes wo and its lines as a PDF to w.
func (r *Renderer) RenderWorkOrder(w io.Writer, row database.GetWorkOrderRow, items []database.WorkOrderItem) error {
	wo := row.WorkOrder

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle("Work Order "+wo.WorkOrderNumber, true)
	pdf.SetCreator(r.company.Name, true)
	if wo.CreatedAt.IsZero() {
		pdf.SetCreationDate(wo.UpdatedAt)
	} else {
		pdf.SetCreationDate(wo.CreatedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	r.header(pdf, tr, wo)

	// --- Client ---
	sectionTitle(pdf, "CLIENT INFORMATION")
	infoRow(pdf, tr, "Name", wo.ClientName)
	infoRow(pdf, tr, "Address", wo.ClientAddress.String)
	infoRow(pdf, tr, "City / State / Zip", joinNonEmpty(", ", wo.ClientCity.String, wo.ClientState.String, wo.ClientZip.String))
	infoRow(pdf, tr, "Phone", wo.ClientPhone.String)
	infoRow(pdf, tr, "Driver License", wo.ClientDlLicense.String)
	pdf.Ln(2)

	// --- Vehicle ---
	sectionTitle(pdf, "CLIENT VEHICLE INFORMATION")
	vehicleCols := []column{
		{"VIN", contentW * 0.30, "L"},
		{"Odometer", contentW * 0.15, "L"},
		{"Year", contentW * 0.10, "L"},
		{"Make", contentW * 0.15, "L"},
		{"Model", contentW * 0.15, "L"},
		{"Plate", contentW * 0.15, "L"},
	}
	tableHeader(pdf, vehicleCols)
	tableRow(pdf, tr, vehicleCols, []string{
		wo.VehicleVin.String,
		optInt(wo.VehicleOdometer.Int32, wo.VehicleOdometer.Valid),
		optInt(wo.VehicleYear.Int32, wo.VehicleYear.Valid),
		wo.VehicleMake.String,
		wo.VehicleModel.String,
		wo.VehicleLicensePlate.String,
	})
	pdf.Ln(2)

	// --- Lines ---
	sectionTitle(pdf, "WORK PERFORMED")
	itemCols := []column{
		{"Description", contentW * 0.50, "L"},
		{"Taxed", contentW * 0.10, "C"},
		{"Unit Price", contentW * 0.15, "R"},
		{"Qty", contentW * 0.10, "R"},
		{"Total", contentW * 0.15, "R"},
	}
	tableHeader(pdf, itemCols)
	for _, it := range items {
		taxed := "No"
		if it.Taxed {
			taxed = "Yes"
		}
		tableRow(pdf, tr, itemCols, []string{
			it.Description,
			taxed,
			money(it.UnitPrice),
			strconv.Itoa(int(it.Quantity)),
			money(it.Total),
		})
	}
	pdf.Ln(3)

	// --- Totals ---
	rate := database.NumericToDecimal(wo.TaxRate).Mul(decimal.NewFromInt(100))
	totalRow(pdf, "Subtotal", money(wo.Subtotal), nil)
	totalRow(pdf, fmt.Sprintf("Tax (%s%%)", rate.StringFixed(2)), money(wo.TaxAmount), nil)
	totalRow(pdf, "TOTAL", money(wo.Total), &accent)
	if wo.ClientSalePrice.Valid {
		totalRow(pdf, "Client Sale Price", money(wo.ClientSalePrice), &green)
	}
	if wo.Profit.Valid {
		totalRow(pdf, "Profit", money(wo.Profit), &green)
	}

	// --- Comments ---
	if wo.OtherComments.Valid && wo.OtherComments.String != "" {
		pdf.Ln(4)
		sectionTitle(pdf, "OTHER COMMENTS")
		pdf.SetFont(fontFamily, "", 9)
		pdf.MultiCell(contentW, 5, tr(wo.OtherComments.String), "1", "L", false)
	}

	// --- Signatures ---
	pdf.Ln(18)
	y := pdf.GetY()
	half := contentW*0.5 - 5
	pdf.SetDrawColor(0, 0, 0)
	pdf.Line(margin, y, margin+half, y)
	pdf.Line(pageWidth-margin-half, y, pageWidth-margin, y)
	pdf.SetFont(fontFamily, "", 8)
	pdf.CellFormat(half, 5, "Client Signature", "", 0, "L", false, 0, "")
	pdf.SetX(pageWidth - margin - half)
	pdf.CellFormat(half, 5, "Authorized Signature", "", 1, "L", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont(fontFamily, "I", 7)
	pdf.MultiCell(contentW, 4,
		"This work order is an estimate. Final charges may vary if additional work is authorized by the client.",
		"", "C", false)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render work order %s: %w", wo.WorkOrderNumber, err)
	}
	return pdf.Output(w)
}

func (r *Renderer) header(pdf *fpdf.Fpdf, tr func(string) string, wo database.WorkOrder) {
	top := pdf.GetY()

	pdf.SetTextColor(accent[0], accent[1], accent[2])
	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(contentW*0.6, 8, tr(r.company.Name), "", 2, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(fontFamily, "", 8)
	for _, line := range r.company.Details {
		pdf.CellFormat(contentW*0.6, 4, tr(line), "", 2, "L", false, 0, "")
	}
	bottom := pdf.GetY()

	x := margin + contentW*0.65
	w := contentW * 0.35
	pdf.SetXY(x, top)
	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(w, 8, "WORK ORDER", "", 2, "R", false, 0, "")
	fillBox(pdf, w, "WORK ORDER #", wo.WorkOrderNumber)
	date := ""
	if wo.Date.Valid {
		date = wo.Date.Time.Format(dateDisplay)
	}
	fillBox(pdf, w, "DATE", date)
	fillBox(pdf, w, "STATUS", strings.ToUpper(strings.ReplaceAll(wo.Status, "_", " ")))

	if pdf.GetY() > bottom {
		bottom = pdf.GetY()
	}
	pdf.SetXY(margin, bottom+2)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(margin, pdf.GetY(), pageWidth-margin, pdf.GetY())
	pdf.SetLineWidth(0.2)
	pdf.Ln(4)
}

func fillBox(pdf *fpdf.Fpdf, w float64, label, value string) {
	pdf.SetFillColor(accent[0], accent[1], accent[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(fontFamily, "", 7)
	pdf.CellFormat(w, 4, label, "", 2, "C", true, 0, "")
	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(w, 6, value, "", 2, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(1)
	pdf.SetX(margin + contentW*0.65)
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFillColor(accent[0], accent[1], accent[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(contentW, 7, title, "", 1, "L", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(1)
}

func infoRow(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont(fontFamily, "B", 9)
	pdf.CellFormat(contentW*0.3, 5, label, "", 0, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 9)
	pdf.CellFormat(contentW*0.7, 5, tr(value), "", 1, "L", false, 0, "")
}

func tableHeader(pdf *fpdf.Fpdf, cols []column) {
	pdf.SetFillColor(accent[0], accent[1], accent[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(fontFamily, "B", 9)
	for _, c := range cols {
		pdf.CellFormat(c.width, rowH, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

func tableRow(pdf *fpdf.Fpdf, tr func(string) string, cols []column, values []string) {
	pdf.SetFont(fontFamily, "", 9)
	for i, c := range cols {
		pdf.CellFormat(c.width, rowH, tr(values[i]), "1", 0, c.align, false, 0, "")
	}
	pdf.Ln(-1)
}

func totalRow(pdf *fpdf.Fpdf, label, value string, fill *[3]int) {
	labelW, valueW := contentW*0.25, contentW*0.15
	pdf.SetX(pageWidth - margin - labelW - valueW)
	if fill != nil {
		pdf.SetFillColor(fill[0], fill[1], fill[2])
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont(fontFamily, "B", 10)
	} else {
		pdf.SetFont(fontFamily, "B", 9)
	}
	pdf.CellFormat(labelW, rowH, label, "", 0, "L", fill != nil, 0, "")
	pdf.CellFormat(valueW, rowH, value, "", 1, "R", fill != nil, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func money(n pgtype.Numeric) string {
	return "$" + database.FormatNumeric(n, pricing.CurrencyPlaces)
}

func optInt(v int32, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.Itoa(int(v))
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
