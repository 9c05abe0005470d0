package services

import (
	"fmt"
	"io"
	"time"

	"github.com/gymease/backend/models"
	"github.com/gymease/backend/utils"
	"github.com/jung-kurt/gofpdf"
	"github.com/tealeg/xlsx"
)

// WriteInvoicePDF renders the invoice of a paid transaction
func WriteInvoicePDF(w io.Writer, trx *models.Transaction) error {
	if trx.Status != models.StatusPaid {
		return utils.ConflictError("Invoices are only available for paid transactions", nil)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(0, 12, fmt.Sprintf("%s - Invoice", utils.AppName))
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, "Invoice No: "+trx.Code)
	pdf.Ln(6)
	if trx.PaidAt != nil {
		pdf.Cell(0, 7, "Paid at: "+trx.PaidAt.Format("2006-01-02 15:04"))
		pdf.Ln(6)
	}
	pdf.Cell(0, 7, "Member: "+memberName(trx))
	pdf.Ln(6)
	if trx.Member != nil && trx.Member.Profile.MemberCode != nil {
		pdf.Cell(0, 7, "Member ID: "+*trx.Member.Profile.MemberCode)
		pdf.Ln(6)
	}
	pdf.Ln(6)

	colWidths := []float64{70, 50, 60}
	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(200, 200, 200)
	for i, h := range []string{"Package", "Membership", "Amount"} {
		pdf.CellFormat(colWidths[i], 9, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	period := fmt.Sprintf("%s - %s", trx.MembershipStart.Format("2006-01-02"), lastDay(trx).Format("2006-01-02"))
	pdf.CellFormat(colWidths[0], 8, productLabel(trx), "1", 0, "L", false, 0, "")
	pdf.CellFormat(colWidths[1], 8, period, "1", 0, "C", false, 0, "")
	pdf.CellFormat(colWidths[2], 8, utils.FormatRupiah(trx.BasePrice), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	if trx.Promo != nil {
		discount := utils.DiscountAmount(trx.BasePrice, trx.DiscountPercent)
		pdf.CellFormat(colWidths[0]+colWidths[1], 8, fmt.Sprintf("Promo %s (%s%%)", trx.Promo.Code, trx.DiscountPercent), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[2], 8, "-"+utils.FormatRupiah(discount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(220, 230, 250)
	pdf.CellFormat(colWidths[0]+colWidths[1], 9, "Total", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colWidths[2], 9, utils.FormatRupiah(trx.TotalAmount), "1", 0, "R", true, 0, "")
	pdf.Ln(-1)

	return pdf.Output(w)
}

// WriteTransactionsXLSX writes the admin transaction report
func WriteTransactionsXLSX(w io.Writer, trxs []models.Transaction, stats *TransactionStats, from, to time.Time) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Transactions")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	sheet.AddRow().AddCell().SetString(utils.AppName + " - Transaction Report")
	sheet.AddRow().AddCell().SetString("Period: " + from.Format("2006-01-02") + " to " + to.Format("2006-01-02"))
	sheet.AddRow()

	bold := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	bold.Font = *font

	headers := []string{"Code", "Member", "Member ID", "Package", "Promo", "Base Price", "Discount %", "Total", "Status", "Created", "Paid"}
	headerRow := sheet.AddRow()
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}

	for i := range trxs {
		trx := &trxs[i]
		row := sheet.AddRow()
		row.AddCell().SetString(trx.Code)
		row.AddCell().SetString(memberName(trx))
		memberCode := ""
		if trx.Member != nil && trx.Member.Profile.MemberCode != nil {
			memberCode = *trx.Member.Profile.MemberCode
		}
		row.AddCell().SetString(memberCode)
		row.AddCell().SetString(productLabel(trx))
		promo := ""
		if trx.Promo != nil {
			promo = trx.Promo.Code
		}
		row.AddCell().SetString(promo)
		row.AddCell().SetFloat(trx.BasePrice.InexactFloat64())
		row.AddCell().SetFloat(trx.DiscountPercent.InexactFloat64())
		row.AddCell().SetFloat(trx.TotalAmount.InexactFloat64())
		row.AddCell().SetString(string(trx.Status))
		row.AddCell().SetString(trx.CreatedAt.Format("2006-01-02 15:04"))
		paid := ""
		if trx.PaidAt != nil {
			paid = trx.PaidAt.Format("2006-01-02 15:04")
		}
		row.AddCell().SetString(paid)
	}

	if stats != nil {
		sheet.AddRow()
		summary := sheet.AddRow().AddCell()
		summary.SetString("Summary")
		summary.SetStyle(bold)

		lines := [][2]string{
			{"Transactions", fmt.Sprintf("%d", stats.Total)},
			{"Paid", fmt.Sprintf("%d", stats.ByStatus[models.StatusPaid])},
			{"Unpaid", fmt.Sprintf("%d", stats.ByStatus[models.StatusUnpaid])},
			{"Expired", fmt.Sprintf("%d", stats.ByStatus[models.StatusExpired])},
			{"Cancelled", fmt.Sprintf("%d", stats.ByStatus[models.StatusCancelled])},
			{"Paid revenue", utils.FormatRupiah(stats.PaidRevenue)},
		}
		for _, l := range lines {
			row := sheet.AddRow()
			row.AddCell().SetString(l[0])
			row.AddCell().SetString(l[1])
		}
	}

	return file.Write(w)
}
