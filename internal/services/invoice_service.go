package services

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/biovolt/marketplace-api/internal/domain"
)

// InvoiceService renders a PDF invoice for an order.
type InvoiceService interface {
	Render(order domain.Order) ([]byte, error)
}

type invoiceService struct {
	sellerName    string
	sellerAddress string
}

// NewInvoiceService constructs the renderer.
func NewInvoiceService() InvoiceService {
	return &invoiceService{
		sellerName:    "BioVolt Industrial Marketplace",
		sellerAddress: "billing@biovolt.example",
	}
}

func (s *invoiceService) Render(order domain.Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+order.ID, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 5, s.sellerName)
	pdf.Ln(5)
	pdf.Cell(0, 5, s.sellerAddress)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 5, "Order "+order.ID)
	pdf.Ln(5)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 5, "Date: "+order.CreatedAt.Format("2006-01-02"))
	pdf.Ln(5)
	pdf.Cell(0, 5, "Bill to: "+order.Email)
	pdf.Ln(5)
	addr := order.BillingAddress
	pdf.Cell(0, 5, fmt.Sprintf("%s, %s %s, %s", addr.Line1, addr.City, addr.PostalCode, addr.Country))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Unit Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Amount", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range order.Items {
		name := item.ProductName
		if item.SelectedVariant != nil && item.SelectedVariant.Name != "" {
			name += " / " + item.SelectedVariant.Name
		}
		pdf.CellFormat(90, 7, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("$%.2f", item.PriceAtPurchase), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("$%.2f", domain.LineTotal(item.PriceAtPurchase, item.Quantity)), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(150, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, fmt.Sprintf("$%.2f", order.TotalAmount), "1", 1, "R", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 5, fmt.Sprintf("Payment status: %s", order.PaymentStatus))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
