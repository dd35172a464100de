package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sangkips/pharmacy-invoice/internal/domain/entity"
	"github.com/sangkips/pharmacy-invoice/internal/domain/enum"
	"github.com/sangkips/pharmacy-invoice/internal/domain/invoice"
	"github.com/sangkips/pharmacy-invoice/pkg/apperror"
	"github.com/sangkips/pharmacy-invoice/pkg/metrics"
	"github.com/sangkips/pharmacy-invoice/pkg/pdf"
	"github.com/sangkips/pharmacy-invoice/pkg/printer"
)

// ExportService renders invoices as PDF documents and thermal receipts.
// Exports never change the invoice or the catalog.
type ExportService struct {
	invoices    *InvoiceService
	catalog     *CatalogService
	renderer    *pdf.Renderer
	printer     printer.Printer
	printerType string
	charWidth   int
	header      entity.ReceiptHeader
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// ExportConfig holds the export collaborators
type ExportConfig struct {
	Renderer    *pdf.Renderer
	Printer     printer.Printer
	PrinterType string
	CharWidth   int
	Header      entity.ReceiptHeader
}

// NewExportService creates a new export service
func NewExportService(invoices *InvoiceService, catalog *CatalogService, cfg ExportConfig, m *metrics.Metrics, logger zerolog.Logger) *ExportService {
	p := cfg.Printer
	if p == nil {
		p = printer.NewNullPrinter()
	}
	return &ExportService{
		invoices:    invoices,
		catalog:     catalog,
		renderer:    cfg.Renderer,
		printer:     p,
		printerType: strings.ToLower(strings.TrimSpace(cfg.PrinterType)),
		charWidth:   cfg.CharWidth,
		header:      cfg.Header,
		metrics:     m,
		logger:      logger,
	}
}

// PDFDocument is a rendered invoice
type PDFDocument struct {
	Filename string
	Data     []byte
}

// RenderPDF renders the invoice's current state
func (s *ExportService) RenderPDF(ctx context.Context, invoiceID string) (*PDFDocument, error) {
	start := time.Now()
	doc, err := s.renderPDF(ctx, invoiceID)
	s.metrics.Export(enum.ExportFormatPDF.String(), time.Since(start).Seconds(), err)
	return doc, err
}

func (s *ExportService) renderPDF(ctx context.Context, invoiceID string) (*PDFDocument, error) {
	snap, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	doc := pdf.Invoice{
		Reference:     snap.Reference,
		Date:          time.Now(),
		PatientName:   s.patientName(ctx, snap.SelectedPatientID),
		AllProducts:   snap.SelectedPatientID == entity.AllPatients,
		Subtotal:      snap.Totals.Subtotal,
		DiscountTotal: snap.Totals.DiscountTotal,
		GrandTotal:    snap.Totals.GrandTotal,
	}
	for _, it := range snap.Items {
		doc.Lines = append(doc.Lines, pdf.Line{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Discount: it.Discount,
			Net:      invoice.LineNet(it),
		})
	}

	data, err := s.renderer.Render(ctx, doc)
	if err != nil {
		s.logger.Error().Err(err).Str("invoice_id", invoiceID).Msg("pdf export failed")
		if errors.Is(err, pdf.ErrFontUnavailable) {
			return nil, apperror.NewUpstreamError("Font could not be loaded", err)
		}
		return nil, apperror.NewInternalError("Failed to render invoice", err)
	}

	return &PDFDocument{
		Filename: fmt.Sprintf("invoice-%s.pdf", snap.Reference),
		Data:     data,
	}, nil
}

// patientName returns "" for sentinels and for patients deleted meanwhile
func (s *ExportService) patientName(ctx context.Context, patientID string) string {
	if !invoice.IsConcretePatient(patientID) {
		return ""
	}
	patient, err := s.catalog.GetPatient(ctx, patientID)
	if err != nil {
		return ""
	}
	return patient.Name
}

// PrinterStatus returns the current printer status information.
type PrinterStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Type       string `json:"type"`
}

// GetPrinterStatus returns printer connection status.
func (s *ExportService) GetPrinterStatus() *PrinterStatus {
	return &PrinterStatus{
		Configured: s.printerType != printer.TypeNone && s.printerType != "",
		Connected:  s.printer.IsConnected(),
		Type:       s.printerType,
	}
}

// BuildReceipt composes a receipt from the invoice's current state
func (s *ExportService) BuildReceipt(ctx context.Context, invoiceID string) (*entity.Receipt, error) {
	snap, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	receipt := &entity.Receipt{
		Header:        s.header,
		InvoiceNo:     snap.Reference,
		Date:          time.Now().Format("2006-01-02 15:04"),
		Patient:       s.patientName(ctx, snap.SelectedPatientID),
		Items:         make([]entity.ReceiptItem, 0, len(snap.Items)),
		SubTotal:      snap.Totals.Subtotal,
		DiscountTotal: snap.Totals.DiscountTotal,
		Total:         snap.Totals.GrandTotal,
	}
	for _, it := range snap.Items {
		receipt.Items = append(receipt.Items, entity.ReceiptItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
			Discount:  it.Discount,
			Total:     invoice.LineNet(it),
		})
	}
	return receipt, nil
}

// PrintReceipt builds the invoice receipt and sends it to the printer.
// When printing fails the receipt is still returned along with the error.
func (s *ExportService) PrintReceipt(ctx context.Context, invoiceID string) (*entity.Receipt, error) {
	start := time.Now()
	receipt, err := s.BuildReceipt(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	data := FormatReceipt(receipt, s.charWidth)
	err = s.printer.Print(ctx, data)
	s.metrics.Export(enum.ExportFormatReceipt.String(), time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Warn().Err(err).Str("invoice_id", invoiceID).Msg("printer error")
		return receipt, fmt.Errorf("failed to print receipt: %w", err)
	}
	return receipt, nil
}

// TestPrint sends a test page to the printer.
// Returns the receipt data so the handler can return it as JSON when printer is disabled.
func (s *ExportService) TestPrint(ctx context.Context) (*entity.Receipt, error) {
	receipt := &entity.Receipt{
		Header:    s.header,
		InvoiceNo: "TEST-001",
		Date:      time.Now().Format("2006-01-02 15:04"),
		Items: []entity.ReceiptItem{
			{Name: "Test Item 1", Quantity: 1, UnitPrice: 10.00, Total: 10.00},
			{Name: "Test Item 2", Quantity: 2, UnitPrice: 5.00, Discount: 10, Total: 9.00},
		},
		SubTotal:      20.00,
		DiscountTotal: 1.00,
		Total:         19.00,
	}

	if err := s.printer.Print(ctx, FormatReceipt(receipt, s.charWidth)); err != nil {
		return receipt, fmt.Errorf("test print failed: %w", err)
	}
	return receipt, nil
}

// FormatReceipt converts a Receipt into ESC/POS bytes.
func FormatReceipt(r *entity.Receipt, charWidth int) []byte {
	doc := printer.NewDocument(charWidth)

	// Header
	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		SetFontSize(printer.FontDouble).
		Line(r.Header.StoreName).
		SetFontSize(printer.FontNormal).
		SetBold(false)

	if r.Header.Address != "" {
		doc.Line(r.Header.Address)
	}
	if r.Header.Phone != "" {
		doc.Line(r.Header.Phone)
	}

	doc.SetAlign(printer.AlignLeft).
		Separator('-')

	doc.KeyValue("Invoice:", r.InvoiceNo).
		KeyValue("Date:", r.Date)
	if r.Patient != "" {
		doc.KeyValue("Patient:", r.Patient)
	}

	doc.Separator('-')

	for _, item := range r.Items {
		doc.Item(item.Name, item.Quantity, item.UnitPrice, item.Discount, item.Total)
	}

	doc.Separator('-')

	doc.KeyValue("Subtotal:", printer.Money(r.SubTotal))
	if r.DiscountTotal > 0 {
		doc.KeyValue("Discount:", printer.Money(r.DiscountTotal))
	}
	doc.SetBold(true).
		KeyValue("TOTAL:", printer.Money(r.Total)).
		SetBold(false)

	doc.Separator('-')

	// Footer
	doc.SetAlign(printer.AlignCenter).
		Feed(1).
		Line("Get well soon!").
		Feed(1).
		SetAlign(printer.AlignLeft)

	doc.Feed(3).
		PartialCut()

	return doc.Bytes()
}
