package enum

// ExportFormat identifies how an invoice is rendered
type ExportFormat string

const (
	ExportFormatPDF     ExportFormat = "pdf"
	ExportFormatReceipt ExportFormat = "receipt"
)

func (f ExportFormat) String() string {
	return string(f)
}
