package constants

// TableType tags a detected table by the keywords it contains.
type TableType string

const (
	TablePartnershipProfitLoss TableType = "partnership-profit-loss"
	TableBankStatement         TableType = "bank-statement"
	TableTransaction           TableType = "transaction-table"
	TableGeneral               TableType = "general"
)

// Extraction method tags recorded on documents.
const (
	MethodPyMuPDF    = "pymupdf"
	MethodPdfplumber = "pdfplumber"
	MethodNativePDF  = "native-pdf"
	MethodPdftotext  = "pdftotext"
	MethodTesseract  = "tesseract"
	MethodVisionOCR  = "openai-vision-ocr"
	MethodDocumentAI = "openrouter-document-ai"
	MethodRegex      = "regex-fallback"
	MethodNone       = "none"
)
