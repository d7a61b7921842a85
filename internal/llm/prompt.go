package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

const (
	deedExcerptChars     = 8000
	bankExcerptChars     = 4000
	classifyExcerptChars = 1500
)

func partnershipDeedPrompt(text string, tables []entity.ExtractedTable) string {
	parts := []string{
		"You are reading a partnership deed submitted with a business loan application.",
		"Extract the following:",
		"1. Date of execution: the date on which THIS deed was made and executed. Ignore dates that refer to earlier or amended deeds (for example dates preceded by \"Dt.\"). Write it as \"DD Month YYYY\", e.g. \"11th day of JUNE, 2025\" becomes \"11 June 2025\".",
		"2. Partners and their profit and loss sharing. Read ALL numbered clauses, not just the first one that looks relevant; the sharing clause is often late in the deed or in a table.",
		"A ratio such as \"60:40\" means profit 60 and loss 40 for that partner unless the clause says otherwise. \"Equal shares\" means an equal split across all partners.",
		"Use null when a fact is not stated. Do not guess.",
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, "\n"))
	b.WriteString("\n\nDocument text:\n")
	b.WriteString(excerpt(text, deedExcerptChars))
	writeTables(&b, tables)
	b.WriteString("\n\nRespond with ONLY a JSON object in exactly this shape:\n")
	b.WriteString(`{"dateOfExecution": "DD Month YYYY or null", "partners": [{"name": "Partner name", "profitPercentage": 60, "lossPercentage": 40}]}`)
	return b.String()
}

func bankStatementPrompt(text string, tables []entity.ExtractedTable) string {
	parts := []string{
		"You are reading a bank account statement submitted with a loan application.",
		"Extract the bank name, the account holder name, the account number and the statement period.",
		"Dates must be DD/MM/YYYY. Use null when a field is not present. Do not guess.",
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, "\n"))
	b.WriteString("\n\nDocument text:\n")
	b.WriteString(excerpt(text, bankExcerptChars))
	writeTables(&b, tables)
	b.WriteString("\n\nRespond with ONLY a JSON object in exactly this shape:\n")
	b.WriteString(`{"bankName": "...", "accountHolder": "...", "accountNumber": "...", "periodFrom": "DD/MM/YYYY", "periodTo": "DD/MM/YYYY"}`)
	return b.String()
}

// VisionPrompt instructs the model to transcribe an image.
func VisionPrompt() string {
	parts := []string{
		"Extract all text from this image. It is a document submitted with a loan application.",
		"- Extract ALL visible text, including small print, stamps and handwriting where legible.",
		"- Keep the original structure and reading order.",
		"- Preserve tables as rows with cells separated by \" | \".",
		"- Include headers and footers.",
		"- Pay particular attention to names, dates, account numbers, PAN/GST/Udyam numbers, amounts and percentages.",
		"Return only the extracted text, without commentary.",
	}
	return strings.Join(parts, "\n")
}

// ClassificationPrompt asks for exactly one label from candidates.
func ClassificationPrompt(filename, text string, candidates []string) string {
	var b strings.Builder
	b.WriteString("You are a document classifier for a loan application system.\n")
	b.WriteString("Pick the single document type below that best matches the document.\n\n")
	b.WriteString("Document types:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString("\nFilename: ")
	b.WriteString(filename)
	b.WriteString("\n\nDocument text (excerpt):\n")
	b.WriteString(excerpt(text, classifyExcerptChars))
	b.WriteString("\n\nRespond with ONLY the exact document type from the list, or UNKNOWN if none fits.")
	return b.String()
}

func writeTables(b *strings.Builder, tables []entity.ExtractedTable) {
	if len(tables) == 0 {
		return
	}
	bs, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		return
	}
	b.WriteString("\n\nDetected Tables:\n")
	b.Write(bs)
}

// excerpt cuts s to at most n bytes without splitting a UTF-8 sequence.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
