package entity

import "github.com/joseph-ayodele/loan-intake/constants"

// ExtractedTable is a tabular region detected on one page. Tables are
// transient: they feed extractors and are never stored.
type ExtractedTable struct {
	PageNum int                 `json:"pageNum"`
	Headers []string            `json:"headers"`
	Rows    [][]string          `json:"rows"`
	Type    constants.TableType `json:"type"`
}

// TablesOfType filters tables by their detected type.
func TablesOfType(tables []ExtractedTable, t constants.TableType) []ExtractedTable {
	var out []ExtractedTable
	for _, tb := range tables {
		if tb.Type == t {
			out = append(out, tb)
		}
	}
	return out
}
