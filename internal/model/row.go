package model

import "strings"

// Answer column names appended to every output row. AnswerColumns is the
// canonical order in which they are forced into the output column set.
const (
	ColQuestion      = "question"
	ColAnswer        = "answer"
	ColCitations     = "citations"
	ColCitationTexts = "citationTexts"
	ColSearchTerms   = "searchTerms"
)

// AnswerColumns lists the columns the batch driver populates, in output order.
var AnswerColumns = []string{ColQuestion, ColAnswer, ColCitations, ColCitationTexts, ColSearchTerms}

// Row is a single record of the question table: a column→value mapping with
// insertion order preserved, so output column order tracks input order.
type Row struct {
	columns []string
	values  map[string]string
}

// NewRow returns an empty Row.
func NewRow() *Row {
	return &Row{values: make(map[string]string)}
}

// Set assigns a value to a column, registering the column on first use.
func (r *Row) Set(column, value string) {
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Get returns the value for a column, or "" if the column is absent.
func (r *Row) Get(column string) string {
	return r.values[column]
}

// Has reports whether the column has been set on this row.
func (r *Row) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

// Columns returns the row's column names in insertion order.
func (r *Row) Columns() []string {
	return r.columns
}

// Question returns the trimmed question text.
func (r *Row) Question() string {
	return strings.TrimSpace(r.values[ColQuestion])
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	c := &Row{
		columns: make([]string, len(r.columns)),
		values:  make(map[string]string, len(r.values)),
	}
	copy(c.columns, r.columns)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}
