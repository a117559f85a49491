// Package table reads the question table and writes the augmented result
// table as CSV or XLSX.
package table

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/copilot-qa/internal/model"
)

// ReadQuestions parses a CSV question table. The first record is the header;
// a leading UTF-8 BOM is stripped. Rows whose trimmed "question" value is
// empty are silently dropped. A missing or undecodable file is an error.
func ReadQuestions(path string) ([]*model.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(transform.NewReader(f, unicode.UTF8BOM.NewDecoder()))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.Errorf("table: %s is empty", path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "table: read header")
	}

	var rows []*model.Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "table: read row")
		}

		row := model.NewRow()
		for i, column := range header {
			var value string
			if i < len(record) {
				value = record[i]
			}
			row.Set(column, value)
		}

		if row.Question() == "" {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}
