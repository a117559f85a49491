package table

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/copilot-qa/internal/model"
)

// WriteCSV writes the result rows as UTF-8 CSV. The byte-order mark is
// emitted ahead of any row data by the encoding layer, so tools that sniff
// the first bytes see it even though the csv writer buffers. Zero rows is an
// error: the output would carry no results.
//
// Rows are written to a temp file that is renamed into place only after a
// clean flush, so a mid-write failure never leaves a partial output at the
// target path.
func WriteCSV(path string, rows []*model.Row) error {
	if len(rows) == 0 {
		return eris.New("table: no rows to write")
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrapf(err, "table: create %s", path)
	}
	fail := func(err error, msg string) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return eris.Wrap(err, msg)
	}

	bw := transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
	w := csv.NewWriter(bw)

	columns := ResolveColumns(rows)
	if err := w.Write(columns); err != nil {
		return fail(err, "table: write header")
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, column := range columns {
			record[i] = row.Get(column)
		}
		if err := w.Write(record); err != nil {
			return fail(err, "table: write row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fail(err, "table: flush")
	}
	if err := bw.Close(); err != nil {
		return fail(err, "table: flush encoder")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "table: close %s", path)
	}

	return eris.Wrapf(os.Rename(tmp, path), "table: rename %s", path)
}
