package table

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/copilot-qa/internal/model"
)

const resultsSheetName = "Results"

// Column width tiers (Excel character units). The long multi-line columns
// get extra-wide cells, question and answer medium, everything else narrow.
const (
	colWidthNarrow = 15.0
	colWidthMedium = 40.0
	colWidthWide   = 60.0
)

// Fixed row heights (points). Data rows are tall to accommodate wrapped
// multi-line citation text; the height is not computed from content.
const (
	headerRowHeight = 20.0
	dataRowHeight   = 120.0
)

var wideColumns = map[string]bool{
	model.ColCitations:     true,
	model.ColCitationTexts: true,
	model.ColSearchTerms:   true,
}

var mediumColumns = map[string]bool{
	model.ColQuestion: true,
	model.ColAnswer:   true,
}

// WriteXLSX writes the result rows as a styled spreadsheet: one "Results"
// sheet, bold centered wrapped header, wrapped top-aligned string cells.
// Every row gets a cell for every resolved column so the sheet dimension
// exactly covers header plus data; spreadsheet readers clip anything outside
// the declared range.
func WriteXLSX(path string, rows []*model.Row) error {
	if len(rows) == 0 {
		return eris.New("table: no rows to write")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(resultsSheetName)
	if err != nil {
		return eris.Wrap(err, "table: add sheet")
	}

	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true
	headerStyle.ApplyFont = true
	headerStyle.Alignment = xlsx.Alignment{Horizontal: "center", WrapText: true}
	headerStyle.ApplyAlignment = true

	cellStyle := xlsx.NewStyle()
	cellStyle.Alignment = xlsx.Alignment{Vertical: "top", WrapText: true}
	cellStyle.ApplyAlignment = true

	columns := ResolveColumns(rows)

	header := sheet.AddRow()
	header.SetHeight(headerRowHeight)
	for _, column := range columns {
		cell := header.AddCell()
		cell.SetString(column)
		cell.SetStyle(headerStyle)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		r.SetHeight(dataRowHeight)
		for _, column := range columns {
			cell := r.AddCell()
			cell.SetString(row.Get(column))
			cell.SetStyle(cellStyle)
		}
	}

	// Col ranges are 1-based in the stored file.
	for i, column := range columns {
		sheet.SetColWidth(i+1, i+1, columnWidth(column))
	}

	// Save through a temp file so a failed save never leaves a partial
	// output at the target path.
	tmp := path + ".tmp"
	if err := f.Save(tmp); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "table: save %s", path)
	}
	return eris.Wrapf(os.Rename(tmp, path), "table: rename %s", path)
}

func columnWidth(column string) float64 {
	switch {
	case wideColumns[column]:
		return colWidthWide
	case mediumColumns[column]:
		return colWidthMedium
	default:
		return colWidthNarrow
	}
}
