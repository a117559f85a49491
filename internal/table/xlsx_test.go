package table

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/copilot-qa/internal/model"
)

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	rows := []*model.Row{
		makeRow("question", "What is the weather like today?", "category", "General",
			"answer", "It is sunny.", "citations", "Title: A", "citationTexts", "full", "searchTerms", "web, weather"),
		makeRow("question", "second", "category", "IT",
			"answer", "Error: 503 Service Unavailable", "citations", "", "citationTexts", "", "searchTerms", ""),
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, rows))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Results", sheet.Name)

	// Header + 2 data rows, every resolved column present in each.
	columns := ResolveColumns(rows)
	require.Len(t, sheet.Rows, 3)
	require.Len(t, sheet.Rows[0].Cells, len(columns))
	for i, column := range columns {
		assert.Equal(t, column, sheet.Rows[0].Cells[i].String())
	}

	get := func(rowIdx int, column string) string {
		for i, c := range columns {
			if c == column {
				return sheet.Rows[rowIdx].Cells[i].String()
			}
		}
		t.Fatalf("column %s not resolved", column)
		return ""
	}

	assert.Equal(t, "It is sunny.", get(1, "answer"))
	assert.Equal(t, "General", get(1, "category"))
	assert.Equal(t, "Error: 503 Service Unavailable", get(2, "answer"))
	assert.Equal(t, "", get(2, "citations"))
}

func TestWriteXLSXColumnWidths(t *testing.T) {
	t.Parallel()

	rows := []*model.Row{makeRow("question", "q", "category", "c")}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, rows))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet := f.Sheets[0]

	columns := ResolveColumns(rows)
	widthOf := func(column string) float64 {
		idx := -1
		for i, c := range columns {
			if c == column {
				idx = i + 1 // Col ranges are 1-based
			}
		}
		require.GreaterOrEqual(t, idx, 1, "column %s not resolved", column)
		col := sheet.Cols.FindColByIndex(idx)
		require.NotNil(t, col, "no width recorded for column %s", column)
		return col.Width
	}

	assert.Equal(t, colWidthWide, widthOf("citations"))
	assert.Equal(t, colWidthWide, widthOf("citationTexts"))
	assert.Equal(t, colWidthWide, widthOf("searchTerms"))
	assert.Equal(t, colWidthMedium, widthOf("question"))
	assert.Equal(t, colWidthMedium, widthOf("answer"))
	assert.Equal(t, colWidthNarrow, widthOf("category"))

	// Nothing lands outside the sheet's 1-based column range.
	assert.Nil(t, sheet.Cols.FindColByIndex(0))
}

func TestWriteXLSXRowHeights(t *testing.T) {
	t.Parallel()

	rows := []*model.Row{makeRow("question", "q")}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, rows))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet := f.Sheets[0]

	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, headerRowHeight, sheet.Rows[0].Height)
	assert.Equal(t, dataRowHeight, sheet.Rows[1].Height)
}

func TestWriteXLSXHeaderStyle(t *testing.T) {
	t.Parallel()

	rows := []*model.Row{makeRow("question", "q")}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, rows))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet := f.Sheets[0]

	headerStyle := sheet.Rows[0].Cells[0].GetStyle()
	require.NotNil(t, headerStyle)
	assert.True(t, headerStyle.Font.Bold)
	assert.Equal(t, "center", headerStyle.Alignment.Horizontal)
	assert.True(t, headerStyle.Alignment.WrapText)

	dataStyle := sheet.Rows[1].Cells[0].GetStyle()
	require.NotNil(t, dataStyle)
	assert.Equal(t, "top", dataStyle.Alignment.Vertical)
	assert.True(t, dataStyle.Alignment.WrapText)
}

func TestWriteXLSXLeavesNoTempFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, []*model.Row{makeRow("question", "q")}))

	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteXLSXZeroRows(t *testing.T) {
	t.Parallel()

	err := WriteXLSX(filepath.Join(t.TempDir(), "out.xlsx"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rows")
}
