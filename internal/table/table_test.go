package table

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/copilot-qa/internal/model"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func makeRow(pairs ...string) *model.Row {
	row := model.NewRow()
	for i := 0; i+1 < len(pairs); i += 2 {
		row.Set(pairs[i], pairs[i+1])
	}
	return row
}

func TestReadQuestions(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "question,category\nWhat is the weather like today?,General\nHow do I reset my password?,IT\n")

	rows, err := ReadQuestions(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"question", "category"}, rows[0].Columns())
	assert.Equal(t, "What is the weather like today?", rows[0].Get("question"))
	assert.Equal(t, "General", rows[0].Get("category"))
	assert.Equal(t, "IT", rows[1].Get("category"))
}

func TestReadQuestionsDropsEmptyQuestions(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "question,category\n,General\n   ,IT\nreal question,Ops\n")

	rows, err := ReadQuestions(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "real question", rows[0].Get("question"))
}

func TestReadQuestionsPreservesOrder(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "question\nfirst\n\nsecond\nthird\n")

	rows, err := ReadQuestions(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "first", rows[0].Get("question"))
	assert.Equal(t, "second", rows[1].Get("question"))
	assert.Equal(t, "third", rows[2].Get("question"))
}

func TestReadQuestionsStripsBOM(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "\xEF\xBB\xBFquestion\nhello\n")

	rows, err := ReadQuestions(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "hello", rows[0].Get("question"))
	assert.Equal(t, []string{"question"}, rows[0].Columns())
}

func TestReadQuestionsShortRecordPadsEmpty(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "question,category\nonly question\n")

	rows, err := ReadQuestions(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Get("category"))
	assert.True(t, rows[0].Has("category"))
}

func TestReadQuestionsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ReadQuestions(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestReadQuestionsEmptyFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "")
	_, err := ReadQuestions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestResolveColumns(t *testing.T) {
	t.Parallel()

	rows := []*model.Row{
		makeRow("question", "q1", "category", "c1"),
		makeRow("question", "q2", "priority", "high"),
	}

	columns := ResolveColumns(rows)
	assert.Equal(t, []string{
		"question", "category", "priority",
		"answer", "citations", "citationTexts", "searchTerms",
	}, columns)
}

func TestResolveColumnsNoDuplicateAnswerColumns(t *testing.T) {
	t.Parallel()

	rows := []*model.Row{
		makeRow("question", "q", "answer", "a", "citations", "c"),
	}

	columns := ResolveColumns(rows)
	assert.Equal(t, []string{
		"question", "answer", "citations", "citationTexts", "searchTerms",
	}, columns)
}

func TestWriteCSVEmitsBOMFirst(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	rows := []*model.Row{makeRow("question", "q", "answer", "a")}

	require.NoError(t, WriteCSV(path, rows))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(raw), 3)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, raw[:3])
}

func TestWriteCSVZeroRows(t *testing.T) {
	t.Parallel()

	err := WriteCSV(filepath.Join(t.TempDir(), "out.csv"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rows")
}

func TestWriteCSVRoundTrip(t *testing.T) {
	t.Parallel()

	in := []*model.Row{
		makeRow("question", "What is the weather like today?", "category", "General",
			"answer", "It is sunny.", "citations", "Title: A\nURL: B\nText: C",
			"citationTexts", "full text", "searchTerms", "web, weather"),
		makeRow("question", "q2 with \"quotes\", commas", "category", "IT",
			"answer", "Error: 503 Service Unavailable", "citations", "",
			"citationTexts", "", "searchTerms", ""),
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(path, in))

	out, err := ReadQuestions(path)
	require.NoError(t, err)
	require.Len(t, out, 2)

	columns := ResolveColumns(in)
	for i, row := range out {
		assert.Equal(t, columns, row.Columns())
		for _, column := range columns {
			assert.Equal(t, in[i].Get(column), row.Get(column), "row %d column %s", i, column)
		}
	}
}

func TestWriteCSVFillsMissingColumns(t *testing.T) {
	t.Parallel()

	in := []*model.Row{
		makeRow("question", "q1", "category", "General"),
		makeRow("question", "q2", "priority", "high"),
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(path, in))

	out, err := ReadQuestions(path)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Every row exposes every resolved column, empty where unset.
	for _, row := range out {
		assert.Equal(t, ResolveColumns(in), row.Columns())
	}
	assert.Equal(t, "", out[0].Get("priority"))
	assert.Equal(t, "", out[1].Get("category"))
}

func TestWriteCSVLeavesNoTempFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, WriteCSV(path, []*model.Row{makeRow("question", "q")}))

	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteCSVFailureLeavesNoOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "out.csv")
	require.Error(t, WriteCSV(path, []*model.Row{makeRow("question", "q")}))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
