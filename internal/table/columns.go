package table

import "github.com/sells-group/copilot-qa/internal/model"

// ResolveColumns computes the output column set: the ordered, deduplicated
// union of every row's columns, with the answer columns force-appended in
// canonical order where not already present. Every output row renders every
// resolved column.
func ResolveColumns(rows []*model.Row) []string {
	seen := make(map[string]bool)
	var columns []string

	add := func(column string) {
		if !seen[column] {
			seen[column] = true
			columns = append(columns, column)
		}
	}

	for _, row := range rows {
		for _, column := range row.Columns() {
			add(column)
		}
	}
	for _, column := range model.AnswerColumns {
		add(column)
	}

	return columns
}
