package models

// RawTable is the decoded content of a single log file.
type RawTable struct {
	Source   string
	Columns  []string
	HasIndex bool
	Rows     []RawRow
}

// DropIndex removes the leading index column from the table. It runs once
// over the fully read table and returns a new table; the receiver is left
// untouched.
func (t *RawTable) DropIndex() *RawTable {
	if !t.HasIndex {
		return t
	}

	columns := make([]string, 0, len(t.Columns))
	if len(t.Columns) > 0 {
		columns = append(columns, t.Columns[1:]...)
	}

	rows := make([]RawRow, len(t.Rows))
	for i, row := range t.Rows {
		row.Index = ""
		rows[i] = row
	}

	return &RawTable{
		Source:   t.Source,
		Columns:  columns,
		HasIndex: false,
		Rows:     rows,
	}
}
