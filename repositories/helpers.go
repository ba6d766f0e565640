package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLExecutor abstracts *sql.DB and *sql.Tx so repository calls can run
// standalone or inside a transaction owned by the graph store.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Postgres caps bind parameters per statement at 65535; chunks stay under it.
const maxBindParameters = 65535

// upsertQuery builds one multi-row INSERT ... ON CONFLICT (pk) DO UPDATE
// statement. Every non-key column is overwritten from EXCLUDED, except the
// preserved columns, which keep the stored value when the incoming row
// carries NULL. That lets a narrow sync re-upsert a row without nulling out
// fields only a wider fetch populates.
func upsertQuery(table string, columns []string, conflictColumn string, preserved []string, rowCount int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES ")

	arg := 1
	for row := 0; row < rowCount; row++ {
		if row > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for col := range columns {
			if col > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteString(")")
	}

	b.WriteString(" ON CONFLICT (")
	b.WriteString(conflictColumn)
	b.WriteString(") DO UPDATE SET ")
	first := true
	for _, col := range columns {
		if col == conflictColumn {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(col)
		if isPreserved(preserved, col) {
			fmt.Fprintf(&b, " = COALESCE(EXCLUDED.%s, %s.%s)", col, table, col)
		} else {
			b.WriteString(" = EXCLUDED.")
			b.WriteString(col)
		}
	}

	return b.String()
}

func isPreserved(preserved []string, col string) bool {
	for _, p := range preserved {
		if p == col {
			return true
		}
	}
	return false
}

// execUpsert runs the batch upsert for the given rows, splitting the batch
// into multiple statements when one would exceed the bind parameter limit.
func execUpsert(ctx context.Context, exec SQLExecutor, table string, columns []string, conflictColumn string, preserved []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	limit := maxBindParameters / len(columns)
	for start := 0; start < len(rows); start += limit {
		end := start + limit
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		query := upsertQuery(table, columns, conflictColumn, preserved, len(chunk))
		args := make([]interface{}, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			args = append(args, row...)
		}
		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}
