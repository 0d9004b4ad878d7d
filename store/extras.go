package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mbolis/quick-forms/location"
	"github.com/mbolis/quick-forms/model"
)

// GetExtras returns nil when no row exists for the submission.
func (s *Store) GetExtras(ctx context.Context, table *location.ExtrasTable, submissionID string) (*model.Extras, error) {
	values := make([]any, len(table.Columns))
	dest := make([]any, 0, len(table.Columns)+2)
	for i := range values {
		dest = append(dest, &values[i])
	}
	ex := model.Extras{SubmissionID: submissionID}
	dest = append(dest, &ex.CreatedAt, &ex.UpdatedAt)

	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s, created_at, updated_at
		FROM %s
		WHERE submission_id = $1`, strings.Join(table.ColumnNames(), ", "), table.Name),
		submissionID,
	).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ex.Fields = make(map[string]any, len(table.Columns))
	for i, col := range table.Columns {
		if b, ok := values[i].([]byte); ok {
			values[i] = string(b)
		}
		ex.Fields[col.Name] = values[i]
	}
	return &ex, nil
}

// UpsertExtras inserts the extras row of a submission or overwrites the
// given fields of the existing one. Field names must be columns of table.
func (s *Store) UpsertExtras(ctx context.Context, table *location.ExtrasTable, submissionID string, fields map[string]any, now time.Time) error {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := []any{submissionID}
	sets := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		args = append(args, fields[col])
		sets = append(sets, col+" = excluded."+col)
	}
	args = append(args, now, now)
	sets = append(sets, "updated_at = excluded.updated_at")

	insertCols := append([]string{"submission_id"}, cols...)
	insertCols = append(insertCols, "created_at", "updated_at")

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		ON CONFLICT (submission_id) DO UPDATE
		SET %s`,
		table.Name,
		strings.Join(insertCols, ", "),
		placeholders(1, len(args)),
		strings.Join(sets, ", "),
	), args...)
	return err
}
