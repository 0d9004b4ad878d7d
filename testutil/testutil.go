// Package testutil builds throwaway databases and fixtures for tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/mbolis/quick-forms/config"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/model"
)

// OpenDB creates a migrated SQLite database in a temporary directory.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(config.Config{
		DBDriver: config.DriverSQLite,
		DBUrl:    filepath.Join(t.TempDir(), "test.sqlite"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// QuestionTypeID returns the id of a seeded question type.
func QuestionTypeID(t *testing.T, db *sql.DB, code string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow("SELECT id FROM question_types WHERE code = $1", code).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to find question type %s: %v", code, err)
	}
	return id
}

// InsertForm writes a template with one section holding the given
// questions, bypassing the registry.
func InsertForm(t *testing.T, db *sql.DB, slug string, loc model.SectionLocation, questions ...model.Question) (int64, []int64) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	var formID int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO form_templates (name, slug, is_active, section_location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		slug, slug, true, sql.NullString{String: string(loc), Valid: loc != ""}, now, now,
	).Scan(&formID)
	if err != nil {
		t.Fatalf("Failed to insert form: %v", err)
	}

	var sectionID int64
	err = db.QueryRowContext(ctx, `
		INSERT INTO form_sections (form_template_id, title, order_index)
		VALUES ($1, $2, $3)
		RETURNING id`,
		formID, "Section", 0,
	).Scan(&sectionID)
	if err != nil {
		t.Fatalf("Failed to insert section: %v", err)
	}

	ids := make([]int64, len(questions))
	for i, q := range questions {
		err = db.QueryRowContext(ctx, `
			INSERT INTO questions (form_template_id, section_id, question_type_id, title, is_required, order_index)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			formID, sectionID, q.QuestionTypeID, q.Title, q.IsRequired, i,
		).Scan(&ids[i])
		if err != nil {
			t.Fatalf("Failed to insert question: %v", err)
		}
	}
	return formID, ids
}
