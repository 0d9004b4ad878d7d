package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/model"
)

const templateColumns = `
	t.id, t.name, t.description, t.slug, t.is_public, t.is_active,
	t.section_location, t.version, t.created_by, t.created_at, t.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*model.FormTemplate, error) {
	t := model.FormTemplate{}
	var loc sql.NullString
	var createdBy sql.NullInt64
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Slug, &t.IsPublic, &t.IsActive,
		&loc, &t.Version, &createdBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.SectionLocation = model.SectionLocation(loc.String)
	t.CreatedBy = int64Ptr(createdBy)
	return &t, nil
}

func (s *Store) GetTemplate(ctx context.Context, id int64) (*model.FormTemplate, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT`+templateColumns+`
		FROM form_templates t
		WHERE t.id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, formerr.NotFound("form", id)
	}
	return t, err
}

func (s *Store) GetActiveTemplateBySlug(ctx context.Context, slug string) (*model.FormTemplate, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT`+templateColumns+`
		FROM form_templates t
		WHERE t.slug = $1
			AND t.is_active = $2`,
		slug,
		true,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, formerr.NotFound("form", slug)
	}
	return t, err
}

func (s *Store) ListTemplates(ctx context.Context, includeInactive bool) ([]model.FormTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT`+templateColumns+`
		FROM form_templates t
		WHERE t.is_active = $1 OR $2
		ORDER BY t.name`,
		true,
		includeInactive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []model.FormTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// SlugTaken reports whether an active template other than excludeID uses
// slug. Matching is case-sensitive.
func (s *Store) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM form_templates
		WHERE slug = $1
			AND is_active = $2
			AND id <> $3`,
		slug,
		true,
		excludeID,
	).Scan(&n)
	return n > 0, err
}

func (s *Store) InsertTemplate(ctx context.Context, t *model.FormTemplate) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO form_templates (
			name, description, slug, is_public, is_active,
			section_location, version, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		t.Name,
		t.Description,
		t.Slug,
		t.IsPublic,
		t.IsActive,
		sql.NullString{String: string(t.SectionLocation), Valid: t.SectionLocation != ""},
		t.Version,
		nullInt64(t.CreatedBy),
		t.CreatedAt,
		t.UpdatedAt,
	).Scan(&t.ID)
	if uniqueViolation(err) {
		return &formerr.DuplicateSlugError{Slug: t.Slug}
	}
	return err
}

// UpdateTemplate overwrites the authored metadata of t. A slug already held
// by another active form fails with DuplicateSlugError.
func (s *Store) UpdateTemplate(ctx context.Context, t *model.FormTemplate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE form_templates
		SET
			name = $1,
			description = $2,
			slug = $3,
			is_public = $4,
			section_location = $5,
			version = $6,
			updated_at = $7
		WHERE id = $8`,
		t.Name,
		t.Description,
		t.Slug,
		t.IsPublic,
		sql.NullString{String: string(t.SectionLocation), Valid: t.SectionLocation != ""},
		t.Version,
		t.UpdatedAt,
		t.ID,
	)
	if uniqueViolation(err) {
		return &formerr.DuplicateSlugError{Slug: t.Slug}
	}
	return expectOne(res, err, "form", t.ID)
}

func (s *Store) SetTemplateActive(ctx context.Context, id int64, active bool, now time.Time) error {
	return s.setTemplateFlag(ctx, "is_active", id, active, now)
}

func (s *Store) SetTemplatePublic(ctx context.Context, id int64, public bool, now time.Time) error {
	return s.setTemplateFlag(ctx, "is_public", id, public, now)
}

func (s *Store) setTemplateFlag(ctx context.Context, column string, id int64, value bool, now time.Time) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE form_templates
		SET %s = $1, updated_at = $2
		WHERE id = $3`, column),
		value,
		now,
		id,
	)
	return expectOne(res, err, "form", id)
}

// DeleteTemplate removes a template with its sections and questions.
func (s *Store) DeleteTemplate(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM form_templates WHERE id = $1`, id)
	return err
}

// InsertSection keeps sec.ID when it is set, otherwise assigns a new one.
func (s *Store) InsertSection(ctx context.Context, sec *model.FormSection) error {
	if sec.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO form_sections (id, form_template_id, title, description, order_index)
			VALUES ($1, $2, $3, $4, $5)`,
			sec.ID, sec.FormTemplateID, sec.Title, sec.Description, sec.OrderIndex,
		)
		return err
	}
	return s.db.QueryRowContext(ctx, `
		INSERT INTO form_sections (form_template_id, title, description, order_index)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		sec.FormTemplateID, sec.Title, sec.Description, sec.OrderIndex,
	).Scan(&sec.ID)
}

// InsertQuestion keeps q.ID when it is set, otherwise assigns a new one.
func (s *Store) InsertQuestion(ctx context.Context, q *model.Question) error {
	if q.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO questions (
				id, form_template_id, section_id, question_type_id,
				title, help_text, is_required, order_index, config
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			q.ID, q.FormTemplateID, q.SectionID, q.QuestionTypeID,
			q.Title, q.HelpText, q.IsRequired, q.OrderIndex, q.Config,
		)
		return err
	}
	return s.db.QueryRowContext(ctx, `
		INSERT INTO questions (
			form_template_id, section_id, question_type_id,
			title, help_text, is_required, order_index, config
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		q.FormTemplateID, q.SectionID, q.QuestionTypeID,
		q.Title, q.HelpText, q.IsRequired, q.OrderIndex, q.Config,
	).Scan(&q.ID)
}

func (s *Store) DeleteQuestions(ctx context.Context, formID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE form_template_id = $1`, formID)
	return err
}

func (s *Store) DeleteSections(ctx context.Context, formID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM form_sections WHERE form_template_id = $1`, formID)
	return err
}

// Sections loads the section tree of a template, questions included, in
// render order.
func (s *Store) Sections(ctx context.Context, formID int64) ([]model.FormSection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_template_id, title, description, order_index
		FROM form_sections
		WHERE form_template_id = $1
		ORDER BY order_index`,
		formID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := []model.FormSection{}
	index := map[int64]int{}
	for rows.Next() {
		sec := model.FormSection{Questions: []model.Question{}}
		err = rows.Scan(&sec.ID, &sec.FormTemplateID, &sec.Title, &sec.Description, &sec.OrderIndex)
		if err != nil {
			return nil, err
		}
		index[sec.ID] = len(sections)
		sections = append(sections, sec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	questions, err := s.Questions(ctx, formID)
	if err != nil {
		return nil, err
	}
	for _, q := range questions {
		if i, ok := index[q.SectionID]; ok {
			sections[i].Questions = append(sections[i].Questions, q)
		}
	}
	return sections, nil
}

// Questions lists the questions of a template ordered by section, then by
// position inside the section.
func (s *Store) Questions(ctx context.Context, formID int64) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			q.id, q.form_template_id, q.section_id, q.question_type_id, qt.code,
			q.title, q.help_text, q.is_required, q.order_index, q.config
		FROM questions q
		INNER JOIN form_sections s ON (s.id = q.section_id)
		INNER JOIN question_types qt ON (qt.id = q.question_type_id)
		WHERE q.form_template_id = $1
		ORDER BY s.order_index, q.order_index`,
		formID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q := model.Question{}
		err = rows.Scan(
			&q.ID, &q.FormTemplateID, &q.SectionID, &q.QuestionTypeID, &q.TypeCode,
			&q.Title, &q.HelpText, &q.IsRequired, &q.OrderIndex, &q.Config,
		)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) QuestionTypes(ctx context.Context) ([]model.QuestionType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name, description, validation_schema
		FROM question_types
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []model.QuestionType{}
	for rows.Next() {
		qt := model.QuestionType{}
		err = rows.Scan(&qt.ID, &qt.Code, &qt.Name, &qt.Description, &qt.ValidationSchema)
		if err != nil {
			return nil, err
		}
		types = append(types, qt)
	}
	return types, rows.Err()
}

func expectOne(res sql.Result, err error, entity string, id any) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n < 1 {
		return formerr.NotFound(entity, id)
	}
	return nil
}
