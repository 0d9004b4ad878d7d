package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/location"
	"github.com/mbolis/quick-forms/model"
)

func (s *Store) CountSubmissions(ctx context.Context, tables location.Tables, formID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE form_template_id = $1`, tables.Submissions),
		formID,
	).Scan(&n)
	return n, err
}

func (s *Store) InsertSubmission(ctx context.Context, tables location.Tables, sub *model.Submission) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, form_template_id, user_id, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`, tables.Submissions),
		sub.ID,
		sub.FormTemplateID,
		nullInt64(sub.UserID),
		sub.SubmittedAt,
		sub.UpdatedAt,
	)
	return err
}

// InsertAnswers writes all answers with a single statement.
func (s *Store) InsertAnswers(ctx context.Context, tables location.Tables, answers []model.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	values := make([]string, len(answers))
	args := make([]any, 0, 3*len(answers))
	for i, a := range answers {
		value, err := model.WrapAnswer(a.Value)
		if err != nil {
			return err
		}
		values[i] = "(" + placeholders(3*i+1, 3) + ")"
		args = append(args, a.SubmissionID, a.QuestionID, value)
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (submission_id, question_id, answer_value)
		VALUES %s`, tables.Answers, strings.Join(values, ", ")),
		args...,
	)
	return err
}

func (s *Store) DeleteSubmission(ctx context.Context, tables location.Tables, id string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1`, tables.Submissions),
		id,
	)
	return err
}

// UpdateAnswer replaces the value of an existing answer row and reports
// whether one matched.
func (s *Store) UpdateAnswer(ctx context.Context, tables location.Tables, a model.Answer) (bool, error) {
	value, err := model.WrapAnswer(a.Value)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET answer_value = $1
		WHERE submission_id = $2
			AND question_id = $3`, tables.Answers),
		value,
		a.SubmissionID,
		a.QuestionID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) TouchSubmission(ctx context.Context, tables location.Tables, id string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET updated_at = $1 WHERE id = $2`, tables.Submissions),
		now,
		id,
	)
	return err
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	sub := model.Submission{}
	var userID sql.NullInt64
	err := row.Scan(&sub.ID, &sub.FormTemplateID, &userID, &sub.SubmittedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.UserID = int64Ptr(userID)
	return &sub, nil
}

// GetSubmission loads a submission of the given form.
func (s *Store) GetSubmission(ctx context.Context, tables location.Tables, formID int64, id string) (*model.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, form_template_id, user_id, submitted_at, updated_at
		FROM %s
		WHERE id = $1
			AND form_template_id = $2`, tables.Submissions),
		id,
		formID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, formerr.NotFound("submission", id)
	}
	return sub, err
}

func (s *Store) SubmissionExists(ctx context.Context, tables location.Tables, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE id = $1`, tables.Submissions),
		id,
	).Scan(&n)
	return n > 0, err
}

// AnswerDetails loads the answers of one submission joined with their
// questions, in render order.
func (s *Store) AnswerDetails(ctx context.Context, tables location.Tables, submissionID string) ([]model.AnswerDetail, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT q.id, q.title, qt.code, a.answer_value
		FROM %s a
		INNER JOIN questions q ON (q.id = a.question_id)
		INNER JOIN form_sections s ON (s.id = q.section_id)
		INNER JOIN question_types qt ON (qt.id = q.question_type_id)
		WHERE a.submission_id = $1
		ORDER BY s.order_index, q.order_index`, tables.Answers),
		submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []model.AnswerDetail{}
	for rows.Next() {
		a := model.AnswerDetail{}
		var value model.JSON
		err = rows.Scan(&a.QuestionID, &a.QuestionTitle, &a.TypeCode, &value)
		if err != nil {
			return nil, err
		}
		if a.Value, err = model.UnwrapAnswer(value); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// PageSubmissions returns one page of a form's submissions, newest first,
// along with the total count.
func (s *Store) PageSubmissions(ctx context.Context, tables location.Tables, formID int64, limit, offset int) ([]model.Submission, int64, error) {
	total, err := s.CountSubmissions(ctx, tables, formID)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, form_template_id, user_id, submitted_at, updated_at
		FROM %s
		WHERE form_template_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2 OFFSET $3`, tables.Submissions),
		formID,
		limit,
		offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, *sub)
	}
	return subs, total, rows.Err()
}

// Answers bulk-loads the answers of the given submissions.
func (s *Store) Answers(ctx context.Context, tables location.Tables, submissionIDs []string) ([]model.Answer, error) {
	if len(submissionIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(submissionIDs))
	for i, id := range submissionIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT submission_id, question_id, answer_value
		FROM %s
		WHERE submission_id IN (%s)`, tables.Answers, placeholders(1, len(args))),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		a := model.Answer{}
		var value model.JSON
		err = rows.Scan(&a.SubmissionID, &a.QuestionID, &value)
		if err != nil {
			return nil, err
		}
		if a.Value, err = model.UnwrapAnswer(value); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
