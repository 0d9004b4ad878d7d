package store

import (
	"context"
	"testing"
	"time"

	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/location"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(1, 0))
	assert.Equal(t, "$1", placeholders(1, 1))
	assert.Equal(t, "$4, $5, $6", placeholders(4, 3))
}

func TestStore_Templates(t *testing.T) {
	ctx := context.Background()

	t.Run("SlugTaken", func(t *testing.T) {
		db := testutil.OpenDB(t)
		s := New(db)
		id, _ := testutil.InsertForm(t, db, "intake", model.LocationAudits)

		taken, err := s.SlugTaken(ctx, "intake", 0)
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = s.SlugTaken(ctx, "intake", id)
		require.NoError(t, err)
		assert.False(t, taken)

		taken, err = s.SlugTaken(ctx, "Intake", 0)
		require.NoError(t, err)
		assert.False(t, taken)

		require.NoError(t, s.SetTemplateActive(ctx, id, false, time.Now()))
		taken, err = s.SlugTaken(ctx, "intake", 0)
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("InsertTemplate_ActiveSlugConflict", func(t *testing.T) {
		db := testutil.OpenDB(t)
		s := New(db)
		testutil.InsertForm(t, db, "intake", model.LocationAudits)
		now := time.Now().UTC()

		err := s.InsertTemplate(ctx, &model.FormTemplate{
			Name: "Intake", Slug: "intake", IsActive: true, Version: 1, CreatedAt: now, UpdatedAt: now,
		})

		var dup *formerr.DuplicateSlugError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "intake", dup.Slug)

		other := &model.FormTemplate{
			Name: "Other", Slug: "other", IsActive: true, Version: 1, CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, s.InsertTemplate(ctx, other))
		other.Slug = "intake"
		err = s.UpdateTemplate(ctx, other)
		require.ErrorAs(t, err, &dup)
	})

	t.Run("GetTemplate_NotFound", func(t *testing.T) {
		s := New(testutil.OpenDB(t))

		_, err := s.GetTemplate(ctx, 42)

		var notFound *formerr.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("SetTemplatePublic_NotFound", func(t *testing.T) {
		s := New(testutil.OpenDB(t))

		err := s.SetTemplatePublic(ctx, 42, true, time.Now())

		var notFound *formerr.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("Sections_Tree", func(t *testing.T) {
		db := testutil.OpenDB(t)
		s := New(db)
		textID := testutil.QuestionTypeID(t, db, "TEXT")
		id, qids := testutil.InsertForm(t, db, "tree", model.LocationCommunities,
			model.Question{QuestionTypeID: textID, Title: "Name"},
			model.Question{QuestionTypeID: textID, Title: "City"},
		)
		second := &model.FormSection{FormTemplateID: id, Title: "First", OrderIndex: -1}
		require.NoError(t, s.InsertSection(ctx, second))

		sections, err := s.Sections(ctx, id)

		require.NoError(t, err)
		require.Len(t, sections, 2)
		assert.Equal(t, "First", sections[0].Title)
		assert.Empty(t, sections[0].Questions)
		require.Len(t, sections[1].Questions, 2)
		assert.Equal(t, qids[0], sections[1].Questions[0].ID)
		assert.Equal(t, "TEXT", sections[1].Questions[0].TypeCode)
		assert.Equal(t, "City", sections[1].Questions[1].Title)
	})

	t.Run("QuestionTypes_Seeded", func(t *testing.T) {
		s := New(testutil.OpenDB(t))

		types, err := s.QuestionTypes(ctx)

		require.NoError(t, err)
		codes := make([]string, len(types))
		for i, qt := range types {
			codes[i] = qt.Code
		}
		assert.ElementsMatch(t, []string{
			"TEXT", "TEXTAREA", "NUMBER", "EMAIL", "DATE", "SELECT",
			"MULTI_SELECT", "CHECKBOX", "BOOLEAN", "RATING", "FILE",
		}, codes)
	})
}

func TestStore_Submissions(t *testing.T) {
	ctx := context.Background()
	tables, err := location.Default().Resolve(model.LocationOrganizations)
	require.NoError(t, err)

	newSubmission := func(t *testing.T, s *Store, formID int64, id string, at time.Time) {
		require.NoError(t, s.InsertSubmission(ctx, tables, &model.Submission{
			ID: id, FormTemplateID: formID, SubmittedAt: at, UpdatedAt: at,
		}))
	}

	t.Run("Answers_RoundTrip", func(t *testing.T) {
		db := testutil.OpenDB(t)
		s := New(db)
		formID, qids := testutil.InsertForm(t, db, "org", model.LocationOrganizations,
			model.Question{QuestionTypeID: testutil.QuestionTypeID(t, db, "CHECKBOX"), Title: "Tags"},
			model.Question{QuestionTypeID: testutil.QuestionTypeID(t, db, "BOOLEAN"), Title: "Ok"},
		)
		newSubmission(t, s, formID, "a", time.Now().UTC())

		err := s.InsertAnswers(ctx, tables, []model.Answer{
			{SubmissionID: "a", QuestionID: qids[0], Value: []any{"x", "y"}},
			{SubmissionID: "a", QuestionID: qids[1], Value: true},
		})
		require.NoError(t, err)

		answers, err := s.Answers(ctx, tables, []string{"a"})
		require.NoError(t, err)
		values := map[int64]any{}
		for _, a := range answers {
			values[a.QuestionID] = a.Value
		}
		assert.Equal(t, []any{"x", "y"}, values[qids[0]])
		assert.Equal(t, true, values[qids[1]])
	})

	t.Run("InsertAnswers_DuplicateQuestion", func(t *testing.T) {
		db := testutil.OpenDB(t)
		s := New(db)
		formID, qids := testutil.InsertForm(t, db, "org", model.LocationOrganizations,
			model.Question{QuestionTypeID: testutil.QuestionTypeID(t, db, "TEXT"), Title: "Name"},
		)
		newSubmission(t, s, formID, "a", time.Now().UTC())

		err := s.InsertAnswers(ctx, tables, []model.Answer{
			{SubmissionID: "a", QuestionID: qids[0], Value: "x"},
			{SubmissionID: "a", QuestionID: qids[0], Value: "y"},
		})

		assert.Error(t, err)
		answers, err := s.Answers(ctx, tables, []string{"a"})
		require.NoError(t, err)
		assert.Empty(t, answers)
	})

	t.Run("UpdateAnswer_NoRow", func(t *testing.T) {
		db := testutil.OpenDB(t)
		s := New(db)
		formID, qids := testutil.InsertForm(t, db, "org", model.LocationOrganizations,
			model.Question{QuestionTypeID: testutil.QuestionTypeID(t, db, "TEXT"), Title: "Name"},
		)
		newSubmission(t, s, formID, "a", time.Now().UTC())

		matched, err := s.UpdateAnswer(ctx, tables, model.Answer{SubmissionID: "a", QuestionID: qids[0], Value: "x"})

		require.NoError(t, err)
		assert.False(t, matched)
	})

	t.Run("DeleteSubmission_Cascades", func(t *testing.T) {
		db := testutil.OpenDB(t)
		s := New(db)
		formID, qids := testutil.InsertForm(t, db, "org", model.LocationOrganizations,
			model.Question{QuestionTypeID: testutil.QuestionTypeID(t, db, "TEXT"), Title: "Name"},
		)
		newSubmission(t, s, formID, "a", time.Now().UTC())
		require.NoError(t, s.InsertAnswers(ctx, tables, []model.Answer{{SubmissionID: "a", QuestionID: qids[0], Value: "x"}}))

		require.NoError(t, s.DeleteSubmission(ctx, tables, "a"))

		exists, err := s.SubmissionExists(ctx, tables, "a")
		require.NoError(t, err)
		assert.False(t, exists)
		answers, err := s.Answers(ctx, tables, []string{"a"})
		require.NoError(t, err)
		assert.Empty(t, answers)
	})

	t.Run("PageSubmissions_NewestFirst", func(t *testing.T) {
		db := testutil.OpenDB(t)
		s := New(db)
		formID, _ := testutil.InsertForm(t, db, "org", model.LocationOrganizations)
		t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		newSubmission(t, s, formID, "b", t0.Add(time.Hour))
		newSubmission(t, s, formID, "a", t0)
		newSubmission(t, s, formID, "c", t0.Add(2*time.Hour))

		subs, total, err := s.PageSubmissions(ctx, tables, formID, 2, 0)

		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, subs, 2)
		assert.Equal(t, "c", subs[0].ID)
		assert.Equal(t, "b", subs[1].ID)
		assert.True(t, subs[0].SubmittedAt.Equal(t0.Add(2*time.Hour)))
	})
}

func TestStore_LookupUsers(t *testing.T) {
	ctx := context.Background()
	s := New(testutil.OpenDB(t))
	ada, err := s.InsertUser(ctx, "ada", "Ada", "ada@example.com", []byte("h"), "editor")
	require.NoError(t, err)

	users, err := s.LookupUsers(ctx, []int64{ada, 999})

	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "ada@example.com", users[ada].Email)

	users, err = s.LookupUsers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}
