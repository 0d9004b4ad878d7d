package registry

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/location"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/store"
	"github.com/mbolis/quick-forms/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails the n-th question insert (1-based) once armed.
type flakyStore struct {
	*store.Store
	failQuestionAt int
	questionCalls  int
	failTypes      bool
	staleSlugs     bool
}

// SlugTaken answers as a check made before a concurrent create committed.
func (s *flakyStore) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	if s.staleSlugs {
		return false, nil
	}
	return s.Store.SlugTaken(ctx, slug, excludeID)
}

func (s *flakyStore) InsertQuestion(ctx context.Context, q *model.Question) error {
	s.questionCalls++
	if s.failQuestionAt > 0 && s.questionCalls == s.failQuestionAt {
		return errors.New("connection reset")
	}
	return s.Store.InsertQuestion(ctx, q)
}

func (s *flakyStore) QuestionTypes(ctx context.Context) ([]model.QuestionType, error) {
	if s.failTypes {
		return nil, errors.New("connection reset")
	}
	return s.Store.QuestionTypes(ctx)
}

func setup(t *testing.T) (*sql.DB, *flakyStore, *Registry) {
	db := testutil.OpenDB(t)
	fs := &flakyStore{Store: store.New(db)}
	return db, fs, New(fs, location.Default())
}

func sampleInput(db *sql.DB, t *testing.T, slug string) FormInput {
	return FormInput{
		Name:            "Volunteer log",
		Slug:            slug,
		SectionLocation: model.LocationVolunteering,
		Sections: []SectionInput{{
			Title: "About you",
			Questions: []QuestionInput{
				{QuestionTypeID: testutil.QuestionTypeID(t, db, "TEXT"), Title: "Q1", IsRequired: true},
				{QuestionTypeID: testutil.QuestionTypeID(t, db, "NUMBER"), Title: "Q2", IsRequired: true, Config: model.JSON(`{"min":0}`)},
			},
		}},
	}
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestRegistry_CreateForm(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateForm_Success", func(t *testing.T) {
		db, _, reg := setup(t)

		form, err := reg.CreateForm(ctx, sampleInput(db, t, "volunteer-log"))

		require.NoError(t, err)
		assert.True(t, form.IsActive)
		assert.Equal(t, 1, form.Version)
		require.Len(t, form.Sections, 1)
		qs := form.Sections[0].Questions
		require.Len(t, qs, 2)
		assert.Equal(t, "TEXT", qs[0].TypeCode)
		assert.Equal(t, 0, qs[0].OrderIndex)
		assert.Equal(t, "NUMBER", qs[1].TypeCode)
		assert.Equal(t, 1, qs[1].OrderIndex)
		assert.JSONEq(t, `{"min":0}`, string(qs[1].Config))
	})

	t.Run("CreateForm_ExplicitOrder", func(t *testing.T) {
		db, _, reg := setup(t)
		in := sampleInput(db, t, "ordered")
		ten, five := 10, 5
		in.Sections[0].Questions[0].OrderIndex = &ten
		in.Sections[0].Questions[1].OrderIndex = &five

		form, err := reg.CreateForm(ctx, in)

		require.NoError(t, err)
		qs := form.Sections[0].Questions
		assert.Equal(t, "Q2", qs[0].Title)
		assert.Equal(t, "Q1", qs[1].Title)
	})

	t.Run("CreateForm_DuplicateSlug", func(t *testing.T) {
		db, _, reg := setup(t)
		_, err := reg.CreateForm(ctx, sampleInput(db, t, "dup"))
		require.NoError(t, err)

		form, err := reg.CreateForm(ctx, sampleInput(db, t, "dup"))

		assert.Nil(t, form)
		var dup *formerr.DuplicateSlugError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "dup", dup.Slug)
		assert.Equal(t, 1, countRows(t, db, "form_templates"))
		assert.Equal(t, 2, countRows(t, db, "questions"))
	})

	t.Run("CreateForm_SlugRace", func(t *testing.T) {
		db, fs, reg := setup(t)
		_, err := reg.CreateForm(ctx, sampleInput(db, t, "dup"))
		require.NoError(t, err)
		fs.staleSlugs = true

		form, err := reg.CreateForm(ctx, sampleInput(db, t, "dup"))

		assert.Nil(t, form)
		var dup *formerr.DuplicateSlugError
		require.True(t, errors.As(err, &dup))
		var writeFailure *formerr.WriteFailureError
		assert.False(t, errors.As(err, &writeFailure))
		assert.Equal(t, 1, countRows(t, db, "form_templates"))
	})

	t.Run("CreateForm_SlugIsCaseSensitive", func(t *testing.T) {
		db, _, reg := setup(t)
		_, err := reg.CreateForm(ctx, sampleInput(db, t, "intake"))
		require.NoError(t, err)

		_, err = reg.CreateForm(ctx, sampleInput(db, t, "Intake"))

		assert.NoError(t, err)
	})

	t.Run("CreateForm_SlugOfInactiveFormIsFree", func(t *testing.T) {
		db, _, reg := setup(t)
		first, err := reg.CreateForm(ctx, sampleInput(db, t, "reused"))
		require.NoError(t, err)
		require.NoError(t, reg.SetActive(ctx, first.ID, false))

		_, err = reg.CreateForm(ctx, sampleInput(db, t, "reused"))

		assert.NoError(t, err)
	})

	t.Run("CreateForm_Invalid", func(t *testing.T) {
		db, _, reg := setup(t)
		in := sampleInput(db, t, "")
		in.Name = ""
		in.SectionLocation = "PARISHES"
		in.Sections[0].Questions[0].QuestionTypeID = 9999
		zero := 0
		in.Sections[0].Questions[0].OrderIndex = &zero
		in.Sections[0].Questions[1].OrderIndex = &zero

		_, err := reg.CreateForm(ctx, in)

		var invalid *formerr.ValidationError
		require.True(t, errors.As(err, &invalid))
		assert.Contains(t, err.Error(), "name")
		assert.Contains(t, err.Error(), "slug")
		assert.Contains(t, err.Error(), "PARISHES")
		assert.Contains(t, err.Error(), "9999")
		assert.Contains(t, err.Error(), "used twice")
		assert.Equal(t, 0, countRows(t, db, "form_templates"))
	})

	t.Run("CreateForm_NullLocationAllowed", func(t *testing.T) {
		db, _, reg := setup(t)
		in := sampleInput(db, t, "nowhere")
		in.SectionLocation = ""

		form, err := reg.CreateForm(ctx, in)

		require.NoError(t, err)
		assert.Equal(t, model.SectionLocation(""), form.SectionLocation)
	})

	t.Run("CreateForm_TreeFailureRemovesForm", func(t *testing.T) {
		db, fs, reg := setup(t)
		fs.failQuestionAt = 2

		form, err := reg.CreateForm(ctx, sampleInput(db, t, "broken"))

		assert.Nil(t, form)
		var wf *formerr.WriteFailureError
		require.True(t, errors.As(err, &wf))
		assert.Equal(t, 0, countRows(t, db, "form_templates"))
		assert.Equal(t, 0, countRows(t, db, "form_sections"))
		assert.Equal(t, 0, countRows(t, db, "questions"))
	})
}

func TestRegistry_UpdateForm(t *testing.T) {
	ctx := context.Background()

	t.Run("UpdateForm_ReplacesTree", func(t *testing.T) {
		db, _, reg := setup(t)
		form, err := reg.CreateForm(ctx, sampleInput(db, t, "v1"))
		require.NoError(t, err)

		in := sampleInput(db, t, "v2")
		in.Name = "Renamed"
		in.Version = form.Version
		in.Sections = append(in.Sections, SectionInput{
			Title:     "Follow-up",
			Questions: []QuestionInput{{QuestionTypeID: testutil.QuestionTypeID(t, db, "BOOLEAN"), Title: "Q3"}},
		})

		updated, err := reg.UpdateForm(ctx, form.ID, in)

		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, "v2", updated.Slug)
		assert.Equal(t, 2, updated.Version)
		require.Len(t, updated.Sections, 2)
		assert.Equal(t, "Follow-up", updated.Sections[1].Title)
		assert.Equal(t, 3, countRows(t, db, "questions"))
	})

	t.Run("UpdateForm_KeepsOwnSlug", func(t *testing.T) {
		db, _, reg := setup(t)
		form, err := reg.CreateForm(ctx, sampleInput(db, t, "same"))
		require.NoError(t, err)

		_, err = reg.UpdateForm(ctx, form.ID, sampleInput(db, t, "same"))

		assert.NoError(t, err)
	})

	t.Run("UpdateForm_DuplicateSlug", func(t *testing.T) {
		db, _, reg := setup(t)
		_, err := reg.CreateForm(ctx, sampleInput(db, t, "taken"))
		require.NoError(t, err)
		form, err := reg.CreateForm(ctx, sampleInput(db, t, "mine"))
		require.NoError(t, err)

		_, err = reg.UpdateForm(ctx, form.ID, sampleInput(db, t, "taken"))

		var dup *formerr.DuplicateSlugError
		assert.True(t, errors.As(err, &dup))
	})

	t.Run("UpdateForm_SlugRace", func(t *testing.T) {
		db, fs, reg := setup(t)
		_, err := reg.CreateForm(ctx, sampleInput(db, t, "taken"))
		require.NoError(t, err)
		form, err := reg.CreateForm(ctx, sampleInput(db, t, "mine"))
		require.NoError(t, err)
		fs.staleSlugs = true

		_, err = reg.UpdateForm(ctx, form.ID, sampleInput(db, t, "taken"))

		var dup *formerr.DuplicateSlugError
		require.True(t, errors.As(err, &dup))
		got, err := reg.GetForm(ctx, form.ID)
		require.NoError(t, err)
		assert.Equal(t, "mine", got.Slug)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("UpdateForm_HasSubmissions", func(t *testing.T) {
		db, fs, reg := setup(t)
		form, err := reg.CreateForm(ctx, sampleInput(db, t, "frozen"))
		require.NoError(t, err)
		tables, err := location.Default().Resolve(model.LocationVolunteering)
		require.NoError(t, err)
		now := time.Now().UTC()
		require.NoError(t, fs.InsertSubmission(ctx, tables, &model.Submission{
			ID: "sub-1", FormTemplateID: form.ID, SubmittedAt: now, UpdatedAt: now,
		}))
		before, err := fs.Sections(ctx, form.ID)
		require.NoError(t, err)

		in := sampleInput(db, t, "frozen")
		in.Name = "Changed"
		in.Sections = nil
		_, err = reg.UpdateForm(ctx, form.ID, in)

		var frozen *formerr.HasSubmissionsError
		require.True(t, errors.As(err, &frozen))
		assert.Equal(t, int64(1), frozen.Count)
		assert.Contains(t, err.Error(), "1 submission")
		assert.Contains(t, err.Error(), "deactivate")

		after, err := fs.Sections(ctx, form.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		stored, err := reg.GetForm(ctx, form.ID)
		require.NoError(t, err)
		assert.Equal(t, "Volunteer log", stored.Name)
		assert.Equal(t, 1, stored.Version)
	})

	t.Run("UpdateForm_VersionConflict", func(t *testing.T) {
		db, _, reg := setup(t)
		form, err := reg.CreateForm(ctx, sampleInput(db, t, "versioned"))
		require.NoError(t, err)
		in := sampleInput(db, t, "versioned")
		in.Version = 7

		_, err = reg.UpdateForm(ctx, form.ID, in)

		var conflict *formerr.VersionConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, 1, conflict.Actual)
	})

	t.Run("UpdateForm_NotFound", func(t *testing.T) {
		db, _, reg := setup(t)

		_, err := reg.UpdateForm(ctx, 404, sampleInput(db, t, "ghost"))

		var nf *formerr.NotFoundError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("UpdateForm_TreeFailureRestoresForm", func(t *testing.T) {
		db, fs, reg := setup(t)
		form, err := reg.CreateForm(ctx, sampleInput(db, t, "restore-me"))
		require.NoError(t, err)
		before, err := fs.Sections(ctx, form.ID)
		require.NoError(t, err)

		fs.questionCalls = 0
		fs.failQuestionAt = 1
		in := sampleInput(db, t, "restore-me-v2")
		in.Name = "Never saved"
		_, err = reg.UpdateForm(ctx, form.ID, in)

		var wf *formerr.WriteFailureError
		require.True(t, errors.As(err, &wf))
		var cf *formerr.CompensationFailureError
		assert.False(t, errors.As(err, &cf))

		after, err := fs.Sections(ctx, form.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		stored, err := reg.GetForm(ctx, form.ID)
		require.NoError(t, err)
		assert.Equal(t, "Volunteer log", stored.Name)
		assert.Equal(t, "restore-me", stored.Slug)
		assert.Equal(t, 1, stored.Version)
	})
}

func TestRegistry_Flags(t *testing.T) {
	ctx := context.Background()

	t.Run("SetActive_ReactivationSlugConflict", func(t *testing.T) {
		db, _, reg := setup(t)
		first, err := reg.CreateForm(ctx, sampleInput(db, t, "slug"))
		require.NoError(t, err)
		require.NoError(t, reg.SetActive(ctx, first.ID, false))
		_, err = reg.CreateForm(ctx, sampleInput(db, t, "slug"))
		require.NoError(t, err)

		err = reg.SetActive(ctx, first.ID, true)

		var dup *formerr.DuplicateSlugError
		assert.True(t, errors.As(err, &dup))
	})

	t.Run("SetPublic_AllowedWithSubmissions", func(t *testing.T) {
		db, fs, reg := setup(t)
		form, err := reg.CreateForm(ctx, sampleInput(db, t, "public"))
		require.NoError(t, err)
		tables, _ := location.Default().Resolve(model.LocationVolunteering)
		now := time.Now().UTC()
		require.NoError(t, fs.InsertSubmission(ctx, tables, &model.Submission{
			ID: "sub-1", FormTemplateID: form.ID, SubmittedAt: now, UpdatedAt: now,
		}))

		require.NoError(t, reg.SetPublic(ctx, form.ID, true))

		public, err := reg.GetPublicForm(ctx, "public")
		require.NoError(t, err)
		assert.Len(t, public.Questions(), 2)
		count, err := reg.SubmissionCount(ctx, form.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("GetPublicForm_Private", func(t *testing.T) {
		db, _, reg := setup(t)
		_, err := reg.CreateForm(ctx, sampleInput(db, t, "private"))
		require.NoError(t, err)

		_, err = reg.GetPublicForm(ctx, "private")

		var nf *formerr.NotFoundError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("SetActive_NotFound", func(t *testing.T) {
		_, _, reg := setup(t)

		err := reg.SetActive(ctx, 404, false)

		var nf *formerr.NotFoundError
		assert.True(t, errors.As(err, &nf))
	})
}

func TestRegistry_GetQuestionTypes(t *testing.T) {
	ctx := context.Background()

	t.Run("GetQuestionTypes_OrderedByName", func(t *testing.T) {
		_, _, reg := setup(t)

		types := reg.GetQuestionTypes(ctx)

		require.NotEmpty(t, types)
		for i := 1; i < len(types); i++ {
			assert.LessOrEqual(t, types[i-1].Name, types[i].Name)
		}
	})

	t.Run("GetQuestionTypes_StoreError", func(t *testing.T) {
		_, fs, reg := setup(t)
		fs.failTypes = true

		types := reg.GetQuestionTypes(ctx)

		assert.NotNil(t, types)
		assert.Empty(t, types)
	})
}
