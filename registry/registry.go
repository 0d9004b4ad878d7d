// Package registry owns form templates and their section/question trees.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/location"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/model"
)

type Store interface {
	GetTemplate(ctx context.Context, id int64) (*model.FormTemplate, error)
	GetActiveTemplateBySlug(ctx context.Context, slug string) (*model.FormTemplate, error)
	ListTemplates(ctx context.Context, includeInactive bool) ([]model.FormTemplate, error)
	SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error)
	InsertTemplate(ctx context.Context, t *model.FormTemplate) error
	UpdateTemplate(ctx context.Context, t *model.FormTemplate) error
	SetTemplateActive(ctx context.Context, id int64, active bool, now time.Time) error
	SetTemplatePublic(ctx context.Context, id int64, public bool, now time.Time) error
	DeleteTemplate(ctx context.Context, id int64) error
	InsertSection(ctx context.Context, s *model.FormSection) error
	InsertQuestion(ctx context.Context, q *model.Question) error
	DeleteQuestions(ctx context.Context, formID int64) error
	DeleteSections(ctx context.Context, formID int64) error
	Sections(ctx context.Context, formID int64) ([]model.FormSection, error)
	QuestionTypes(ctx context.Context) ([]model.QuestionType, error)
	CountSubmissions(ctx context.Context, tables location.Tables, formID int64) (int64, error)
}

type Registry struct {
	store    Store
	router   *location.Router
	validate *validator.Validate
	now      func() time.Time
}

func New(store Store, router *location.Router) *Registry {
	return &Registry{
		store:    store,
		router:   router,
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateForm validates the slug and the tree before writing anything. If a
// section or question insert fails the new template is deleted again.
func (r *Registry) CreateForm(ctx context.Context, in FormInput) (*model.FormTemplate, error) {
	if err := r.checkInput(ctx, &in); err != nil {
		return nil, err
	}
	if err := r.checkSlug(ctx, in.Slug, 0); err != nil {
		return nil, err
	}

	now := r.now()
	t := &model.FormTemplate{
		Name:            in.Name,
		Description:     in.Description,
		Slug:            in.Slug,
		IsPublic:        in.IsPublic,
		IsActive:        true,
		SectionLocation: in.SectionLocation,
		Version:         1,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.store.InsertTemplate(ctx, t); err != nil {
		var dup *formerr.DuplicateSlugError
		if errors.As(err, &dup) {
			return nil, err
		}
		return nil, &formerr.WriteFailureError{Op: "registry.create_form.insert", Err: err}
	}

	if err := r.insertTree(ctx, tree(t.ID, in.Sections)); err != nil {
		werr := &formerr.WriteFailureError{Op: "registry.create_form.tree", Err: err}
		if cerr := r.store.DeleteTemplate(ctx, t.ID); cerr != nil {
			log.WithFields(log.Fields{"form": t.ID, "error": err, "rollback": cerr}).
				Error("registry.create_form: could not delete partially created form")
			return nil, &formerr.CompensationFailureError{Op: werr.Op, Err: werr, CompensationErr: cerr}
		}
		return nil, werr
	}

	log.Infof("form %d created (slug %s)", t.ID, t.Slug)
	return r.GetForm(ctx, t.ID)
}

// UpdateForm replaces metadata and the whole section tree of a form that
// has no submissions yet. Rejected updates leave the form untouched.
func (r *Registry) UpdateForm(ctx context.Context, id int64, in FormInput) (*model.FormTemplate, error) {
	if err := r.checkInput(ctx, &in); err != nil {
		return nil, err
	}

	old, err := r.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Version != 0 && in.Version != old.Version {
		return nil, &formerr.VersionConflictError{FormID: id, Expected: in.Version, Actual: old.Version}
	}
	if err = r.checkSlug(ctx, in.Slug, id); err != nil {
		return nil, err
	}

	count, err := r.submissionCount(ctx, old)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &formerr.HasSubmissionsError{FormID: id, Count: count}
	}

	snapshot, err := r.store.Sections(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *old
	updated.Name = in.Name
	updated.Description = in.Description
	updated.Slug = in.Slug
	updated.IsPublic = in.IsPublic
	updated.SectionLocation = in.SectionLocation
	updated.Version = old.Version + 1
	updated.UpdatedAt = r.now()
	if err = r.store.UpdateTemplate(ctx, &updated); err != nil {
		var dup *formerr.DuplicateSlugError
		if errors.As(err, &dup) {
			return nil, err
		}
		return nil, &formerr.WriteFailureError{Op: "registry.update_form.metadata", Err: err}
	}

	if err = r.replaceTree(ctx, id, tree(id, in.Sections)); err != nil {
		werr := &formerr.WriteFailureError{Op: "registry.update_form.tree", Err: err}
		if cerr := r.restore(ctx, old, snapshot); cerr != nil {
			log.WithFields(log.Fields{"form": id, "error": err, "rollback": cerr}).
				Error("registry.update_form: could not restore previous form")
			return nil, &formerr.CompensationFailureError{Op: werr.Op, Err: werr, CompensationErr: cerr}
		}
		return nil, werr
	}

	log.Infof("form %d updated to version %d", id, updated.Version)
	return r.GetForm(ctx, id)
}

// SetActive soft-disables or re-enables a form. Re-enabling fails when
// another active form took its slug meanwhile.
func (r *Registry) SetActive(ctx context.Context, id int64, active bool) error {
	if active {
		t, err := r.store.GetTemplate(ctx, id)
		if err != nil {
			return err
		}
		if !t.IsActive {
			if err = r.checkSlug(ctx, t.Slug, id); err != nil {
				return err
			}
		}
	}
	return r.store.SetTemplateActive(ctx, id, active, r.now())
}

func (r *Registry) SetPublic(ctx context.Context, id int64, public bool) error {
	return r.store.SetTemplatePublic(ctx, id, public, r.now())
}

// GetQuestionTypes never fails: a store error yields an empty catalog.
func (r *Registry) GetQuestionTypes(ctx context.Context) []model.QuestionType {
	types, err := r.store.QuestionTypes(ctx)
	if err != nil {
		log.WithError(err).Error("registry.question_types")
		return []model.QuestionType{}
	}
	return types
}

func (r *Registry) GetForm(ctx context.Context, id int64) (*model.FormTemplate, error) {
	t, err := r.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Sections, err = r.store.Sections(ctx, id); err != nil {
		return nil, err
	}
	return t, nil
}

// GetPublicForm returns an active public form by slug; anything else is
// reported as not found.
func (r *Registry) GetPublicForm(ctx context.Context, slug string) (*model.FormTemplate, error) {
	t, err := r.store.GetActiveTemplateBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !t.IsPublic {
		return nil, formerr.NotFound("form", slug)
	}
	if t.Sections, err = r.store.Sections(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Registry) ListForms(ctx context.Context, includeInactive bool) ([]model.FormTemplate, error) {
	return r.store.ListTemplates(ctx, includeInactive)
}

func (r *Registry) SubmissionCount(ctx context.Context, id int64) (int64, error) {
	t, err := r.store.GetTemplate(ctx, id)
	if err != nil {
		return 0, err
	}
	return r.submissionCount(ctx, t)
}

// a form without routable tables cannot have received submissions
func (r *Registry) submissionCount(ctx context.Context, t *model.FormTemplate) (int64, error) {
	tables, ok := submissionTables(r.router, t)
	if !ok {
		return 0, nil
	}
	return r.store.CountSubmissions(ctx, tables, t.ID)
}

func (r *Registry) checkInput(ctx context.Context, in *FormInput) error {
	types, err := r.store.QuestionTypes(ctx)
	if err != nil {
		return err
	}
	known := make(map[int64]bool, len(types))
	for _, qt := range types {
		known[qt.ID] = true
	}
	return r.check(in, known)
}

func (r *Registry) checkSlug(ctx context.Context, slug string, excludeID int64) error {
	taken, err := r.store.SlugTaken(ctx, slug, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return &formerr.DuplicateSlugError{Slug: slug}
	}
	return nil
}

func (r *Registry) insertTree(ctx context.Context, sections []model.FormSection) error {
	for i := range sections {
		s := &sections[i]
		if err := r.store.InsertSection(ctx, s); err != nil {
			return err
		}
		for j := range s.Questions {
			q := &s.Questions[j]
			q.SectionID = s.ID
			if err := r.store.InsertQuestion(ctx, q); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) replaceTree(ctx context.Context, formID int64, sections []model.FormSection) error {
	if err := r.store.DeleteQuestions(ctx, formID); err != nil {
		return err
	}
	if err := r.store.DeleteSections(ctx, formID); err != nil {
		return err
	}
	return r.insertTree(ctx, sections)
}

// restore puts back the metadata and the tree (with original ids) of a form
// whose update failed halfway.
func (r *Registry) restore(ctx context.Context, old *model.FormTemplate, snapshot []model.FormSection) error {
	var errs *multierror.Error
	if err := r.replaceTree(ctx, old.ID, snapshot); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := r.store.UpdateTemplate(ctx, old); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}
