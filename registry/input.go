package registry

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/location"
	"github.com/mbolis/quick-forms/model"
)

// FormInput is the authored shape of a form. A zero Version skips the
// optimistic version check on update.
type FormInput struct {
	Name            string                `json:"name" validate:"required,max=200"`
	Description     string                `json:"description"`
	Slug            string                `json:"slug" validate:"required,max=100"`
	IsPublic        bool                  `json:"isPublic"`
	SectionLocation model.SectionLocation `json:"sectionLocation"`
	Version         int                   `json:"version" validate:"gte=0"`
	CreatedBy       *int64                `json:"-"`
	Sections        []SectionInput        `json:"sections" validate:"dive"`
}

type SectionInput struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description"`
	OrderIndex  *int            `json:"orderIndex" validate:"omitempty,gte=0"`
	Questions   []QuestionInput `json:"questions" validate:"dive"`
}

type QuestionInput struct {
	QuestionTypeID int64      `json:"questionTypeId" validate:"required"`
	Title          string     `json:"title" validate:"required"`
	HelpText       string     `json:"helpText"`
	IsRequired     bool       `json:"isRequired"`
	OrderIndex     *int       `json:"orderIndex" validate:"omitempty,gte=0"`
	Config         model.JSON `json:"config"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs the struct rules, then the rules spanning several fields.
func (r *Registry) check(in *FormInput, types map[int64]bool) error {
	var problems formerr.Validation

	if err := r.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			field := strings.TrimPrefix(fe.Namespace(), "FormInput.")
			problems.Add(field, "failed %q rule", fe.Tag())
		}
	}

	if in.SectionLocation != "" && !r.router.Known(in.SectionLocation) {
		problems.Add("sectionLocation", "unknown location %q", in.SectionLocation)
	}

	sectionOrder := map[int]bool{}
	for i, s := range in.Sections {
		idx := orderOf(s.OrderIndex, i)
		if sectionOrder[idx] {
			problems.Add("sections", "orderIndex %d used twice", idx)
		}
		sectionOrder[idx] = true

		questionOrder := map[int]bool{}
		for j, q := range s.Questions {
			idx := orderOf(q.OrderIndex, j)
			if questionOrder[idx] {
				problems.Add("sections.questions", "orderIndex %d used twice in section %q", idx, s.Title)
			}
			questionOrder[idx] = true

			if q.QuestionTypeID != 0 && !types[q.QuestionTypeID] {
				problems.Add("sections.questions.questionTypeId", "unknown question type %d", q.QuestionTypeID)
			}
		}
	}

	return problems.Err()
}

func orderOf(explicit *int, position int) int {
	if explicit != nil {
		return *explicit
	}
	return position
}

// tree turns authored sections into unsaved rows with their final order.
func tree(formID int64, in []SectionInput) []model.FormSection {
	sections := make([]model.FormSection, len(in))
	for i, s := range in {
		sections[i] = model.FormSection{
			FormTemplateID: formID,
			Title:          s.Title,
			Description:    s.Description,
			OrderIndex:     orderOf(s.OrderIndex, i),
			Questions:      make([]model.Question, len(s.Questions)),
		}
		for j, q := range s.Questions {
			sections[i].Questions[j] = model.Question{
				FormTemplateID: formID,
				QuestionTypeID: q.QuestionTypeID,
				Title:          q.Title,
				HelpText:       q.HelpText,
				IsRequired:     q.IsRequired,
				OrderIndex:     orderOf(q.OrderIndex, j),
				Config:         q.Config,
			}
		}
	}
	return sections
}

// submissionTables resolves where a template's submissions live; ok is
// false for a template that cannot hold any.
func submissionTables(router *location.Router, t *model.FormTemplate) (location.Tables, bool) {
	tables, err := router.Resolve(t.SectionLocation)
	return tables, err == nil
}
