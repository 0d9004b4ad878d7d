package model

import "time"

// SectionLocation tags a form with the program whose tables hold its
// submissions. The empty value means the form has no location.
type SectionLocation string

const (
	LocationOrganizations    SectionLocation = "ORGANIZATIONS"
	LocationAudits           SectionLocation = "AUDITS"
	LocationCommunities      SectionLocation = "COMMUNITIES"
	LocationVolunteering     SectionLocation = "VOLUNTEERING"
	LocationCommunityProfile SectionLocation = "COMMUNITY_PROFILE"
	LocationEmbracingLegends SectionLocation = "EMBRACING_LEGENDS"
)

type FormTemplate struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Slug            string          `json:"slug"`
	IsPublic        bool            `json:"isPublic"`
	IsActive        bool            `json:"isActive"`
	SectionLocation SectionLocation `json:"sectionLocation,omitempty"`
	Version         int             `json:"version"`
	CreatedBy       *int64          `json:"createdBy,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Sections        []FormSection   `json:"sections,omitempty"`
}

// Questions flattens the section tree in render order.
func (t *FormTemplate) Questions() []Question {
	var questions []Question
	for _, s := range t.Sections {
		questions = append(questions, s.Questions...)
	}
	return questions
}

type FormSection struct {
	ID             int64      `json:"id"`
	FormTemplateID int64      `json:"formTemplateId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	OrderIndex     int        `json:"orderIndex"`
	Questions      []Question `json:"questions"`
}

type Question struct {
	ID             int64  `json:"id"`
	FormTemplateID int64  `json:"formTemplateId"`
	SectionID      int64  `json:"sectionId"`
	QuestionTypeID int64  `json:"questionTypeId"`
	TypeCode       string `json:"typeCode,omitempty"`
	Title          string `json:"title"`
	HelpText       string `json:"helpText"`
	IsRequired     bool   `json:"isRequired"`
	OrderIndex     int    `json:"orderIndex"`
	Config         JSON   `json:"config,omitempty"`
}

type QuestionType struct {
	ID               int64  `json:"id"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	ValidationSchema JSON   `json:"validationSchema,omitempty"`
}
