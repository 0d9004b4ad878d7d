package model

import "time"

type Submission struct {
	ID             string    `json:"id"`
	FormTemplateID int64     `json:"formTemplateId"`
	UserID         *int64    `json:"userId,omitempty"`
	SubmittedAt    time.Time `json:"submittedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// AnswerInput is one (question, value) pair sent by a respondent. Value
// keeps whatever shape the question type produces.
type AnswerInput struct {
	QuestionID int64 `json:"questionId"`
	Value      any   `json:"value"`
}

type Answer struct {
	SubmissionID string `json:"submissionId"`
	QuestionID   int64  `json:"questionId"`
	Value        any    `json:"value"`
}

// AnswerDetail is an answer joined with the question it responds to.
type AnswerDetail struct {
	QuestionID    int64  `json:"questionId"`
	QuestionTitle string `json:"questionTitle"`
	TypeCode      string `json:"typeCode"`
	Value         any    `json:"value"`
}

type SubmissionDetail struct {
	Submission Submission     `json:"submission"`
	Answers    []AnswerDetail `json:"answers"`
	Extras     *Extras        `json:"extras"`
}

// Extras is the single program-specific record attached to a submission.
type Extras struct {
	SubmissionID string          `json:"submissionId"`
	Location     SectionLocation `json:"location"`
	Fields       map[string]any  `json:"fields"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Column struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	QuestionID int64  `json:"questionId,omitempty"`
	TypeCode   string `json:"typeCode,omitempty"`
}

// Table is one page of submissions; every row has exactly len(Columns)
// cells.
type Table struct {
	Columns  []Column `json:"columns"`
	Rows     [][]any  `json:"rows"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
	Total    int64    `json:"total"`
}
