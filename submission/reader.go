package submission

import (
	"context"
	"math"
	"strconv"

	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/location"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/metrics"
	"github.com/mbolis/quick-forms/model"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Keys of the fixed leading columns of a projected table.
const (
	ColumnSubmissionID   = "submission_id"
	ColumnSubmittedAt    = "submitted_at"
	ColumnSubmitterName  = "submitter_name"
	ColumnSubmitterEmail = "submitter_email"
)

type ReadStore interface {
	GetTemplate(ctx context.Context, id int64) (*model.FormTemplate, error)
	Questions(ctx context.Context, formID int64) ([]model.Question, error)
	GetSubmission(ctx context.Context, tables location.Tables, formID int64, id string) (*model.Submission, error)
	AnswerDetails(ctx context.Context, tables location.Tables, submissionID string) ([]model.AnswerDetail, error)
	PageSubmissions(ctx context.Context, tables location.Tables, formID int64, limit, offset int) ([]model.Submission, int64, error)
	Answers(ctx context.Context, tables location.Tables, submissionIDs []string) ([]model.Answer, error)
	LookupUsers(ctx context.Context, ids []int64) (map[int64]model.User, error)
}

type ExtrasSource interface {
	GetExtras(ctx context.Context, loc model.SectionLocation, submissionID string) (*model.Extras, error)
}

type Reader struct {
	store           ReadStore
	router          *location.Router
	extras          ExtrasSource
	metrics         *metrics.Metrics
	defaultPageSize int
}

// NewReader builds a reader; extras and m may be nil. A pageSize below 1
// falls back to DefaultPageSize and one above MaxPageSize is capped.
func NewReader(store ReadStore, router *location.Router, extras ExtrasSource, m *metrics.Metrics, pageSize int) *Reader {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &Reader{
		store:           store,
		router:          router,
		extras:          extras,
		metrics:         m,
		defaultPageSize: pageSize,
	}
}

func (r *Reader) route(ctx context.Context, formID int64) (location.Tables, error) {
	t, err := r.store.GetTemplate(ctx, formID)
	if err != nil {
		return location.Tables{}, err
	}
	return r.router.Resolve(t.SectionLocation)
}

// GetSubmission loads a submission with its answers and, when its location
// has one, its extras record. A submission without answers is reported as
// not found.
func (r *Reader) GetSubmission(ctx context.Context, formID int64, submissionID string) (*model.SubmissionDetail, error) {
	tables, err := r.route(ctx, formID)
	if err != nil {
		return nil, err
	}

	sub, err := r.store.GetSubmission(ctx, tables, formID, submissionID)
	if err != nil {
		return nil, err
	}
	answers, err := r.store.AnswerDetails(ctx, tables, submissionID)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		log.WithFields(log.Fields{"submission": submissionID, "table": tables.Submissions}).
			Warn("submission.get: submission has no answers")
		return nil, formerr.NotFound("submission", submissionID)
	}

	detail := &model.SubmissionDetail{Submission: *sub, Answers: answers}
	if r.extras != nil && tables.Extras != nil {
		if detail.Extras, err = r.extras.GetExtras(ctx, tables.Location, submissionID); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// ProjectTable renders one page of a form's submissions, newest first, as
// rows of 4 fixed cells followed by one cell per question. Unanswered
// questions yield nil cells. Zero page or pageSize select the defaults;
// pageSize may not exceed MaxPageSize.
func (r *Reader) ProjectTable(ctx context.Context, formID int64, page, pageSize int) (*model.Table, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = r.defaultPageSize
	}

	var v formerr.Validation
	if page < 0 {
		v.Add("page", "must be positive")
	}
	switch {
	case pageSize < 0:
		v.Add("pageSize", "must be positive")
	case pageSize > MaxPageSize:
		v.Add("pageSize", "must not exceed %d", MaxPageSize)
	case page > 0 && page-1 > math.MaxInt32/pageSize:
		v.Add("page", "out of range")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	tables, err := r.route(ctx, formID)
	if err != nil {
		return nil, err
	}
	questions, err := r.store.Questions(ctx, formID)
	if err != nil {
		return nil, err
	}

	subs, total, err := r.store.PageSubmissions(ctx, tables, formID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(subs))
	var userIDs []int64
	for i, sub := range subs {
		ids[i] = sub.ID
		if sub.UserID != nil {
			userIDs = append(userIDs, *sub.UserID)
		}
	}

	answers, err := r.store.Answers(ctx, tables, ids)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string]map[int64]any, len(subs))
	for _, a := range answers {
		if grouped[a.SubmissionID] == nil {
			grouped[a.SubmissionID] = map[int64]any{}
		}
		grouped[a.SubmissionID][a.QuestionID] = a.Value
	}

	users, err := r.store.LookupUsers(ctx, userIDs)
	if err != nil {
		log.WithError(err).Warn("submission.project_table: cannot resolve submitters")
		users = map[int64]model.User{}
	}

	table := &model.Table{
		Columns:  columns(questions),
		Rows:     make([][]any, len(subs)),
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	for i, sub := range subs {
		row := make([]any, 4, 4+len(questions))
		row[0] = sub.ID
		row[1] = sub.SubmittedAt
		if sub.UserID != nil {
			if u, ok := users[*sub.UserID]; ok {
				row[2] = u.Name
				row[3] = u.Email
			}
		}
		values := grouped[sub.ID]
		for _, q := range questions {
			row = append(row, values[q.ID])
		}
		table.Rows[i] = row
	}

	r.metrics.Projection()
	return table, nil
}

func columns(questions []model.Question) []model.Column {
	cols := make([]model.Column, 0, 4+len(questions))
	cols = append(cols,
		model.Column{Key: ColumnSubmissionID, Label: "Submission ID"},
		model.Column{Key: ColumnSubmittedAt, Label: "Submitted at"},
		model.Column{Key: ColumnSubmitterName, Label: "Submitter name"},
		model.Column{Key: ColumnSubmitterEmail, Label: "Submitter email"},
	)
	for _, q := range questions {
		cols = append(cols, model.Column{
			Key:        "q_" + strconv.FormatInt(q.ID, 10),
			Label:      q.Title,
			QuestionID: q.ID,
			TypeCode:   q.TypeCode,
		})
	}
	return cols
}
