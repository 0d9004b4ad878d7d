// Package submission writes responses into the tables routed by their
// form's section location and reads them back for display and export.
package submission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/location"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/metrics"
	"github.com/mbolis/quick-forms/model"
)

type WriteStore interface {
	GetTemplate(ctx context.Context, id int64) (*model.FormTemplate, error)
	Questions(ctx context.Context, formID int64) ([]model.Question, error)
	InsertSubmission(ctx context.Context, tables location.Tables, sub *model.Submission) error
	InsertAnswers(ctx context.Context, tables location.Tables, answers []model.Answer) error
	DeleteSubmission(ctx context.Context, tables location.Tables, id string) error
	GetSubmission(ctx context.Context, tables location.Tables, formID int64, id string) (*model.Submission, error)
	UpdateAnswer(ctx context.Context, tables location.Tables, a model.Answer) (bool, error)
	TouchSubmission(ctx context.Context, tables location.Tables, id string, now time.Time) error
}

type Writer struct {
	store   WriteStore
	router  *location.Router
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// NewWriter builds a writer; m may be nil.
func NewWriter(store WriteStore, router *location.Router, m *metrics.Metrics) *Writer {
	return &Writer{
		store:   store,
		router:  router,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Submit stores a new response. The submission row and its answers are
// written by separate statements; if the answers cannot be written the
// submission row is deleted again before the error is returned.
func (w *Writer) Submit(ctx context.Context, formID int64, answers []model.AnswerInput, userID *int64) (*model.Submission, error) {
	t, err := w.store.GetTemplate(ctx, formID)
	if err != nil {
		return nil, err
	}
	tables, err := w.router.Resolve(t.SectionLocation)
	if err != nil {
		log.WithFields(log.Fields{"form": formID, "location": t.SectionLocation}).
			Warn("submission.submit: unroutable form")
		w.metrics.Submission(t.SectionLocation, metrics.OutcomeUnroutable)
		return nil, err
	}
	if !t.IsActive {
		return nil, formerr.NotFound("form", formID)
	}

	questions, err := w.store.Questions(ctx, formID)
	if err != nil {
		return nil, err
	}
	if err = checkAnswers(questions, answers, false); err != nil {
		w.metrics.Submission(tables.Location, metrics.OutcomeInvalid)
		return nil, err
	}

	now := w.now()
	sub := &model.Submission{
		ID:             w.newID(),
		FormTemplateID: formID,
		UserID:         userID,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}
	if err = w.store.InsertSubmission(ctx, tables, sub); err != nil {
		w.metrics.Submission(tables.Location, metrics.OutcomeWriteFailed)
		return nil, &formerr.WriteFailureError{Op: "submission.insert", Err: err}
	}

	rows := make([]model.Answer, len(answers))
	for i, a := range answers {
		rows[i] = model.Answer{SubmissionID: sub.ID, QuestionID: a.QuestionID, Value: a.Value}
	}
	if err = w.store.InsertAnswers(ctx, tables, rows); err != nil {
		w.metrics.Submission(tables.Location, metrics.OutcomeWriteFailed)
		return nil, w.compensate(ctx, tables, sub.ID, err)
	}

	w.metrics.Submission(tables.Location, metrics.OutcomeOK)
	log.WithFields(log.Fields{"form": formID, "submission": sub.ID, "location": tables.Location}).
		Debug("submission stored")
	return sub, nil
}

// compensate removes a submission whose answers failed to insert.
func (w *Writer) compensate(ctx context.Context, tables location.Tables, id string, cause error) error {
	werr := &formerr.WriteFailureError{Op: "submission.insert_answers", Err: cause}

	// the request context may be what failed the insert
	cctx := ctx
	if ctx.Err() != nil {
		cctx = context.WithoutCancel(ctx)
	}
	if err := w.store.DeleteSubmission(cctx, tables, id); err != nil {
		w.metrics.Compensation(metrics.OutcomeFailed)
		log.WithFields(log.Fields{
			"submission": id,
			"table":      tables.Submissions,
			"error":      cause,
			"rollback":   err,
		}).Error("submission.insert_answers: could not delete orphan submission")
		return &formerr.CompensationFailureError{Op: werr.Op, Err: werr, CompensationErr: err}
	}

	w.metrics.Compensation(metrics.OutcomeOK)
	log.WithFields(log.Fields{"submission": id, "error": cause}).
		Warn("submission.insert_answers: submission rolled back")
	return werr
}

// UpdateSubmissionAnswers overwrites the given answers of an existing
// submission. Questions left out of answers keep their value, and answers
// to questions never answered before are skipped.
func (w *Writer) UpdateSubmissionAnswers(ctx context.Context, formID int64, submissionID string, answers []model.AnswerInput) error {
	t, err := w.store.GetTemplate(ctx, formID)
	if err != nil {
		return err
	}
	tables, err := w.router.Resolve(t.SectionLocation)
	if err != nil {
		return err
	}
	if _, err = w.store.GetSubmission(ctx, tables, formID, submissionID); err != nil {
		return err
	}

	questions, err := w.store.Questions(ctx, formID)
	if err != nil {
		return err
	}
	if err = checkAnswers(questions, answers, true); err != nil {
		return err
	}

	for _, a := range answers {
		matched, err := w.store.UpdateAnswer(ctx, tables, model.Answer{
			SubmissionID: submissionID,
			QuestionID:   a.QuestionID,
			Value:        a.Value,
		})
		if err != nil {
			return &formerr.WriteFailureError{Op: "submission.update_answer", Err: err}
		}
		if !matched {
			log.WithFields(log.Fields{"submission": submissionID, "question": a.QuestionID}).
				Debug("submission.update_answers: no stored answer, skipped")
		}
	}

	if err = w.store.TouchSubmission(ctx, tables, submissionID, w.now()); err != nil {
		return &formerr.WriteFailureError{Op: "submission.touch", Err: err}
	}
	return nil
}
