// Package extras manages the optional per-location record attached 1:1 to
// a submission.
package extras

import (
	"context"
	"sort"
	"time"

	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/location"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/model"
)

type Store interface {
	GetExtras(ctx context.Context, table *location.ExtrasTable, submissionID string) (*model.Extras, error)
	UpsertExtras(ctx context.Context, table *location.ExtrasTable, submissionID string, fields map[string]any, now time.Time) error
	SubmissionExists(ctx context.Context, tables location.Tables, id string) (bool, error)
}

type Merger struct {
	store  Store
	router *location.Router
	now    func() time.Time
}

func New(store Store, router *location.Router) *Merger {
	return &Merger{
		store:  store,
		router: router,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *Merger) HasExtras(loc model.SectionLocation) bool {
	return m.router.HasExtras(loc)
}

// GetExtras returns nil both when the location keeps no extras and when
// the submission has no extras row yet. Use HasExtras to tell them apart.
func (m *Merger) GetExtras(ctx context.Context, loc model.SectionLocation, submissionID string) (*model.Extras, error) {
	tables, err := m.router.Resolve(loc)
	if err != nil || tables.Extras == nil {
		return nil, nil
	}
	ex, err := m.store.GetExtras(ctx, tables.Extras, submissionID)
	if ex != nil {
		ex.Location = loc
	}
	return ex, err
}

// SaveExtras creates the extras row of a submission or overwrites the
// given fields of the existing one. Last write wins.
func (m *Merger) SaveExtras(ctx context.Context, loc model.SectionLocation, submissionID string, fields map[string]any) (*model.Extras, error) {
	tables, err := m.router.Resolve(loc)
	if err != nil {
		return nil, err
	}
	if tables.Extras == nil {
		return nil, formerr.Invalid("location", "%s keeps no extras", loc)
	}

	var v formerr.Validation
	if len(fields) == 0 {
		v.Add("fields", "nothing to save")
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		col, ok := tables.Extras.Column(name)
		if !ok {
			v.Add(name, "unknown field for %s", loc)
			continue
		}
		if reason := checkField(col, fields[name]); reason != "" {
			v.Add(name, "%s", reason)
		}
	}
	if err = v.Err(); err != nil {
		return nil, err
	}

	exists, err := m.store.SubmissionExists(ctx, tables, submissionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, formerr.NotFound("submission", submissionID)
	}

	if err = m.store.UpsertExtras(ctx, tables.Extras, submissionID, fields, m.now()); err != nil {
		return nil, &formerr.WriteFailureError{Op: "extras.upsert", Err: err}
	}
	log.WithFields(log.Fields{"submission": submissionID, "table": tables.Extras.Name}).Debug("extras saved")

	return m.GetExtras(ctx, loc, submissionID)
}
