package extras

import (
	"context"
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

// setup stores one submission in the tables of loc and returns its id.
func setup(t *testing.T, loc model.SectionLocation) (*store.Store, string) {
	db := testutil.OpenDB(t)
	s := store.New(db)
	formID, _ := testutil.InsertForm(t, db, "report", loc)

	tables, err := location.Default().Resolve(loc)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, s.InsertSubmission(context.Background(), tables, &model.Submission{
		ID: "sub-1", FormTemplateID: formID, SubmittedAt: now, UpdatedAt: now,
	}))
	return s, "sub-1"
}

func countExtras(t *testing.T, s *store.Store, table string) int {
	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestMerger_SaveExtras(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveExtras_Twice", func(t *testing.T) {
		s, sid := setup(t, model.LocationVolunteering)
		m := New(s, location.Default())
		t0 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		m.now = func() time.Time { return t0 }

		first, err := m.SaveExtras(ctx, model.LocationVolunteering, sid, map[string]any{
			"total_hours": 7.5, "beneficiaries": 12, "notes": "park cleanup",
		})
		require.NoError(t, err)
		assert.Equal(t, 7.5, first.Fields["total_hours"])

		m.now = func() time.Time { return t0.Add(time.Hour) }
		second, err := m.SaveExtras(ctx, model.LocationVolunteering, sid, map[string]any{
			"total_hours": 9.0,
		})

		require.NoError(t, err)
		assert.Equal(t, 1, countExtras(t, s, "volunteering_extras"))
		assert.Equal(t, model.LocationVolunteering, second.Location)
		assert.Equal(t, 9.0, second.Fields["total_hours"])
		assert.EqualValues(t, 12, second.Fields["beneficiaries"])
		assert.Equal(t, "park cleanup", second.Fields["notes"])
		assert.True(t, second.UpdatedAt.After(second.CreatedAt))
		assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
	})

	t.Run("SaveExtras_UnknownField", func(t *testing.T) {
		s, sid := setup(t, model.LocationAudits)
		m := New(s, location.Default())

		_, err := m.SaveExtras(ctx, model.LocationAudits, sid, map[string]any{
			"status": "GREEN", "total_hours": 3,
		})

		var invalid *formerr.ValidationError
		assert.ErrorAs(t, err, &invalid)
		assert.Contains(t, err.Error(), "total_hours")
		assert.Equal(t, 0, countExtras(t, s, "audit_extras"))
	})

	t.Run("SaveExtras_InvalidValues", func(t *testing.T) {
		cases := []struct {
			name   string
			loc    model.SectionLocation
			fields map[string]any
			field  string
		}{
			{"BadStatus", model.LocationAudits, map[string]any{"status": "BLUE"}, "status"},
			{"NullFollowUp", model.LocationAudits, map[string]any{"follow_up_required": nil}, "follow_up_required"},
			{"StringBool", model.LocationAudits, map[string]any{"resolved": "yes"}, "resolved"},
			{"BadDate", model.LocationAudits, map[string]any{"follow_up_due": "next week"}, "follow_up_due"},
			{"StringHours", model.LocationVolunteering, map[string]any{"total_hours": "lots"}, "total_hours"},
			{"FractionalCount", model.LocationVolunteering, map[string]any{"beneficiaries": 2.5}, "beneficiaries"},
		}
		for _, c := range cases {
			t.Run(c.name, func(t *testing.T) {
				s, sid := setup(t, c.loc)
				m := New(s, location.Default())

				_, err := m.SaveExtras(ctx, c.loc, sid, c.fields)

				var invalid *formerr.ValidationError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, c.field, invalid.Field)
				var writeFailure *formerr.WriteFailureError
				assert.False(t, errors.As(err, &writeFailure))
			})
		}
	})

	t.Run("SaveExtras_NullableAndWholeNumbers", func(t *testing.T) {
		s, sid := setup(t, model.LocationVolunteering)
		m := New(s, location.Default())

		ex, err := m.SaveExtras(ctx, model.LocationVolunteering, sid, map[string]any{
			"total_hours": nil, "beneficiaries": 4.0, "notes": nil,
		})

		require.NoError(t, err)
		assert.Nil(t, ex.Fields["total_hours"])
		assert.EqualValues(t, 4, ex.Fields["beneficiaries"])
	})

	t.Run("SaveExtras_AuditDueDate", func(t *testing.T) {
		s, sid := setup(t, model.LocationAudits)
		m := New(s, location.Default())

		ex, err := m.SaveExtras(ctx, model.LocationAudits, sid, map[string]any{
			"status": "RED", "follow_up_due": "2024-06-30",
		})

		require.NoError(t, err)
		assert.Equal(t, "RED", ex.Fields["status"])
		assert.Equal(t, "2024-06-30", ex.Fields["follow_up_due"])
	})

	t.Run("SaveExtras_NoExtrasTable", func(t *testing.T) {
		s, sid := setup(t, model.LocationOrganizations)
		m := New(s, location.Default())

		_, err := m.SaveExtras(ctx, model.LocationOrganizations, sid, map[string]any{"notes": "x"})

		var invalid *formerr.ValidationError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("SaveExtras_UnknownSubmission", func(t *testing.T) {
		s, _ := setup(t, model.LocationAudits)
		m := New(s, location.Default())

		_, err := m.SaveExtras(ctx, model.LocationAudits, "missing", map[string]any{"status": "RED"})

		var notFound *formerr.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("SaveExtras_Unroutable", func(t *testing.T) {
		s, sid := setup(t, model.LocationAudits)
		m := New(s, location.Default())

		_, err := m.SaveExtras(ctx, "", sid, map[string]any{"status": "RED"})

		var unroutable *formerr.UnroutableLocationError
		assert.ErrorAs(t, err, &unroutable)
	})
}

func TestMerger_GetExtras(t *testing.T) {
	ctx := context.Background()

	t.Run("GetExtras_NoTable", func(t *testing.T) {
		s, sid := setup(t, model.LocationCommunities)
		m := New(s, location.Default())

		ex, err := m.GetExtras(ctx, model.LocationCommunities, sid)

		assert.NoError(t, err)
		assert.Nil(t, ex)
		assert.False(t, m.HasExtras(model.LocationCommunities))
	})

	t.Run("GetExtras_NoRow", func(t *testing.T) {
		s, sid := setup(t, model.LocationAudits)
		m := New(s, location.Default())

		ex, err := m.GetExtras(ctx, model.LocationAudits, sid)

		assert.NoError(t, err)
		assert.Nil(t, ex)
		assert.True(t, m.HasExtras(model.LocationAudits))
	})

	t.Run("GetExtras_AuditRecord", func(t *testing.T) {
		s, sid := setup(t, model.LocationAudits)
		m := New(s, location.Default())
		_, err := m.SaveExtras(ctx, model.LocationAudits, sid, map[string]any{
			"status": "YELLOW", "follow_up_required": true, "follow_up_notes": "call back",
		})
		require.NoError(t, err)

		ex, err := m.GetExtras(ctx, model.LocationAudits, sid)

		require.NoError(t, err)
		assert.Equal(t, sid, ex.SubmissionID)
		assert.Equal(t, "YELLOW", ex.Fields["status"])
		assert.Equal(t, true, ex.Fields["follow_up_required"])
		assert.Equal(t, false, ex.Fields["resolved"])
		assert.Nil(t, ex.Fields["follow_up_due"])
	})
}
