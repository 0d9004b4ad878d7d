// Package location maps a form's section location to the physical tables
// holding its submissions.
package location

import (
	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/model"
)

type FieldKind int

const (
	TextField FieldKind = iota
	NumberField
	IntegerField
	BoolField
	DateField
)

// Column is a writable field of an extras table. Enum, when set, lists the
// only text values the column accepts.
type Column struct {
	Name    string
	Kind    FieldKind
	NotNull bool
	Enum    []string
}

// ExtrasTable is a side table keyed 1:1 by submission id. Columns lists the
// fields callers may write, besides submission_id and the timestamps.
type ExtrasTable struct {
	Name    string
	Columns []Column
}

func (t *ExtrasTable) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t *ExtrasTable) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

func (t *ExtrasTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

type Tables struct {
	Location    model.SectionLocation
	Submissions string
	Answers     string
	Extras      *ExtrasTable
}

// Router is a fixed lookup table built once at startup.
type Router struct {
	routes map[model.SectionLocation]Tables
}

func NewRouter(tables ...Tables) *Router {
	r := &Router{routes: make(map[model.SectionLocation]Tables, len(tables))}
	for _, t := range tables {
		r.routes[t.Location] = t
	}
	return r
}

// Default returns the router for the tables created by the bundled
// migrations.
func Default() *Router {
	return NewRouter(
		Tables{
			Location:    model.LocationOrganizations,
			Submissions: "organization_submissions",
			Answers:     "organization_answers",
		},
		Tables{
			Location:    model.LocationAudits,
			Submissions: "audit_submissions",
			Answers:     "audit_answers",
			Extras: &ExtrasTable{
				Name:    "audit_extras",
				Columns: []Column{
					{Name: "status", Kind: TextField, Enum: []string{"RED", "YELLOW", "GREEN"}},
					{Name: "follow_up_required", Kind: BoolField, NotNull: true},
					{Name: "follow_up_notes", Kind: TextField},
					{Name: "follow_up_due", Kind: DateField},
					{Name: "resolved", Kind: BoolField, NotNull: true},
				},
			},
		},
		Tables{
			Location:    model.LocationCommunities,
			Submissions: "community_submissions",
			Answers:     "community_answers",
		},
		Tables{
			Location:    model.LocationVolunteering,
			Submissions: "volunteering_submissions",
			Answers:     "volunteering_answers",
			Extras: &ExtrasTable{
				Name:    "volunteering_extras",
				Columns: []Column{
					{Name: "total_hours", Kind: NumberField},
					{Name: "beneficiaries", Kind: IntegerField},
					{Name: "notes", Kind: TextField},
				},
			},
		},
		Tables{
			Location:    model.LocationCommunityProfile,
			Submissions: "community_profile_submissions",
			Answers:     "community_profile_answers",
		},
		Tables{
			Location:    model.LocationEmbracingLegends,
			Submissions: "embracing_legends_submissions",
			Answers:     "embracing_legends_answers",
		},
	)
}

// Resolve fails with UnroutableLocationError for the empty location and for
// any location without an entry.
func (r *Router) Resolve(loc model.SectionLocation) (Tables, error) {
	t, ok := r.routes[loc]
	if !ok {
		return Tables{}, &formerr.UnroutableLocationError{Location: string(loc)}
	}
	return t, nil
}

func (r *Router) Known(loc model.SectionLocation) bool {
	_, ok := r.routes[loc]
	return ok
}

func (r *Router) HasExtras(loc model.SectionLocation) bool {
	return r.routes[loc].Extras != nil
}

func (r *Router) Locations() []model.SectionLocation {
	locs := make([]model.SectionLocation, 0, len(r.routes))
	for loc := range r.routes {
		locs = append(locs, loc)
	}
	return locs
}
