package tasks

import (
	"net/url"

	"github.com/JaimeStill/warden/internal/compliance"
	"github.com/JaimeStill/warden/pkg/query"
	"github.com/JaimeStill/warden/pkg/repository"
)

var projection = query.
	NewProjectionMap("", "tasks", "t").
	Project("id", "ID").
	Project("title", "Title").
	Project("assigned_to", "AssignedTo").
	Project("state", "State").
	Project("tags", "Tags").
	Project("iteration_path", "IterationPath").
	Project("has_documentation_link", "HasDocumentationLink").
	Project("has_complex_description", "HasComplexDescription").
	Project("has_attachment", "HasAttachment").
	Project("compliance", "Compliance").
	Project("last_updated_at", "LastUpdatedAt").
	Project("parent_id", "ParentID")

// NOK rows first, newest work items first within a verdict.
var defaultSort = []query.SortField{
	{Field: "Compliance"},
	{Field: "ID", Descending: true},
}

const upsertSQL = `INSERT INTO tasks (
	id, title, assigned_to, state, tags, iteration_path,
	has_documentation_link, has_complex_description, has_attachment,
	compliance, parent_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	assigned_to = excluded.assigned_to,
	state = excluded.state,
	tags = excluded.tags,
	iteration_path = excluded.iteration_path,
	has_documentation_link = excluded.has_documentation_link,
	has_complex_description = excluded.has_complex_description,
	has_attachment = excluded.has_attachment,
	compliance = excluded.compliance,
	parent_id = excluded.parent_id,
	last_updated_at = CURRENT_TIMESTAMP`

// Filters contains optional filtering criteria for task queries.
// Nil fields are ignored. Compliance, State, and AssignedTo use exact
// matching; Search matches title, tags, and iteration path case-insensitively.
type Filters struct {
	Compliance *string           `json:"compliance,omitempty"`
	State      *string           `json:"state,omitempty"`
	AssignedTo *string           `json:"assigned_to,omitempty"`
	Search     *string           `json:"search,omitempty"`
	Sort       []query.SortField `json:"-"`
}

// Empty reports whether no filter or sort is set.
func (f Filters) Empty() bool {
	return f.Compliance == nil && f.State == nil && f.AssignedTo == nil && f.Search == nil && len(f.Sort) == 0
}

// Apply adds filter conditions and ordering to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("Compliance", f.Compliance).
		WhereEquals("State", f.State).
		WhereEquals("AssignedTo", f.AssignedTo).
		WhereSearch(f.Search, "Title", "Tags", "IterationPath")

	if len(f.Sort) > 0 {
		b.OrderByFields(f.Sort)
	}
	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if c := values.Get("compliance"); c != "" {
		f.Compliance = &c
	}

	if s := values.Get("state"); s != "" {
		f.State = &s
	}

	if a := values.Get("assigned_to"); a != "" {
		f.AssignedTo = &a
	}

	if q := values.Get("search"); q != "" {
		f.Search = &q
	}

	f.Sort = query.ParseSortFields(values.Get("sort"))

	return f
}

func upsertArgs(r compliance.Result) []any {
	var parent any
	if r.ParentID != nil {
		parent = *r.ParentID
	}

	return []any{
		r.ID,
		r.Title,
		r.AssignedTo,
		r.State,
		r.Tags,
		r.IterationPath,
		r.HasDocumentationLink,
		r.HasComplexDescription,
		r.HasAttachment,
		string(r.Verdict),
		parent,
	}
}

func scanTask(s repository.Scanner) (Task, error) {
	var t Task
	err := s.Scan(
		&t.ID,
		&t.Title,
		&t.AssignedTo,
		&t.State,
		&t.Tags,
		&t.IterationPath,
		&t.HasDocumentationLink,
		&t.HasComplexDescription,
		&t.HasAttachment,
		&t.Compliance,
		&t.LastUpdatedAt,
		&t.ParentID,
	)
	return t, err
}
