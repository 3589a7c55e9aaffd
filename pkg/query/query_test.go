package query_test

import (
	"testing"

	"github.com/JaimeStill/warden/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("", "tasks", "t").
		Project("id", "id").
		Project("title", "title").
		Project("compliance", "compliance")
}

func ptr(s string) *string { return &s }

func TestProjectionMapTable(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		table  string
		from   string
	}{
		{"unqualified", "", "tasks", "tasks t"},
		{"schema qualified", "public", "public.tasks", "public.tasks t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := query.NewProjectionMap(tt.schema, "tasks", "t")
			if got := p.Table(); got != tt.table {
				t.Errorf("Table() = %q, want %q", got, tt.table)
			}
			if got := p.From(); got != tt.from {
				t.Errorf("From() = %q, want %q", got, tt.from)
			}
		})
	}
}

func TestProjectionMapColumns(t *testing.T) {
	p := testProjection()

	if got, want := p.Columns(), "t.id, t.title, t.compliance"; got != want {
		t.Errorf("Columns() = %q, want %q", got, want)
	}
	if got := p.Column("title"); got != "t.title" {
		t.Errorf("Column(title) = %q, want t.title", got)
	}
	if got := p.Column("unknown"); got != "unknown" {
		t.Errorf("Column(unknown) = %q, want passthrough", got)
	}
	if !p.Has("compliance") || p.Has("unknown") {
		t.Error("Has() did not reflect the mapped properties")
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty string", "", nil},
		{"single ascending", "title", []query.SortField{{Field: "title"}}},
		{"single descending", "-id", []query.SortField{{Field: "id", Descending: true}}},
		{
			name:  "mixed with spaces and empty parts",
			input: " compliance ,, -id ",
			want: []query.SortField{
				{Field: "compliance"},
				{Field: "id", Descending: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Errorf("ParseSortFields(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSortFields(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseSortFields(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuilderDefaultSort(t *testing.T) {
	b := query.NewBuilder(testProjection(),
		query.SortField{Field: "compliance"},
		query.SortField{Field: "id", Descending: true},
	)
	sql, args := b.Build()

	want := "SELECT t.id, t.title, t.compliance FROM tasks t ORDER BY t.compliance ASC, t.id DESC"
	if sql != want {
		t.Errorf("Build() sql = %q, want %q", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("Build() args = %v, want empty", args)
	}
}

func TestBuilderOrderByFieldsDropsUnknown(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "id"})
	b.OrderByFields([]query.SortField{
		{Field: "title", Descending: true},
		{Field: "1; DROP TABLE tasks"},
	})
	sql, _ := b.Build()

	want := "SELECT t.id, t.title, t.compliance FROM tasks t ORDER BY t.title DESC"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
}

func TestBuilderOrderByFieldsAllUnknownFallsBack(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "id", Descending: true})
	b.OrderByFields([]query.SortField{{Field: "nope"}})
	sql, _ := b.Build()

	want := "SELECT t.id, t.title, t.compliance FROM tasks t ORDER BY t.id DESC"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
}

func TestBuilderBuildSingle(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).BuildSingle("id", 42)

	want := "SELECT t.id, t.title, t.compliance FROM tasks t WHERE t.id = $1"
	if sql != want {
		t.Errorf("BuildSingle() sql = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != 42 {
		t.Errorf("BuildSingle() args = %v, want [42]", args)
	}
}

func TestBuilderConditions(t *testing.T) {
	var nilState *string

	b := query.NewBuilder(testProjection())
	b.WhereEquals("compliance", ptr("NOK"))
	b.WhereEquals("state", nilState)
	b.WhereSearch(ptr("Docs"), "title", "compliance")
	sql, args := b.Build()

	want := "SELECT t.id, t.title, t.compliance FROM tasks t WHERE t.compliance = $1 AND (LOWER(t.title) LIKE $2 OR LOWER(t.compliance) LIKE $3)"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 3 {
		t.Fatalf("args length = %d, want 3", len(args))
	}
	if args[0] != "NOK" {
		t.Errorf("args[0] = %v, want dereferenced NOK", args[0])
	}
	if args[1] != "%docs%" || args[2] != "%docs%" {
		t.Errorf("search args = %v, want lowercased pattern", args[1:])
	}
}

func TestBuilderEmptySearchSkipped(t *testing.T) {
	b := query.NewBuilder(testProjection())
	b.WhereSearch(ptr(""), "title")
	b.WhereSearch(nil, "title")
	_, args := b.Build()

	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
}
