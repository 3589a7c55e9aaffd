// Package app serves the audit page: the stored compliance table, a run
// button, and a live status line fed by the progress event stream.
package app

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/JaimeStill/warden/internal/tasks"
	"github.com/JaimeStill/warden/pkg/formatting"
	"github.com/JaimeStill/warden/pkg/module"
	"github.com/JaimeStill/warden/pkg/web"
)

//go:embed server static
var content embed.FS

var (
	auditView    = web.ViewDef{Route: "GET /{$}", Template: "audit.html", Title: "Documentation Compliance"}
	notFoundView = web.ViewDef{Template: "not-found.html", Title: "Not Found"}
)

// Page is the data rendered by the audit view.
type Page struct {
	Tasks   []tasks.Task
	Summary tasks.Summary
	Status  string
	APIBase string
	Filters Options
	Applied tasks.Filters
}

// Options lists the distinct values offered by each filter select.
type Options struct {
	States    []string
	Assignees []string
}

var funcs = template.FuncMap{
	"excerpt": formatting.Excerpt,
	"date": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04")
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// NewModule creates the page module mounted at basePath. status reports
// the current run state for the initial render.
func NewModule(basePath, apiBase string, store tasks.System, status func() string, logger *slog.Logger) (*module.Module, error) {
	layouts, err := fs.Sub(content, "server/layouts")
	if err != nil {
		return nil, err
	}
	views, err := fs.Sub(content, "server/views")
	if err != nil {
		return nil, err
	}

	ts, err := web.NewTemplateSet(layouts, views, "*.html", basePath, funcs, []web.ViewDef{auditView, notFoundView})
	if err != nil {
		return nil, err
	}

	assets, err := web.DistServer(content, "static", "/static")
	if err != nil {
		return nil, err
	}

	logger = logger.With("handler", "app")
	load := func(r *http.Request) (any, error) {
		applied := tasks.FiltersFromQuery(r.URL.Query())
		all, err := store.List(r.Context(), tasks.Filters{})
		if err != nil {
			logger.Error("load tasks failed", "error", err)
			return nil, err
		}

		shown := all
		if !applied.Empty() {
			if shown, err = store.List(r.Context(), applied); err != nil {
				logger.Error("load filtered tasks failed", "error", err)
				return nil, err
			}
		}

		return Page{
			Tasks:   shown,
			Summary: tasks.Summarize(all),
			Status:  status(),
			APIBase: apiBase,
			Filters: options(all),
			Applied: applied,
		}, nil
	}

	router := web.NewRouter()
	router.HandleFunc(auditView.Route, ts.PageHandler("app.html", auditView, load))
	router.HandleFunc("GET /static/", assets)
	router.SetFallback(ts.ErrorHandler("app.html", notFoundView, http.StatusNotFound))

	return module.New(basePath, router)
}

func options(all []tasks.Task) Options {
	states := map[string]struct{}{}
	assignees := map[string]struct{}{}
	for _, t := range all {
		states[t.State] = struct{}{}
		assignees[t.AssignedTo] = struct{}{}
	}
	return Options{States: sorted(states), Assignees: sorted(assignees)}
}

func sorted(set map[string]struct{}) []string {
	delete(set, "")
	return slices.Sorted(maps.Keys(set))
}
