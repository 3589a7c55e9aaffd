package tasks

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/warden/pkg/handlers"
	"github.com/JaimeStill/warden/pkg/openapi"
	"github.com/JaimeStill/warden/pkg/routes"
)

// Handler provides HTTP endpoints for stored tasks.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "tasks"),
	}
}

// Routes returns the route group definition for task endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/tasks",
		Tags:   []string{"Tasks"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: listOp},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, OpenAPI: findOp},
		},
	}
}

// List returns every stored task, NOK first, with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.sys.List(r.Context(), FiltersFromQuery(r.URL.Query()))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, tasks)
}

// Find returns a single task by its work item id path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	t, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, t)
}

var listOp = &openapi.Operation{
	Summary:     "List stored tasks",
	Description: "Returns every persisted compliance result. Default order is NOK first, then newest work item first.",
	Parameters: []*openapi.Parameter{
		openapi.EnumParam("compliance", "Exact verdict", "OK", "NOK"),
		openapi.QueryParam("state", "string", "Exact work item state", false),
		openapi.QueryParam("assigned_to", "string", "Exact assignee display name", false),
		openapi.QueryParam("search", "string", "Case-insensitive match on title, tags, and iteration path", false),
		openapi.QueryParam("sort", "string", "Comma-separated fields, - prefix for descending. Example: Compliance,-ID", false),
	},
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseArray("Stored tasks", "Task"),
	},
}

var findOp = &openapi.Operation{
	Summary:    "Find a stored task",
	Parameters: []*openapi.Parameter{openapi.PathParam("id", "integer", "int32", "Work item id")},
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Stored task", "Task"),
		400: openapi.ResponseRef("BadRequest"),
		404: openapi.ResponseRef("NotFound"),
	},
}

// Schemas returns the OpenAPI component schemas for task responses.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Task": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                      {Type: "integer", Description: "Work item id"},
				"title":                   {Type: "string"},
				"assigned_to":             {Type: "string"},
				"state":                   {Type: "string"},
				"tags":                    {Type: "string", Description: "Semicolon delimited tags as stored by Azure DevOps"},
				"iteration_path":          {Type: "string"},
				"has_documentation_link":  {Type: "boolean"},
				"has_complex_description": {Type: "boolean"},
				"has_attachment":          {Type: "boolean"},
				"compliance":              {Type: "string", Enum: []any{"OK", "NOK"}},
				"last_updated_at":         {Type: "string", Format: "date-time"},
				"parent_id":               {Type: "integer", Description: "Parent work item id, null when absent"},
			},
		},
	}
}
