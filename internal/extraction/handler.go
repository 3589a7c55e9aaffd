package extraction

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/pkg/broadcast"
	"github.com/JaimeStill/warden/pkg/handlers"
	"github.com/JaimeStill/warden/pkg/middleware"
	"github.com/JaimeStill/warden/pkg/openapi"
	"github.com/JaimeStill/warden/pkg/routes"
)

const keepAlive = 15 * time.Second

// Handler provides HTTP endpoints for triggering and observing runs.
type Handler struct {
	runner  Runner
	events  broadcast.Source
	trigger []func(http.Handler) http.Handler
	logger  *slog.Logger
}

// NewHandler creates a Handler. Trigger middleware wraps only the
// endpoint that starts a run.
func NewHandler(runner Runner, events broadcast.Source, logger *slog.Logger, trigger ...func(http.Handler) http.Handler) *Handler {
	return &Handler{
		runner:  runner,
		events:  events,
		trigger: trigger,
		logger:  logger.With("handler", "extraction"),
	}
}

// Routes returns the route group definition for run endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/runs",
		Tags:   []string{"Runs"},
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Start, Middleware: h.trigger, OpenAPI: startOp},
			{Method: "GET", Pattern: "/current", Handler: h.Current, OpenAPI: currentOp},
			{Method: "GET", Pattern: "/events", Handler: broadcast.Stream(h.events, h.runner.StatusText, keepAlive, h.logger), OpenAPI: eventsOp},
			{Method: "GET", Pattern: "/{id}/report", Handler: h.Report, OpenAPI: reportOp},
		},
	}
}

// Start triggers a run and acknowledges it before any work is done.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	run, err := h.runner.Start()
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.logger.Info("run triggered", "run_id", run.ID, "subject", middleware.Subject(r.Context()))
	handlers.RespondJSON(w, http.StatusAccepted, run.Snapshot())
}

// Current returns a snapshot of the latest run.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	run, err := h.runner.Current()
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, run.Snapshot())
}

// Report returns the archived JSON report of a finished run.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	data, err := h.runner.Report(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

var startOp = &openapi.Operation{
	Summary:     "Start an extraction run",
	Description: "Acknowledges immediately. Progress is published on /runs/events.",
	Responses: map[int]*openapi.Response{
		202: openapi.ResponseJSON("Run accepted", "Run"),
		401: openapi.ResponseRef("Unauthorized"),
		409: openapi.ResponseRef("Conflict"),
	},
}

var currentOp = &openapi.Operation{
	Summary: "Latest run",
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Latest run snapshot", "Run"),
		404: openapi.ResponseRef("NotFound"),
	},
}

var eventsOp = &openapi.Operation{
	Summary:     "Progress stream",
	Description: "Server-sent events of type progress. The first event carries the current status, Idle when no run is in flight.",
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseStream("Event stream", "text/event-stream"),
	},
}

var reportOp = &openapi.Operation{
	Summary:    "Archived run report",
	Parameters: []*openapi.Parameter{openapi.PathParam("id", "string", "uuid", "Run id")},
	Responses: map[int]*openapi.Response{
		200: {
			Description: "Run snapshot and compliance results",
			Content: map[string]*openapi.MediaType{
				"application/json": {Schema: &openapi.Schema{Type: "object"}},
			},
		},
		400: openapi.ResponseRef("BadRequest"),
		404: openapi.ResponseRef("NotFound"),
	},
}

// Schemas returns the OpenAPI component schemas for run responses.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Run": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":          {Type: "string", Format: "uuid"},
				"status":      {Type: "string", Enum: []any{"running", "completed", "failed"}},
				"message":     {Type: "string", Description: "Last progress message"},
				"started_at":  {Type: "string", Format: "date-time"},
				"finished_at": {Type: "string", Format: "date-time"},
				"items":       {Type: "integer"},
				"stored":      {Type: "integer"},
				"error":       {Type: "string"},
			},
		},
	}
}
