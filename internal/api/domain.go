package api

import (
	"github.com/JaimeStill/warden/internal/compliance"
	"github.com/JaimeStill/warden/internal/extraction"
	"github.com/JaimeStill/warden/internal/tasks"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Tasks      tasks.System
	Extraction extraction.Runner
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	tasksSystem := tasks.New(runtime.Database, runtime.Logger)

	runner := extraction.New(&extraction.Runtime{
		Client:    runtime.DevOps,
		Tasks:     tasksSystem,
		Rules:     compliance.DefaultRules(),
		Observer:  runtime.Hub,
		Archive:   runtime.Archive,
		Lifecycle: runtime.Lifecycle,
		Logger:    runtime.Logger,
		Project:   runtime.Config.DevOps.Project,
		TagFilter: runtime.Config.DevOps.TagFilter,
	}, &runtime.Config.Extraction)

	return &Domain{
		Tasks:      tasksSystem,
		Extraction: runner,
	}
}
