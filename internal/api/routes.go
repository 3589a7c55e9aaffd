package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/warden/internal/extraction"
	"github.com/JaimeStill/warden/internal/tasks"
	"github.com/JaimeStill/warden/pkg/openapi"
	"github.com/JaimeStill/warden/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime, trigger ...func(http.Handler) http.Handler) error {
	groups := []routes.Group{
		domain.Tasks.Handler().Routes(),
		extraction.NewHandler(domain.Extraction, runtime.Hub, runtime.Logger, trigger...).Routes(),
	}

	routes.Register(mux, groups...)

	spec, err := buildSpec(runtime, groups)
	if err != nil {
		return fmt.Errorf("build openapi spec: %w", err)
	}
	mux.HandleFunc("GET "+runtime.Config.API.OpenAPI.Path, openapi.ServeSpec(spec))
	return nil
}

func buildSpec(runtime *Runtime, groups []routes.Group) ([]byte, error) {
	cfg := runtime.Config

	spec := openapi.NewSpec(&cfg.API.OpenAPI, cfg.Version)
	spec.AddServer(cfg.Server.PublicURL+cfg.API.BasePath, cfg.Env())

	spec.Components.AddSchemas(tasks.Schemas())
	spec.Components.AddSchemas(extraction.Schemas())

	routes.Document(spec, groups...)
	return spec.JSON()
}
