package routes

import (
	"net/http"

	"github.com/JaimeStill/warden/pkg/middleware"
	"github.com/JaimeStill/warden/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler.
// Middleware wraps only this route, outermost first. OpenAPI, when set,
// documents the route in the generated spec.
type Route struct {
	Method     string
	Pattern    string
	Handler    http.HandlerFunc
	Middleware []middleware.Func
	OpenAPI    *openapi.Operation
}

func (r Route) handler() http.Handler {
	return middleware.Chain(r.Handler, r.Middleware...)
}
