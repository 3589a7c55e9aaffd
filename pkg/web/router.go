package web

import "net/http"

// Router wraps http.ServeMux with a rendered page for unmatched GET and
// HEAD requests. Other methods keep the mux's plain 404 and 405 responses.
type Router struct {
	mux      *http.ServeMux
	fallback http.HandlerFunc
}

// NewRouter creates a Router with default ServeMux behavior.
func NewRouter() *Router {
	return &Router{mux: http.NewServeMux()}
}

// SetFallback configures the handler for unmatched page requests.
func (r *Router) SetFallback(handler http.HandlerFunc) {
	r.fallback = handler
}

// HandleFunc registers a handler function for the given pattern.
func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.mux.HandleFunc(pattern, handler)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.fallback != nil && isPageRequest(req) {
		if _, pattern := r.mux.Handler(req); pattern == "" {
			r.fallback(w, req)
			return
		}
	}
	r.mux.ServeHTTP(w, req)
}

func isPageRequest(req *http.Request) bool {
	return req.Method == http.MethodGet || req.Method == http.MethodHead
}
