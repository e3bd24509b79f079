package kit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const unmatchedRoute = "unmatched"

// ChiRoutePatternOrPath labels a request by its chi route pattern. Requests
// that matched no API route (static assets) share one label to keep metric
// cardinality bounded.
func ChiRoutePatternOrPath(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	if rp := rctx.RoutePattern(); rp != "" && rp != "/*" {
		return rp
	}
	return unmatchedRoute
}
