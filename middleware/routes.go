package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouteSet names mux routes that carry a capability, such as skipping auth.
// Matching uses the route mux resolved for the request.
type RouteSet map[string]bool

func NewRouteSet(names ...string) RouteSet {
	set := make(RouteSet, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

func (s RouteSet) Matches(r *http.Request) bool {
	if len(s) == 0 {
		return false
	}
	route := mux.CurrentRoute(r)
	if route == nil {
		return false
	}
	return s[route.GetName()]
}
