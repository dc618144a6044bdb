package http

import (
	"github.com/julienschmidt/httprouter"

	"github.com/AwareRO/surveymeta/dashboard"
	"github.com/AwareRO/surveymeta/http/handlers"
	"github.com/AwareRO/surveymeta/http/middlewares"
)

// NewRouter mounts the ip metadata routes. Every route is logged and then
// measured by the given wrappers.
func NewRouter(lookup dashboard.Lookup, builder *dashboard.Builder, wrappers ...middlewares.Wrapper) *httprouter.Router {
	router := httprouter.New()

	router.GET("/ipinfo/:ip", middlewares.LogRequest(
		middlewares.Chain(handlers.IPInfo(lookup), wrappers...),
		middlewares.IPParam,
	))
	router.GET("/whoami", middlewares.LogRequest(
		middlewares.Chain(handlers.WhoAmI(builder), wrappers...),
	))

	return router
}
