package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func FromStdlib(handler http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		handler.ServeHTTP(w, r)
	}
}
