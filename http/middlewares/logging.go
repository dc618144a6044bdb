package middlewares

import (
	"net/http"
	"strconv"

	"github.com/AwareRO/surveymeta/http/identity"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

type ExtraField func(r *http.Request, params httprouter.Params) (string, string)

var defaultIsCrawler = identity.NewMileusna()

func isCrawler(r *http.Request) string {
	return strconv.FormatBool(defaultIsCrawler(r.UserAgent()))
}

// IPParam logs the :ip route parameter.
func IPParam(_ *http.Request, params httprouter.Params) (string, string) {
	return "lookup_ip", params.ByName("ip")
}

func LogRequest(nextHandler httprouter.Handle, extras ...ExtraField) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		logger := log.Info().
			Str("endpoint", r.URL.String()).
			Str("method", r.Method).
			Str("ip", identity.ClientIP(r)).
			Str("crawler", isCrawler(r))
		for _, extra := range extras {
			logger = logger.Str(extra(r, params))
		}
		logger.Msg("Got request")
		nextHandler(w, r, params)
	}
}
