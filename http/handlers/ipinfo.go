package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"

	"github.com/AwareRO/surveymeta/dashboard"
	"github.com/AwareRO/surveymeta/geoip"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

// IPInfo serves the provider metadata of the :ip parameter.
func IPInfo(lookup dashboard.Lookup) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		ip := params.ByName("ip")
		if _, err := netip.ParseAddr(ip); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid ip"})
			return
		}

		result, err := lookup.Lookup(r.Context(), ip)
		if errors.Is(err, geoip.ErrNoData) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "no data"})
			return
		}
		if err != nil {
			log.Error().Err(err).Str("ip", ip).Msg("Lookup failed")
			writeJSON(w, http.StatusBadGateway, errorBody{Error: "lookup failed"})
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// WhoAmI serves the dashboard view of the calling client.
func WhoAmI(builder *dashboard.Builder) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, builder.Build(r.Context(), r))
	}
}
