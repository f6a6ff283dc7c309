package cmd

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sumwatshade/tidevalve/cmd/control"
	"github.com/sumwatshade/tidevalve/cmd/events"
	"github.com/sumwatshade/tidevalve/cmd/status"
)

// api exposes the daemon over HTTP. Handlers never touch the loop directly:
// reads come from the latest snapshot and actions are queued for the loop goroutine.
type api struct {
	latest  *status.Latest
	events  events.Service
	metrics http.Handler
	actions chan<- control.Action
	log     *slog.Logger
}

type statusResponse struct {
	status.Snapshot
	Indicator string `json:"indicator"`
	Line      string `json:"line"`
}

func newRouter(a *api) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", a.getHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", a.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/events", a.getEvents).Methods(http.MethodGet)
	r.HandleFunc("/actions/{action}", a.postAction).Methods(http.MethodPost)
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics).Methods(http.MethodGet)
	}

	return r
}

func (a *api) getHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *api) getStatus(w http.ResponseWriter, r *http.Request) {
	s := a.latest.Get()
	writeJSON(w, http.StatusOK, statusResponse{Snapshot: s, Indicator: s.Indicator.String(), Line: status.Line(s)})
}

func (a *api) getEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.events.List())
}

func (a *api) postAction(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["action"]
	action, err := control.ParseAction(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if strings.HasPrefix(a.latest.Get().Mode, "halted") {
		writeJSON(w, http.StatusConflict, map[string]string{"error": control.ErrHalted.Error()})
		return
	}

	select {
	case a.actions <- action:
		a.log.Info("action queued", "action", action.String(), "remote", r.RemoteAddr)
		writeJSON(w, http.StatusAccepted, map[string]string{"queued": action.String()})
	default:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "action queue full"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
