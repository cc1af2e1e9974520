package routes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
	"github.com/victorjacobs/go-voltalis/bridge"
)

type StateProvider interface {
	State() bridge.State
	Appliance(id int) (bridge.ApplianceState, bool)
}

// New wires the state routes and the metrics handler into a router.
func New(b StateProvider, metrics http.Handler) *httprouter.Router {
	router := httprouter.New()
	router.GET("/state", State(b))
	router.GET("/appliances/:id", Appliance(b))
	router.Handler(http.MethodGet, "/metrics", metrics)

	return router
}

func State(b StateProvider) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, b.State())
	}
}

func Appliance(b StateProvider) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := strconv.Atoi(ps.ByName("id"))
		if err != nil {
			http.Error(w, "invalid appliance id", http.StatusNotFound)
			return
		}

		appliance, ok := b.Appliance(id)
		if !ok {
			http.NotFound(w, r)
			return
		}

		writeJSON(w, appliance)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	marshaled, err := json.Marshal(v)
	if err != nil {
		log.Printf("error marshaling: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(marshaled)
}
