package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts every API route on router. router must use encoded
// paths so that a URL encoded link survives as a single {placeId} segment.
func (g *HandlerGroup) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/places/resolve", g.Places.Resolve).Methods(http.MethodGet)
	api.HandleFunc("/places/autocomplete", g.Places.Autocomplete).Methods(http.MethodGet)
	api.HandleFunc("/places/{placeId}", g.Places.Details).Methods(http.MethodGet)
	api.HandleFunc("/links", g.Places.Links).Methods(http.MethodGet)
	api.HandleFunc("/templates", g.Places.Templates).Methods(http.MethodGet)

	api.HandleFunc("/analytics/events", g.Analytics.Event).Methods(http.MethodPost)

	summary := http.Handler(http.HandlerFunc(g.Analytics.Summary))
	if g.Analytics.Deps.Auth != nil {
		summary = g.Analytics.Deps.Auth.Authenticate(summary)
	}

	api.Handle("/analytics/{placeId}", summary).Methods(http.MethodGet)

	if auth := g.Account.Deps.Auth; auth != nil && g.Account.Deps.Subscriptions != nil {
		api.Handle("/subscription", auth.Authenticate(http.HandlerFunc(g.Account.Subscription))).Methods(http.MethodGet)
	}
}
