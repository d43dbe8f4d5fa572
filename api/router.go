package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"estate_office/httputil"
	"estate_office/identity"
	"estate_office/models"
	"estate_office/services"
)

type Server struct {
	engine *services.Engine
}

type callerKey struct{}

// NewRouter exposes the engine over JSON. Everything except /health and
// /share/{token} needs the identity headers set by the auth proxy.
func NewRouter(engine *services.Engine) http.Handler {
	s := &Server{engine: engine}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/share/{token}", s.resolveShareLink)

	r.Group(func(api chi.Router) {
		api.Use(requireIdentity)

		api.Post("/listings", s.createListing)
		api.Route("/listings/{listingID}", func(l chi.Router) {
			l.Get("/", s.getListing)
			l.Patch("/", s.editListing)
			l.Post("/status", s.changeStatus)
			l.Put("/contacts", s.replaceContacts)
			l.Put("/agents", s.replaceAgents)
			l.Post("/contract", s.finalize)
			l.Get("/activity", s.activity)
			l.Get("/price-history", s.priceHistory)
			l.Get("/share-links", s.listShareLinks)
			l.Post("/share-links", s.createShareLink)
		})
		api.Delete("/share-links/{linkID}", s.deactivateShareLink)

		api.Get("/notifications", s.listNotifications)
		api.Post("/notifications/{notificationID}/read", s.markRead)
	})
	return r
}

func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := identity.FromHeaders(r.Header)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func callerFrom(r *http.Request) models.Identity {
	caller, _ := r.Context().Value(callerKey{}).(models.Identity)
	return caller
}
