package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"estate_office/httputil"
	"estate_office/models"
	"estate_office/services"
)

// pathID parses a uuid path parameter; a malformed id is simply not found
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return uuid.Nil, false
	}
	return id, true
}

// =============================================================================
// Listings
// =============================================================================

func (s *Server) createListing(w http.ResponseWriter, r *http.Request) {
	var in services.NewListing
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		writeBadRequest(w, err)
		return
	}
	l, err := s.engine.Listings.Create(r.Context(), callerFrom(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, l)
}

func (s *Server) getListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	l, err := s.engine.Listings.Get(r.Context(), callerFrom(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, l)
}

func (s *Server) editListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	var upd services.ListingUpdate
	if err := httputil.ReadJSON(w, r, &upd); err != nil {
		writeBadRequest(w, err)
		return
	}
	l, diff, err := s.engine.Listings.Edit(r.Context(), callerFrom(r), id, upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"listing": l, "changes": diff})
}

func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	var req struct {
		Status models.ListingStatus `json:"status"`
	}
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if _, err := services.TriggerForRequest(req.Status); err != nil {
		writeServiceError(w, r, err)
		return
	}
	l, err := s.engine.Listings.Archive(r.Context(), callerFrom(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, l)
}

func (s *Server) replaceContacts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	var req struct {
		Contacts []services.ContactInput `json:"contacts"`
	}
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	contacts, err := s.engine.Listings.ReplaceContacts(r.Context(), callerFrom(r), id, req.Contacts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

func (s *Server) replaceAgents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	var req struct {
		AgentIDs []uuid.UUID `json:"agent_ids"`
	}
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	agents, err := s.engine.Assignments.Replace(r.Context(), callerFrom(r), id, req.AgentIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if agents == nil {
		agents = []models.Staff{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

func (s *Server) finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	var in services.FinalizeInput
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		writeBadRequest(w, err)
		return
	}
	in.ListingID = id
	c, err := s.engine.Contracts.Finalize(r.Context(), callerFrom(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (s *Server) activity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	entries, err := s.engine.Listings.Activity(r.Context(), callerFrom(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.ActivityLogEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"activity": entries})
}

func (s *Server) priceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	entries, err := s.engine.Listings.PriceHistory(r.Context(), callerFrom(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.PriceHistoryEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"price_history": entries})
}

// =============================================================================
// Share links
// =============================================================================

func (s *Server) listShareLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	links, err := s.engine.ShareLinks.List(r.Context(), callerFrom(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if links == nil {
		links = []models.ShareLink{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"share_links": links})
}

func (s *Server) createShareLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	var req struct {
		CustomPrice *int64 `json:"custom_price"`
	}
	if r.ContentLength != 0 {
		if err := httputil.ReadJSON(w, r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}
	}
	link, err := s.engine.ShareLinks.Create(r.Context(), callerFrom(r), id, req.CustomPrice)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, link)
}

func (s *Server) deactivateShareLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "linkID")
	if !ok {
		return
	}
	link, err := s.engine.ShareLinks.Deactivate(r.Context(), callerFrom(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, link)
}

func (s *Server) resolveShareLink(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.ShareLinks.Resolve(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// =============================================================================
// Notifications
// =============================================================================

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	unread := r.URL.Query().Get("unread") == "true"
	ns, err := s.engine.Inbox.List(r.Context(), callerFrom(r), unread)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ns == nil {
		ns = []models.Notification{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"notifications": ns})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "notificationID")
	if !ok {
		return
	}
	n, err := s.engine.Inbox.MarkRead(r.Context(), callerFrom(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, n)
}
