// ABOUTME: HTTP API handlers for session CRUD and the listing catalog.
// ABOUTME: Provides /api/sessions and /api/listings consumed by the demo frontend.

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/provenly/resale-gateway/internal/store"
)

// SessionCreateRequest is the JSON request body for POST /api/sessions.
// Agent descriptors and messages are opaque records stored as-is.
type SessionCreateRequest struct {
	SessionID       string            `json:"session_id,omitempty"`
	Mode            string            `json:"mode,omitempty"`
	SelectedItemID  *string           `json:"selected_item_id,omitempty"`
	BuyerAgent      json.RawMessage   `json:"buyer_agent,omitempty"`
	EvaluatorAgents []json.RawMessage `json:"evaluator_agents,omitempty"`
	SellerAgents    []json.RawMessage `json:"seller_agents,omitempty"`
	Messages        []json.RawMessage `json:"messages,omitempty"`
	Turn            int               `json:"turn,omitempty"`
}

// SessionResponse is the JSON representation of a session.
type SessionResponse struct {
	SessionID       string            `json:"session_id"`
	Mode            string            `json:"mode"`
	SelectedItemID  *string           `json:"selected_item_id"`
	BuyerAgent      json.RawMessage   `json:"buyer_agent,omitempty"`
	EvaluatorAgents []json.RawMessage `json:"evaluator_agents"`
	SellerAgents    []json.RawMessage `json:"seller_agents"`
	Messages        []json.RawMessage `json:"messages"`
	Turn            int               `json:"turn"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

// SelectItemRequest is the JSON request body for POST /api/sessions/{id}/select-item.
type SelectItemRequest struct {
	ItemID string `json:"item_id"`
}

// SellerResponse is the seller side of a listing.
type SellerResponse struct {
	Description string `json:"description"`
}

// ListingResponse is the JSON representation of a listing.
type ListingResponse struct {
	ID                  string         `json:"id"`
	OfficialDescription string         `json:"official_description"`
	Seller              SellerResponse `json:"seller"`
}

// handleSessions handles GET (list) and POST (create) on /api/sessions.
func (g *Gateway) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.handleListSessions(w, r)
	case http.MethodPost:
		g.handleCreateSession(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleCreateSession creates a session, generating an id when the caller
// doesn't bring one. Descriptor lists default to empty, mode defaults to
// "auto".
func (g *Gateway) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	mode := req.Mode
	if mode == "" {
		mode = store.DefaultMode
	}

	now := time.Now().UTC()
	session := &store.Session{
		SessionID:       sessionID,
		Mode:            mode,
		SelectedItemID:  req.SelectedItemID,
		BuyerAgent:      req.BuyerAgent,
		EvaluatorAgents: req.EvaluatorAgents,
		SellerAgents:    req.SellerAgents,
		Messages:        req.Messages,
		Turn:            req.Turn,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := g.store.CreateSession(r.Context(), session); err != nil {
		if errors.Is(err, store.ErrDuplicateSession) {
			g.sendJSONError(w, http.StatusConflict, "session already exists")
			return
		}
		g.logger.Error("creating session", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	g.logger.Info("session created", "session_id", sessionID, "mode", mode)
	g.writeJSON(w, http.StatusCreated, sessionToResponse(session))
}

// handleListSessions returns all sessions, newest first.
func (g *Gateway) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := g.store.ListSessions(r.Context())
	if err != nil {
		g.logger.Error("listing sessions", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	response := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		response = append(response, sessionToResponse(s))
	}
	g.writeJSON(w, http.StatusOK, response)
}

// handleSessionRoutes dispatches /api/sessions/{id} and
// /api/sessions/{id}/select-item.
func (g *Gateway) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		g.handleGetSession(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "select-item":
		g.handleSelectItem(w, r, parts[0])
	default:
		g.sendJSONError(w, http.StatusNotFound, "unknown session route")
	}
}

// handleGetSession returns one session by id.
func (g *Gateway) handleGetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	session, err := g.store.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		g.logger.Error("getting session", "session_id", sessionID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	g.writeJSON(w, http.StatusOK, sessionToResponse(session))
}

// handleSelectItem points a session at a listing. The listing must exist in
// the catalog; the session must exist in the registry.
func (g *Gateway) handleSelectItem(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req SelectItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ItemID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	if _, err := g.store.GetListing(r.Context(), req.ItemID); err != nil {
		if errors.Is(err, store.ErrListingNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "listing not found")
			return
		}
		g.logger.Error("resolving listing", "item_id", req.ItemID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to resolve listing")
		return
	}

	if err := g.store.SetSelectedItem(r.Context(), sessionID, req.ItemID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		g.logger.Error("selecting item", "session_id", sessionID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to select item")
		return
	}

	session, err := g.store.GetSession(r.Context(), sessionID)
	if err != nil {
		g.logger.Error("reloading session", "session_id", sessionID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to reload session")
		return
	}

	g.logger.Info("item selected", "session_id", sessionID, "item_id", req.ItemID)
	g.writeJSON(w, http.StatusOK, sessionToResponse(session))
}

// handleListListings returns the full listing catalog.
func (g *Gateway) handleListListings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	listings, err := g.store.ListListings(r.Context())
	if err != nil {
		g.logger.Error("listing catalog", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to list listings")
		return
	}

	response := make([]ListingResponse, 0, len(listings))
	for _, l := range listings {
		response = append(response, listingToResponse(l))
	}
	g.writeJSON(w, http.StatusOK, response)
}

// handleGetListing returns one listing by id.
func (g *Gateway) handleGetListing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	itemID := strings.TrimPrefix(r.URL.Path, "/api/listings/")
	if itemID == "" || strings.Contains(itemID, "/") {
		g.sendJSONError(w, http.StatusNotFound, "unknown listing route")
		return
	}

	listing, err := g.store.GetListing(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, store.ErrListingNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "listing not found")
			return
		}
		g.logger.Error("getting listing", "item_id", itemID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to get listing")
		return
	}

	g.writeJSON(w, http.StatusOK, listingToResponse(listing))
}

// sessionToResponse converts a stored session to its JSON shape.
func sessionToResponse(s *store.Session) SessionResponse {
	return SessionResponse{
		SessionID:       s.SessionID,
		Mode:            s.Mode,
		SelectedItemID:  s.SelectedItemID,
		BuyerAgent:      s.BuyerAgent,
		EvaluatorAgents: emptyIfNil(s.EvaluatorAgents),
		SellerAgents:    emptyIfNil(s.SellerAgents),
		Messages:        emptyIfNil(s.Messages),
		Turn:            s.Turn,
		CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// listingToResponse converts a stored listing to its JSON shape.
func listingToResponse(l *store.Listing) ListingResponse {
	return ListingResponse{
		ID:                  l.ID,
		OfficialDescription: l.OfficialDescription,
		Seller:              SellerResponse{Description: l.Seller.Description},
	}
}

// emptyIfNil keeps descriptor lists rendering as [] rather than null.
func emptyIfNil(list []json.RawMessage) []json.RawMessage {
	if list == nil {
		return []json.RawMessage{}
	}
	return list
}

// writeJSON writes a JSON response with the given status code.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("encoding response", "error", err)
	}
}

// sendJSONError writes a JSON error response with the given status code.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
