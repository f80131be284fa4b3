package handlers

import (
	"net/http"

	"github.com/AnshRaj112/econex-backend/internal/middleware"
)

// Listings is the marketplace of collected waste listed for sale.
func (h *Handler) Listings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	reqs, err := h.Requests.Listings(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, reqs)
}

// Purchase marks a listing sold to the calling buyer. Payment is settled elsewhere.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	req, err := h.Requests.MarkSold(ctx, middleware.IdentityFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, req)
}
