package handlers

import (
	"net/http"
)

// RequestEvents returns a request's status transitions in the order they happened.
func (h *Handler) RequestEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	events, err := h.Audit.RequestEvents(ctx, id.Hex())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, events)
}

// RequestDispatches lists which collectors a request was offered to, including
// the ones that were offline at the time.
func (h *Handler) RequestDispatches(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	entries, err := h.Audit.Dispatches(ctx, id.Hex())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, entries)
}

func (h *Handler) PresenceSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}
	if h.Presence == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Presence mirror is not configured")
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	snap, online, err := h.Presence.Online(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !online {
		writeMessage(w, http.StatusNotFound, "Entity is not connected")
		return
	}
	writeData(w, http.StatusOK, snap)
}
