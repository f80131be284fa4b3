package handlers

import (
	"net/http"

	"github.com/AnshRaj112/econex-backend/internal/middleware"
	"github.com/AnshRaj112/econex-backend/internal/services"
)

type collectRequest struct {
	ActualWeight float64 `json:"actual_weight"`
}

type listRequest struct {
	Description string `json:"description"`
}

// CreateRequest stores a pickup request for the calling user and starts dispatch.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var in services.CreateRequestInput
	if !decodeBody(w, r, &in) {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	req, err := h.Requests.Create(ctx, middleware.IdentityFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, req)
}

// UserRequests lists the caller's pending and accepted requests.
func (h *Handler) UserRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	reqs, err := h.Requests.ActiveForUser(ctx, middleware.IdentityFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, reqs)
}

// CollectorPending is the job board of unassigned requests.
func (h *Handler) CollectorPending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	reqs, err := h.Requests.PendingRequests(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, reqs)
}

func (h *Handler) CollectorAccepted(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	reqs, err := h.Requests.AcceptedForCollector(ctx, middleware.IdentityFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, reqs)
}

func (h *Handler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	req, err := h.Requests.Accept(ctx, middleware.IdentityFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, req)
}

// CollectRequest records the actual weight and awards the requester's points.
func (h *Handler) CollectRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}
	var body collectRequest
	if !decodeBody(w, r, &body) {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	req, err := h.Requests.Collect(ctx, middleware.IdentityFromContext(r.Context()), id, body.ActualWeight)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, req)
}

func (h *Handler) ListForSale(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}
	var body listRequest
	if !decodeBody(w, r, &body) {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	req, err := h.Requests.ListForSale(ctx, middleware.IdentityFromContext(r.Context()), id, body.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, req)
}
