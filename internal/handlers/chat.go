package handlers

import (
	"net/http"

	"github.com/AnshRaj112/econex-backend/internal/middleware"
)

func (h *Handler) LogisticsInbox(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	entries, err := h.Inbox.LogisticsInboxForUser(ctx, middleware.IdentityFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, entries)
}

func (h *Handler) CollectorLogisticsInbox(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	entries, err := h.Inbox.LogisticsInboxForCollector(ctx, middleware.IdentityFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, entries)
}

// LogisticsHistory returns the request's chat with messages in send order.
func (h *Handler) LogisticsHistory(w http.ResponseWriter, r *http.Request) {
	requestID, ok := objectIDParam(w, r, "requestId")
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	chat, err := h.Chats.LogisticsHistory(ctx, requestID, middleware.IdentityFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, chat)
}

func (h *Handler) MarkLogisticsRead(w http.ResponseWriter, r *http.Request) {
	chatID, ok := objectIDParam(w, r, "chatId")
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	if err := h.Chats.MarkLogisticsRead(ctx, chatID, middleware.IdentityFromContext(r.Context()).ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Messages marked as read")
}

// Inquire opens the buyer's sales chat for a listing. 201 when the chat is new.
func (h *Handler) Inquire(w http.ResponseWriter, r *http.Request) {
	requestID, ok := objectIDParam(w, r, "requestId")
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	chat, created, err := h.Chats.Inquire(ctx, middleware.IdentityFromContext(r.Context()), requestID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeData(w, status, chat)
}

// SalesInbox serves both sides: a buyer sees their inquiries, a collector the
// inquiries on their listings.
func (h *Handler) SalesInbox(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	entries, err := h.Inbox.SalesInbox(ctx, middleware.IdentityFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, entries)
}

func (h *Handler) SalesHistory(w http.ResponseWriter, r *http.Request) {
	chatID, ok := objectIDParam(w, r, "chatId")
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	chat, err := h.Chats.SalesHistory(ctx, chatID, middleware.IdentityFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, chat)
}

func (h *Handler) MarkSalesRead(w http.ResponseWriter, r *http.Request) {
	chatID, ok := objectIDParam(w, r, "chatId")
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	if err := h.Chats.MarkSalesRead(ctx, chatID, middleware.IdentityFromContext(r.Context()).ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Messages marked as read")
}
