package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/internal/presence"
	"github.com/AnshRaj112/econex-backend/internal/realtime"
	"github.com/AnshRaj112/econex-backend/internal/store"
	"github.com/AnshRaj112/econex-backend/pkg/keylock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxMessageLength = 2000

type SendLogisticsInput struct {
	RequestID  primitive.ObjectID
	SenderID   primitive.ObjectID
	SenderRole string
	Body       string
}

type SendSalesInput struct {
	ChatID     primitive.ObjectID
	SenderID   primitive.ObjectID
	SenderRole string
	Body       string
}

// ChatRouter handles join, send and read for logistics and sales chats. Every
// message is persisted before it is broadcast, and append plus enqueue run under
// a per-chat lock so broadcast order equals stored order.
type ChatRouter struct {
	logistics LogisticsChatStore
	sales     SalesChatStore
	requests  RequestStore
	rooms     RoomJoiner
	outbox    Notifier
	locks     *keylock.Map
	now       func() time.Time
}

func NewChatRouter(logistics LogisticsChatStore, sales SalesChatStore, requests RequestStore, rooms RoomJoiner, outbox Notifier) *ChatRouter {
	return &ChatRouter{
		logistics: logistics,
		sales:     sales,
		requests:  requests,
		rooms:     rooms,
		outbox:    outbox,
		locks:     keylock.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// JoinLogisticsRoom subscribes conn to the request's chat. Only the requester
// and the assigned collector may join.
func (r *ChatRouter) JoinLogisticsRoom(ctx context.Context, conn presence.Conn, who models.Identity, requestID primitive.ObjectID) error {
	chat, err := r.logisticsByRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if _, ok := chat.Participant(who.ID); !ok {
		return forbidden("not a participant of this chat")
	}
	r.rooms.Join(realtime.LogisticsRoom(requestID.Hex()), conn)
	return nil
}

func (r *ChatRouter) SendLogistics(ctx context.Context, in SendLogisticsInput) (*models.LogisticsMessageEvent, error) {
	body, err := messageBody(in.Body)
	if err != nil {
		return nil, err
	}
	role, err := models.ParseLogisticsRole(in.SenderRole)
	if err != nil {
		return nil, invalid("sender_role", err.Error())
	}

	chat, err := r.logisticsByRequest(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	from, ok := chat.Participant(in.SenderID)
	if !ok {
		return nil, forbidden("not a participant of this chat")
	}
	if from.Role != role {
		return nil, forbidden(fmt.Sprintf("sender is the %s of this chat, not the %s", from.Role, role))
	}

	unlock := r.locks.Lock("logistics:" + chat.ID.Hex())
	defer unlock()

	msg := models.NewLogisticsMessage(from, body, r.now())
	if err := r.logistics.Append(ctx, chat.ID, msg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("logistics chat")
		}
		return nil, fmt.Errorf("append logistics message: %w", err)
	}

	ev := &models.LogisticsMessageEvent{RequestID: chat.RequestID, ChatMessage: msg}
	r.outbox.ToRoom(realtime.LogisticsRoom(chat.RequestID.Hex()), realtime.EventNewLogisticsMessage, ev)
	return ev, nil
}

// MarkLogisticsRead flips every unread message not written by reader.
func (r *ChatRouter) MarkLogisticsRead(ctx context.Context, chatID, reader primitive.ObjectID) error {
	chat, err := r.logistics.FindByID(ctx, chatID)
	if err != nil {
		return mapChatErr(err, "logistics chat")
	}
	if _, ok := chat.Participant(reader); !ok {
		return forbidden("not a participant of this chat")
	}
	matched, err := r.logistics.MarkRead(ctx, chatID, reader)
	if err != nil {
		return err
	}
	if !matched {
		return notFound("logistics chat")
	}
	return nil
}

// LogisticsHistory returns the chat for a request with its messages in append order.
func (r *ChatRouter) LogisticsHistory(ctx context.Context, requestID, viewer primitive.ObjectID) (*models.LogisticsChat, error) {
	chat, err := r.logisticsByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if _, ok := chat.Participant(viewer); !ok {
		return nil, forbidden("not a participant of this chat")
	}
	return chat, nil
}

// Inquire opens (or reopens) the buyer's chat with the listing's collector. The
// collector is told only when this call created the chat.
func (r *ChatRouter) Inquire(ctx context.Context, actor models.Identity, requestID primitive.ObjectID) (*models.SalesChat, bool, error) {
	if actor.Role != models.RoleBuyer {
		return nil, false, forbidden("only buyers can start a sales chat")
	}

	req, err := r.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, false, mapChatErr(err, "listing")
	}
	if req.CollectorID == nil {
		return nil, false, notFound("listing has no collector")
	}
	if req.Status != models.StatusListedForSale && req.Status != models.StatusSold {
		return nil, false, &StateError{Expected: models.StatusListedForSale, Actual: req.Status}
	}

	chat, created, err := r.sales.FindOrCreate(ctx, requestID, actor.ID, *req.CollectorID)
	if err != nil {
		return nil, false, fmt.Errorf("find or create sales chat: %w", err)
	}
	if created {
		r.outbox.ToEntity(chat.CollectorID, realtime.EventNewSalesInquiry, chat)
	}
	return chat, created, nil
}

func (r *ChatRouter) JoinSalesRoom(ctx context.Context, conn presence.Conn, who models.Identity, chatID primitive.ObjectID) error {
	chat, err := r.sales.FindByID(ctx, chatID)
	if err != nil {
		return mapChatErr(err, "sales chat")
	}
	if _, ok := chat.Participant(who.ID); !ok {
		return forbidden("not a participant of this chat")
	}
	r.rooms.Join(realtime.SalesRoom(chatID.Hex()), conn)
	return nil
}

func (r *ChatRouter) SendSales(ctx context.Context, in SendSalesInput) (*models.SalesMessageEvent, error) {
	body, err := messageBody(in.Body)
	if err != nil {
		return nil, err
	}
	role, err := models.ParseSalesRole(in.SenderRole)
	if err != nil {
		return nil, invalid("sender_role", err.Error())
	}

	chat, err := r.sales.FindByID(ctx, in.ChatID)
	if err != nil {
		return nil, mapChatErr(err, "sales chat")
	}
	from, ok := chat.Participant(in.SenderID)
	if !ok {
		return nil, forbidden("not a participant of this chat")
	}
	if from.Role != role {
		return nil, forbidden(fmt.Sprintf("sender is the %s of this chat, not the %s", from.Role, role))
	}

	unlock := r.locks.Lock("sales:" + chat.ID.Hex())
	defer unlock()

	msg := models.NewSalesMessage(from, body, r.now())
	if err := r.sales.Append(ctx, chat.ID, msg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("sales chat")
		}
		return nil, fmt.Errorf("append sales message: %w", err)
	}

	ev := &models.SalesMessageEvent{SalesChatID: chat.ID, ChatMessage: msg}
	r.outbox.ToRoom(realtime.SalesRoom(chat.ID.Hex()), realtime.EventNewSalesMessage, ev)
	return ev, nil
}

func (r *ChatRouter) MarkSalesRead(ctx context.Context, chatID, reader primitive.ObjectID) error {
	chat, err := r.sales.FindByID(ctx, chatID)
	if err != nil {
		return mapChatErr(err, "sales chat")
	}
	if _, ok := chat.Participant(reader); !ok {
		return forbidden("not a participant of this chat")
	}
	matched, err := r.sales.MarkRead(ctx, chatID, reader)
	if err != nil {
		return err
	}
	if !matched {
		return notFound("sales chat")
	}
	return nil
}

func (r *ChatRouter) SalesHistory(ctx context.Context, chatID, viewer primitive.ObjectID) (*models.SalesChat, error) {
	chat, err := r.sales.FindByID(ctx, chatID)
	if err != nil {
		return nil, mapChatErr(err, "sales chat")
	}
	if _, ok := chat.Participant(viewer); !ok {
		return nil, forbidden("not a participant of this chat")
	}
	return chat, nil
}

// logisticsByRequest finds the chat for a request. A request that was accepted but
// whose chat insert failed gets the chat created here.
func (r *ChatRouter) logisticsByRequest(ctx context.Context, requestID primitive.ObjectID) (*models.LogisticsChat, error) {
	chat, err := r.logistics.FindByRequestID(ctx, requestID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	req, rerr := r.requests.FindByID(ctx, requestID)
	if rerr != nil || req.CollectorID == nil || req.Status == models.StatusPending {
		return nil, notFound("chat not found, the request may not be accepted yet")
	}
	if _, err := r.logistics.CreateIfAbsent(ctx, req.ID, req.UserID, *req.CollectorID); err != nil {
		return nil, fmt.Errorf("recreate logistics chat: %w", err)
	}
	log.Printf("chat: recreated missing logistics chat for %s", req.ID.Hex())
	chat, err = r.logistics.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, mapChatErr(err, "logistics chat")
	}
	return chat, nil
}

func messageBody(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("message", "must not be empty")
	}
	if len(s) > maxMessageLength {
		return "", invalid("message", fmt.Sprintf("must be at most %d bytes", maxMessageLength))
	}
	return s, nil
}

func mapChatErr(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(what)
	}
	return err
}
