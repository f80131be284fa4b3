package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/internal/presence"
	"github.com/AnshRaj112/econex-backend/internal/realtime"
	"github.com/AnshRaj112/econex-backend/internal/services"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/time/rate"
)

// Authenticator resolves the session on the upgrade request (middleware.Auth).
type Authenticator interface {
	Resolve(r *http.Request) (*models.User, error)
}

type toucher interface {
	Touch(ctx context.Context, id primitive.ObjectID)
}

type GatewayConfig struct {
	AllowedOrigins    []string
	SendBuffer        int
	MessagesPerSecond float64
	Burst             int
}

// Gateway is the WebSocket endpoint. Each connection gets a read loop (this
// goroutine) and a write pump; all replies and pushes go through the client's
// send buffer.
type Gateway struct {
	auth     Authenticator
	presence presence.Registry
	rooms    *realtime.Rooms
	chats    *services.ChatRouter
	upgrader websocket.Upgrader
	cfg      GatewayConfig
}

func NewGateway(auth Authenticator, reg presence.Registry, rooms *realtime.Rooms, chats *services.ChatRouter, cfg GatewayConfig) *Gateway {
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	g := &Gateway{auth: auth, presence: reg, rooms: rooms, chats: chats, cfg: cfg}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// checkOrigin lets non-browser clients (no Origin header) through and holds
// browsers to the CORS allow-list.
func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := g.auth.Resolve(r)
	if err != nil {
		log.Printf("socket: session lookup failed: %v", err)
	}
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	client := realtime.NewClient(conn, user.Identity(), g.cfg.SendBuffer)
	go client.WritePump()
	g.serve(client)
}

func (g *Gateway) serve(client *realtime.Client) {
	who := client.Identity()
	limiter := rate.NewLimiter(rate.Limit(g.cfg.MessagesPerSecond), g.cfg.Burst)

	defer func() {
		g.presence.SetOffline(context.Background(), client)
		g.rooms.LeaveAll(client)
		client.Close()
	}()

	client.PrepareRead()
	for {
		frame, err := client.ReadFrame()
		if err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				g.reply(client, "", fmt.Errorf("%w: malformed frame", services.ErrValidation))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("socket: read failed for %s: %v", who.ID.Hex(), err)
			}
			return
		}

		if isChatSend(frame.Type) && !limiter.Allow() {
			g.reply(client, frame.Type, fmt.Errorf("%w: you are sending messages too fast", services.ErrValidation))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		err = g.handle(ctx, client, frame)
		cancel()
		if err != nil {
			g.reply(client, frame.Type, err)
		}
	}
}

func isChatSend(event string) bool {
	return event == realtime.EventSendLogisticsMessage || event == realtime.EventSendSalesMessage
}

type locationPayload struct {
	EntityID string           `json:"entity_id"`
	Location *models.Location `json:"location"`
}

type logisticsMessagePayload struct {
	RequestID  string `json:"request_id"`
	SenderID   string `json:"sender_id"`
	SenderRole string `json:"sender_role"`
	Message    string `json:"message"`
}

type salesMessagePayload struct {
	SalesChatID string `json:"sales_chat_id"`
	SenderID    string `json:"sender_id"`
	SenderRole  string `json:"sender_role"`
	Message     string `json:"message"`
}

func (g *Gateway) handle(ctx context.Context, client *realtime.Client, frame realtime.Inbound) error {
	who := client.Identity()

	switch frame.Type {
	case realtime.EventGoOnline:
		if err := g.checkSelf(frame.Data, "entity_id", who); err != nil {
			return err
		}
		g.presence.SetOnline(ctx, who, client)
		return nil

	case realtime.EventUpdateLocation:
		if who.Role != models.RoleCollector {
			return fmt.Errorf("%w: only collectors share their location", services.ErrForbidden)
		}
		var p locationPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return fmt.Errorf("%w: location payload is malformed", services.ErrValidation)
		}
		if err := sameEntity(p.EntityID, who); err != nil {
			return err
		}
		point, err := p.Location.Point()
		if err != nil {
			return fmt.Errorf("%w: %v", services.ErrValidation, err)
		}
		if err := g.presence.UpdateLocation(ctx, who.ID, point); err != nil {
			if errors.Is(err, presence.ErrNotPresent) {
				return fmt.Errorf("%w: go online before sharing a location", services.ErrInvalidState)
			}
			return err
		}
		return nil

	case realtime.EventJoinLogisticsRoom:
		requestID, err := objectIDField(frame.Data, "request_id")
		if err != nil {
			return err
		}
		return g.chats.JoinLogisticsRoom(ctx, client, who, requestID)

	case realtime.EventSendLogisticsMessage:
		var p logisticsMessagePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return fmt.Errorf("%w: message payload is malformed", services.ErrValidation)
		}
		requestID, err := primitive.ObjectIDFromHex(p.RequestID)
		if err != nil {
			return fmt.Errorf("%w: request_id is not a valid id", services.ErrValidation)
		}
		if err := sameEntity(p.SenderID, who); err != nil {
			return err
		}
		_, err = g.chats.SendLogistics(ctx, services.SendLogisticsInput{
			RequestID:  requestID,
			SenderID:   who.ID,
			SenderRole: p.SenderRole,
			Body:       p.Message,
		})
		return err

	case realtime.EventJoinSalesRoom:
		chatID, err := objectIDField(frame.Data, "sales_chat_id")
		if err != nil {
			return err
		}
		return g.chats.JoinSalesRoom(ctx, client, who, chatID)

	case realtime.EventSendSalesMessage:
		var p salesMessagePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return fmt.Errorf("%w: message payload is malformed", services.ErrValidation)
		}
		chatID, err := primitive.ObjectIDFromHex(p.SalesChatID)
		if err != nil {
			return fmt.Errorf("%w: sales_chat_id is not a valid id", services.ErrValidation)
		}
		if err := sameEntity(p.SenderID, who); err != nil {
			return err
		}
		_, err = g.chats.SendSales(ctx, services.SendSalesInput{
			ChatID:     chatID,
			SenderID:   who.ID,
			SenderRole: p.SenderRole,
			Body:       p.Message,
		})
		return err

	case realtime.EventPing:
		if t, ok := g.presence.(toucher); ok {
			t.Touch(ctx, who.ID)
		}
		return client.Send(realtime.EventPong, nil)
	}

	return fmt.Errorf("%w: unknown event %q", services.ErrValidation, frame.Type)
}

// reply reports a failed event to the sender only. Unexpected errors are logged
// and replaced with a generic message.
func (g *Gateway) reply(client *realtime.Client, event string, err error) {
	msg := err.Error()
	if statusFor(err) == http.StatusInternalServerError {
		log.Printf("socket: %s failed for %s: %v", event, client.Identity().ID.Hex(), err)
		msg = "internal error"
	}
	if sendErr := client.Send(realtime.EventError, realtime.ErrorPayload{Event: event, Message: msg}); sendErr != nil {
		log.Printf("socket: could not report error to %s: %v", client.ID(), sendErr)
	}
}

// checkSelf accepts an empty payload, a bare id string or {"<key>": id}; any id
// given must be the authenticated entity.
func (g *Gateway) checkSelf(raw json.RawMessage, key string, who models.Identity) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return fmt.Errorf("%w: expected %s", services.ErrValidation, key)
		}
		if v, ok := obj[key]; ok {
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("%w: %s must be a string", services.ErrValidation, key)
			}
		}
	}
	return sameEntity(s, who)
}

func sameEntity(claimed string, who models.Identity) error {
	if claimed == "" || claimed == who.ID.Hex() {
		return nil
	}
	return fmt.Errorf("%w: payload identity does not match the session", services.ErrForbidden)
}

// objectIDField reads an id sent either as a bare JSON string or as {"<key>": "..."}.
func objectIDField(raw json.RawMessage, key string) (primitive.ObjectID, error) {
	s, err := stringField(raw, key)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s is not a valid id", services.ErrValidation, key)
	}
	return id, nil
}

func stringField(raw json.RawMessage, key string) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("%w: expected %s", services.ErrValidation, key)
	}
	if v, ok := obj[key]; ok {
		if err := json.Unmarshal(v, &s); err != nil {
			return "", fmt.Errorf("%w: %s must be a string", services.ErrValidation, key)
		}
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", services.ErrValidation, key)
	}
	return s, nil
}
