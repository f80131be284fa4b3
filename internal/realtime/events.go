package realtime

import "encoding/json"

// Client -> server
const (
	EventGoOnline             = "user:go_online"
	EventUpdateLocation       = "collector:update_location"
	EventJoinLogisticsRoom    = "chat:join_logistics_room"
	EventSendLogisticsMessage = "chat:send_logistics_message"
	EventJoinSalesRoom        = "chat:join_sales_room"
	EventSendSalesMessage     = "chat:send_sales_message"
	EventPing                 = "ping"
)

// Server -> client
const (
	EventNewRequestAvailable = "collector:new_request_available"
	EventNewLogisticsMessage = "chat:new_logistics_message"
	EventNewSalesMessage     = "chat:new_sales_message"
	EventNewSalesInquiry     = "chat:new_sales_inquiry"
	EventRequestAccepted     = "user:request_accepted"
	EventRequestCompleted    = "user:request_completed"
	EventError               = "chat:error"
	EventPong                = "pong"
)

// Envelope is the frame written to clients.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Inbound is the frame read from clients; Data is decoded per Type.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

func LogisticsRoom(requestID string) string { return "logistics-" + requestID }
func SalesRoom(chatID string) string        { return "sales-" + chatID }
