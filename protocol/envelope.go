// Package protocol defines the wire protocol of the blank relay: the
// {eventName, eventData} envelope exchanged by clients and server, the ACK
// payload shape, the per-event payload types, and the NUL-terminated framing
// codec that turns a raw TCP byte stream into discrete envelopes.
package protocol

import "encoding/json"

// Client to server events. Each one is answered with an ACK envelope whose
// event name is the request name with the AckSuffix appended.
const (
	EventLogin         = "login"
	EventSetMaster     = "setMaster"
	EventSendShare     = "sendShare"
	EventCancelMaster  = "cancelMaster"
	EventGetClientList = "getClientList"
)

// Server to client events. EventSendShare is reused verbatim for the
// room-wide payload push.
const (
	EventClientList = "clientList"
	EventStartShare = "startShare"
	EventEndShare   = "endShare"
	EventShareState = "shareState"
)

// AckSuffix is appended to a request's event name to form its ACK event name.
// Correlation is by convention only; there is no request identifier, so two
// pipelined requests of the same type on one connection cannot be told apart.
const AckSuffix = "ACK"

// AckEvent returns the ACK event name for the given request event name.
//
// Parameters:
//   - event: The request event name (e.g. "login")
//
// Returns:
//   - The ACK event name (e.g. "loginACK")
func AckEvent(event string) string {
	return event + AckSuffix
}

// ACK result codes. Zero is success; any other value is a failure and Msg
// carries a human-readable reason.
const (
	CodeOK   = 0
	CodeFail = -1
)

// Envelope is the unit of wire exchange. EventData is kept as raw JSON so
// payloads stay opaque until a handler decides how to interpret them.
type Envelope struct {
	EventName string          `json:"eventName"`
	EventData json.RawMessage `json:"eventData"`
}

// Ack is the payload of every ACK envelope.
type Ack struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// LoginData is the payload of the login request. All three fields are
// required; the server rejects a login missing any of them.
type LoginData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	RoomID string `json:"roomId"`
}

// SendShareData is the payload of the sendShare request. Data is the opaque
// shared payload. ReceiverIDs is accepted for compatibility with older
// clients but delivery is always room-wide; the field is never used to
// filter targets.
type SendShareData struct {
	Data        json.RawMessage `json:"data"`
	ReceiverIDs []string        `json:"receiverIds,omitempty"`
}

// SharePush is the payload of the room-wide sendShare event emitted by the
// server when the presenter pushes data.
type SharePush struct {
	Data json.RawMessage `json:"data"`
}

// GetClientListData is the payload of the getClientList request. An empty
// RoomID requests the list of every session on the server; room identifiers
// are never empty, so the empty string is unambiguous.
type GetClientListData struct {
	RoomID string `json:"roomId,omitempty"`
}

// ClientInfo is one entry of the clientList event payload.
type ClientInfo struct {
	ID       string `json:"id"`
	RoomID   string `json:"roomId"`
	Name     string `json:"name"`
	IsMaster bool   `json:"isMaster"`
}

// ShareInfo is the payload of the startShare and endShare events,
// identifying the presenter concerned.
type ShareInfo struct {
	MasterID   string `json:"masterId"`
	MasterName string `json:"masterName"`
}

// Share states carried by the shareState event.
const (
	ShareStateIdle   = 0
	ShareStateActive = 1
)

// ShareStateData is the payload of the shareState event sent to a member
// right after a successful login, telling it whether the room it joined
// currently has an active presenter.
type ShareStateData struct {
	State int `json:"state"`
}
