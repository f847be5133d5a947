// Package protocol defines the wire types exchanged between the server, a
// device socket and the HTTP API.
package protocol

import "encoding/json"

// Device message types, sent from the mobile device to the server.
const (
	TypeHello     = "hello"
	TypeAuth      = "auth"
	TypeResponse  = "response"
	TypeEvent     = "event"
	TypePushToken = "push_token"
	TypeVoipToken = "voip_token"
)

// Server message types, sent from the server to the mobile device.
const (
	TypePairingCode  = "pairing_code"
	TypeAuthRequired = "auth_required"
	TypeAuthResult   = "auth_result"
	TypeCommand      = "command"
)

// ErrorInfo carries a machine-readable code alongside a human message.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the common shape every device-socket frame starts with: a
// type discriminator. Handlers decode into Envelope first, then re-decode
// the same bytes into the concrete payload for that type.
type Envelope struct {
	Type string `json:"type"`
}

// --- Device -> server payloads ---

type HelloMsg struct {
	Type     string `json:"type"`
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
}

type AuthMsg struct {
	Type     string `json:"type"`
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
}

type ResponseMsg struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *ErrorInfo      `json:"error,omitempty"`
}

type EventMsg struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type PushTokenMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type VoipTokenMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// --- Server -> device payloads ---

type PairingCodeMsg struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type AuthRequiredMsg struct {
	Type string `json:"type"`
}

type AuthResultMsg struct {
	Type    string  `json:"type"`
	Success bool    `json:"success"`
	Token   *string `json:"token,omitempty"`
	Error   *string `json:"error,omitempty"`
}

type CommandMsg struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params"`
}

func NewPairingCode(code string) PairingCodeMsg {
	return PairingCodeMsg{Type: TypePairingCode, Code: code}
}

func NewAuthRequired() AuthRequiredMsg {
	return AuthRequiredMsg{Type: TypeAuthRequired}
}

func NewAuthResult(success bool, token *string, errMsg *string) AuthResultMsg {
	return AuthResultMsg{Type: TypeAuthResult, Success: success, Token: token, Error: errMsg}
}

func NewCommand(id, command string, params json.RawMessage) CommandMsg {
	return CommandMsg{Type: TypeCommand, ID: id, Command: command, Params: params}
}

// --- REST API types ---

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	Command  string          `json:"command"`
	Params   json.RawMessage `json:"params"`
	DeviceID string          `json:"device_id,omitempty"`
}

// CommandResponse is returned both over REST and internally as the
// pending-command ledger's reply payload.
type CommandResponse struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrorCodeUserDeclined is reserved for user-initiated refusal on the device.
const ErrorCodeUserDeclined = "USER_DECLINED"

// Device is the persisted record for a paired mobile endpoint.
type Device struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Token     string  `json:"token"`
	PairedAt  int64   `json:"paired_at"`
	PushToken *string `json:"push_token,omitempty"`
	VoipToken *string `json:"voip_token,omitempty"`
}

// DeviceInfo is one item of the GET /api/devices response.
type DeviceInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Online   bool   `json:"online"`
	PairedAt int64  `json:"paired_at"`
}

// ServerStatus is the GET /api/status response.
type ServerStatus struct {
	Version       string `json:"version"`
	UptimeSecs    int64  `json:"uptime_secs"`
	DevicesOnline int    `json:"devices_online"`
	DevicesTotal  int    `json:"devices_total"`
}

// PairRequest is the body of POST /api/devices/pair.
type PairRequest struct {
	Code string `json:"code"`
}

// PairResponse is returned on a successful pair.
type PairResponse struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
}

// ClientEvent is broadcast to subscribed CLI/client websocket connections.
type ClientEvent struct {
	Event    string          `json:"event"`
	DeviceID string          `json:"device_id"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Lifecycle event names broadcast on the event bus.
const (
	EventDeviceConnected    = "device.connected"
	EventDeviceDisconnected = "device.disconnected"
	EventDevicePaired       = "device.paired"
)
