// Package wsdevice implements the per-socket device session state machine:
// Awaiting Hello -> Pairing / AwaitingAuth -> Authenticated -> Closed.
package wsdevice

import (
	"encoding/json"
	"net/http"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/P5ina/open-mobile-cli/pkg/protocol"
	"github.com/P5ina/open-mobile-cli/pkg/wsmux"
	"github.com/P5ina/open-mobile-cli/server/common"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handle upgrades the request to a device socket and runs its session to
// completion. Devices authenticate in-band (via the `auth` frame), so no
// bearer check happens here.
func Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	deviceID, name, ok := awaitHello(conn)
	if !ok {
		conn.Close()
		return
	}

	wc := wsmux.New(conn)
	runSession(wc, deviceID, name, common.GetRealIP(r))
}

type session struct {
	wc       *wsmux.Conn
	deviceID string
	name     string
	conn     *common.Connection
	remoteIP string
}

func runSession(wc *wsmux.Conn, deviceID, name, remoteIP string) {
	s := &session{wc: wc, deviceID: deviceID, name: name, remoteIP: remoteIP}
	s.conn = common.NewConnection(deviceID, name, wc)
	common.Register(deviceID, s.conn)

	if _, known := common.Devices.Get(deviceID); known {
		s.sendServer(protocol.NewAuthRequired())
	} else {
		code := common.NewPairingCode(deviceID, name)
		common.Info(remoteIP, "PAIRING_CODE", "ok", "", map[string]any{"device_id": deviceID, "code": code})
		s.sendServer(protocol.NewPairingCode(code))
	}

	common.PublishEvent(protocol.ClientEvent{Event: protocol.EventDeviceConnected, DeviceID: deviceID})

	wc.Run(s.onMessage)

	common.Unregister(deviceID, s.conn)
	common.RemovePairingsForDevice(deviceID)
	common.PublishEvent(protocol.ClientEvent{Event: protocol.EventDeviceDisconnected, DeviceID: deviceID})
	common.Info(remoteIP, "DEVICE_DISCONNECTED", "ok", "", map[string]any{"device_id": deviceID})
}

// awaitHello blocks on the very first frame, read directly off the raw
// socket before the wsmux pumps take over, and requires it to be `hello`.
func awaitHello(conn *ws.Conn) (deviceID, name string, ok bool) {
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	t, msg, err := conn.ReadMessage()
	if err != nil || t != ws.TextMessage {
		return "", "", false
	}

	var env protocol.Envelope
	if err := json.Unmarshal(msg, &env); err != nil || env.Type != protocol.TypeHello {
		return "", "", false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil || hello.DeviceID == "" {
		return "", "", false
	}
	return hello.DeviceID, hello.Name, true
}

func (s *session) sendServer(v any) {
	data, _ := json.Marshal(v)
	s.wc.Send(data)
}

// onMessage dispatches one inbound device frame by its `type` discriminator.
func (s *session) onMessage(msg []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return
	}
	switch env.Type {
	case protocol.TypeAuth:
		s.handleAuth(msg)
	case protocol.TypeResponse:
		s.handleResponse(msg)
	case protocol.TypeEvent:
		s.handleEvent(msg)
	case protocol.TypePushToken:
		s.handlePushToken(msg)
	case protocol.TypeVoipToken:
		s.handleVoipToken(msg)
	case protocol.TypeHello:
		common.Warn(s.remoteIP, "UNEXPECTED_HELLO", "ignored", "", map[string]any{"device_id": s.deviceID})
	}
}

func (s *session) handleAuth(raw []byte) {
	var m protocol.AuthMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	device, ok := common.Devices.Get(m.DeviceID)
	valid := ok && device.Token == m.Token

	if valid {
		s.conn.Authenticated = true
		common.Info(s.remoteIP, "DEVICE_AUTH", "ok", "", map[string]any{"device_id": m.DeviceID})
		s.sendServer(protocol.NewAuthResult(true, nil, nil))
		return
	}

	common.Warn(s.remoteIP, "DEVICE_AUTH", "fail", "re-pairing", map[string]any{"device_id": m.DeviceID})
	common.DeleteDevice(m.DeviceID)
	code := common.NewPairingCode(m.DeviceID, s.name)
	s.sendServer(protocol.NewPairingCode(code))
}

func (s *session) handleResponse(raw []byte) {
	var m protocol.ResponseMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	resp := protocol.CommandResponse{ID: m.ID, Status: m.Status, Data: m.Data}
	if m.Error != nil {
		resp.Error = m.Error.Message
		resp.ErrorCode = m.Error.Code
	}
	common.FulfillReply(resp)
}

func (s *session) handleEvent(raw []byte) {
	var m protocol.EventMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	common.PublishEvent(protocol.ClientEvent{Event: m.Event, DeviceID: s.deviceID, Data: m.Data})
}

func (s *session) handlePushToken(raw []byte) {
	var m protocol.PushTokenMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	s.updateDevice(func(d *protocol.Device) { d.PushToken = &m.Token })
}

func (s *session) handleVoipToken(raw []byte) {
	var m protocol.VoipTokenMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	s.updateDevice(func(d *protocol.Device) { d.VoipToken = &m.Token })
}

func (s *session) updateDevice(mutate func(d *protocol.Device)) {
	d, ok := common.Devices.Get(s.deviceID)
	if !ok {
		common.Warn(s.remoteIP, "TOKEN_UPDATE", "unknown_device", "", map[string]any{"device_id": s.deviceID})
		return
	}
	mutate(&d)
	common.PutDevice(d)
}
