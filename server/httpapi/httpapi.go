// Package httpapi implements the REST surface: the command endpoint,
// pairing, device management and status.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/P5ina/open-mobile-cli/pkg/protocol"
	"github.com/P5ina/open-mobile-cli/server/common"
)

const commandTimeout = 30 * time.Second

// AlarmPusher is the push-fallback dependency of dispatchPush, satisfied by
// *server/apns.Client; narrowed to an interface so tests can substitute a
// fake without reaching the network.
type AlarmPusher interface {
	SendAlarmPush(ctx context.Context, pushToken, command string, params json.RawMessage) error
}

// Server wires the HTTP handlers to shared dependencies: the version
// string for /api/status, the APNs client (nil if APNs is not
// configured), and the process start time for uptime.
type Server struct {
	Version   string
	StartedAt time.Time
	Apns      AlarmPusher
}

// RegisterRoutes mounts every handler under group, which the caller has
// already wrapped with the bearer-auth middleware.
func (s *Server) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/api/command", s.postCommand)
	group.POST("/api/devices/pair", s.pairDevice)
	group.GET("/api/devices", s.getDevices)
	group.DELETE("/api/devices/:id", s.deleteDevice)
	group.GET("/api/status", s.getStatus)
}

func (s *Server) postCommand(c *gin.Context) {
	var req protocol.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}

	deviceID, status, msg, ok := resolveTarget(req.DeviceID)
	if !ok {
		c.JSON(status, gin.H{"error": msg})
		return
	}

	conn, connected := common.Connections.Get(deviceID)
	if connected && conn.Authenticated {
		s.dispatchLive(c, conn, req)
		return
	}

	s.dispatchPush(c, deviceID, req)
}

// resolveTarget implements the device-selection algorithm: an explicit
// device ID always wins, otherwise the sole authenticated connection (or,
// failing that, the sole registered device) is used.
func resolveTarget(explicit string) (deviceID string, status int, msg string, ok bool) {
	if explicit != "" {
		return explicit, 0, "", true
	}

	var authenticated []string
	for item := range common.Connections.IterBuffered() {
		if item.Val.Authenticated {
			authenticated = append(authenticated, item.Key)
		}
	}

	switch len(authenticated) {
	case 1:
		return authenticated[0], 0, "", true
	case 0:
		if common.Devices.Count() == 1 {
			for item := range common.Devices.IterBuffered() {
				return item.Key, 0, "", true
			}
		}
		return "", http.StatusNotFound, "No devices connected", false
	default:
		return "", http.StatusBadRequest, "Multiple devices connected, specify --device", false
	}
}

func (s *Server) dispatchLive(c *gin.Context, conn *common.Connection, req protocol.CommandRequest) {
	cmdID := uuid.NewString()
	wire := protocol.NewCommand(cmdID, req.Command, req.Params)
	data, err := json.Marshal(wire)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode command"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout+time.Second)
	defer cancel()

	resp, err := common.AwaitReply(ctx, cmdID, commandTimeout, func() error {
		return conn.SendCommand(data)
	})
	switch err {
	case nil:
		c.JSON(http.StatusOK, resp)
	case common.ErrReplyTimeout:
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "device did not respond in time"})
	case common.ErrReplyDropped:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "response channel closed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) dispatchPush(c *gin.Context, deviceID string, req protocol.CommandRequest) {
	if s.Apns == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not connected and APNs not configured"})
		return
	}

	device, ok := common.Devices.Get(deviceID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	if device.PushToken == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device not connected and has no push token registered"})
		return
	}

	if err := s.Apns.SendAlarmPush(c.Request.Context(), *device.PushToken, req.Command, req.Params); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, protocol.CommandResponse{
		ID:     uuid.NewString(),
		Status: protocol.StatusOK,
		Data:   mustJSON(gin.H{"delivered_via": "apns"}),
	})
}

func mustJSON(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func (s *Server) pairDevice(c *gin.Context) {
	var req protocol.PairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}

	pending, ok := common.RedeemPairingCode(req.Code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid pairing code"})
		return
	}

	token := uuid.NewString()
	device := protocol.Device{
		ID:       pending.DeviceID,
		Name:     pending.Name,
		Token:    token,
		PairedAt: time.Now().Unix(),
	}
	common.PutDevice(device)

	if conn, ok := common.Connections.Get(pending.DeviceID); ok {
		conn.Authenticated = true
		t := token
		data, _ := json.Marshal(protocol.NewAuthResult(true, &t, nil))
		conn.SendCommand(data)
	}

	common.PublishEvent(protocol.ClientEvent{Event: protocol.EventDevicePaired, DeviceID: pending.DeviceID})

	c.JSON(http.StatusOK, protocol.PairResponse{DeviceID: pending.DeviceID, Name: pending.Name})
}

func (s *Server) getDevices(c *gin.Context) {
	list := make([]protocol.DeviceInfo, 0, common.Devices.Count())
	for item := range common.Devices.IterBuffered() {
		d := item.Val
		online := false
		if conn, ok := common.Connections.Get(d.ID); ok {
			online = conn.Authenticated
		}
		list = append(list, protocol.DeviceInfo{ID: d.ID, Name: d.Name, Online: online, PairedAt: d.PairedAt})
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) deleteDevice(c *gin.Context) {
	id := c.Param("id")
	if !common.DeleteDevice(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}
	if conn, ok := common.Connections.Get(id); ok {
		conn.Close()
		common.Connections.Remove(id)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getStatus(c *gin.Context) {
	online := 0
	for item := range common.Connections.IterBuffered() {
		if item.Val.Authenticated {
			online++
		}
	}
	c.JSON(http.StatusOK, protocol.ServerStatus{
		Version:       s.Version,
		UptimeSecs:    int64(time.Since(s.StartedAt).Seconds()),
		DevicesOnline: online,
		DevicesTotal:  common.Devices.Count(),
	})
}
