// Package relay implements a standalone push-forwarding process: a small,
// independently deployable APNs gateway that third-party integrations call
// directly, without needing the main server's API key or device registry.
package relay

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/P5ina/open-mobile-cli/server/apns"
	"github.com/P5ina/open-mobile-cli/server/common"
	"github.com/P5ina/open-mobile-cli/server/config"
)

// Pusher is the APNs dependency of the relay handlers, satisfied by
// *server/apns.Client; narrowed to an interface so tests can substitute a
// fake without reaching the network.
type Pusher interface {
	SendNotifyPush(ctx context.Context, deviceToken, title, body, sound string) error
	SendVoipPushRaw(ctx context.Context, voipToken, pushType, sound, message string) error
}

// Server is the relay's handler set, bound to its own APNs client and rate
// limiter — deliberately independent of the main server's Devices/
// Connections tables; the relay has no device registry of its own.
type Server struct {
	Apns    Pusher
	Limiter *RateLimiter
}

func New(cfg config.RelayConfig) (*Server, error) {
	client, err := apns.New(cfg.ToApnsConfig())
	if err != nil {
		return nil, err
	}
	maxPerHour := cfg.MaxRequestsPerDevicePerH
	if maxPerHour == 0 {
		maxPerHour = config.DefaultMaxPerHr
	}
	return &Server{Apns: client, Limiter: NewRateLimiter(maxPerHour)}, nil
}

// Serve loads the server config's [relay] section, overriding port/bind
// when non-zero/non-empty, and blocks until interrupted.
func Serve(port uint16, bind string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config (run 'omcli serve' first): %w", err)
	}
	if cfg.Relay == nil {
		return fmt.Errorf("missing [relay] section in config.toml")
	}
	relayCfg := *cfg.Relay
	if port != 0 {
		relayCfg.Port = port
	}
	if bind != "" {
		relayCfg.Bind = bind
	}

	srv, err := New(relayCfg)
	if err != nil {
		return fmt.Errorf("initialize APNs client for relay: %w", err)
	}

	common.InitLogging(config.DataDir()+"/relay-logs", "info", 7)
	defer common.CloseLog()

	gin.SetMode(gin.ReleaseMode)
	app := gin.New()
	app.Use(gin.Recovery())
	srv.RegisterRoutes(app)

	addr := fmt.Sprintf("%s:%d", relayCfg.Bind, relayCfg.Port)
	httpSrv := &http.Server{Addr: addr, Handler: app}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()
	fmt.Printf("omcli relay listening on %s\n", addr)
	common.Info(nil, "RELAY_INIT", "ok", "", map[string]any{"listen": addr})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	common.Warn(nil, "RELAY_EXITING", "", "", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.POST("/relay/push", s.pushHandler)
	r.POST("/relay/voip", s.voipHandler)
	r.GET("/relay/health", healthHandler)
}

// isValidDeviceToken requires a 64-character lowercase hex APNs token.
func isValidDeviceToken(token string) bool {
	if len(token) != 64 {
		return false
	}
	return strings.IndexFunc(token, func(r rune) bool {
		return !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'))
	}) == -1
}

type pushRequest struct {
	DeviceToken string `json:"device_token"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Sound       string `json:"sound"`
}

type voipRequest struct {
	VoipToken string `json:"voip_token"`
	Type      string `json:"type"`
	Sound     string `json:"sound"`
	Message   string `json:"message"`
}

type relayResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) pushHandler(c *gin.Context) {
	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, relayResponse{Status: "error", Error: "malformed request"})
		return
	}
	if req.Sound == "" {
		req.Sound = "default"
	}
	if !isValidDeviceToken(req.DeviceToken) {
		c.JSON(http.StatusBadRequest, relayResponse{Status: "error", Error: "Invalid device token: must be 64 hex characters"})
		return
	}
	if !s.Limiter.Allow(req.DeviceToken) {
		c.JSON(http.StatusTooManyRequests, relayResponse{Status: "error", Error: "Rate limit exceeded"})
		return
	}

	common.Info(nil, "RELAY_PUSH", "", "", map[string]any{"token_prefix": prefix8(req.DeviceToken)})

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	if err := s.Apns.SendNotifyPush(ctx, req.DeviceToken, req.Title, req.Body, req.Sound); err != nil {
		c.JSON(http.StatusBadGateway, relayResponse{Status: "error", Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, relayResponse{Status: "ok"})
}

func (s *Server) voipHandler(c *gin.Context) {
	var req voipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, relayResponse{Status: "error", Error: "malformed request"})
		return
	}
	if !isValidDeviceToken(req.VoipToken) {
		c.JSON(http.StatusBadRequest, relayResponse{Status: "error", Error: "Invalid VoIP token: must be 64 hex characters"})
		return
	}
	if !s.Limiter.Allow(req.VoipToken) {
		c.JSON(http.StatusTooManyRequests, relayResponse{Status: "error", Error: "Rate limit exceeded"})
		return
	}

	common.Info(nil, "RELAY_VOIP", "", "", map[string]any{"token_prefix": prefix8(req.VoipToken)})

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	if err := s.Apns.SendVoipPushRaw(ctx, req.VoipToken, req.Type, req.Sound, req.Message); err != nil {
		c.JSON(http.StatusBadGateway, relayResponse{Status: "error", Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, relayResponse{Status: "ok"})
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func prefix8(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:8]
}
