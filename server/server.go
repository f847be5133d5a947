// Package server bootstraps the omcli broker: device/client websocket
// endpoints and the authenticated REST API, with graceful shutdown on
// SIGINT/SIGTERM.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/P5ina/open-mobile-cli/server/apns"
	"github.com/P5ina/open-mobile-cli/server/auth"
	"github.com/P5ina/open-mobile-cli/server/common"
	"github.com/P5ina/open-mobile-cli/server/config"
	"github.com/P5ina/open-mobile-cli/server/httpapi"
	"github.com/P5ina/open-mobile-cli/server/wsclient"
	"github.com/P5ina/open-mobile-cli/server/wsdevice"
)

// Version is stamped by the release build via -ldflags; "dev" otherwise.
var Version = "dev"

// Serve loads (or creates on first run) the server's config, wires every
// route, and blocks until interrupted. port/bind of 0/"" fall back to
// config.DefaultPort/DefaultBind; either way the on-disk [server] url, port
// and bind are rewritten to the values used.
func Serve(port uint16, bind, logLevel string) error {
	if port == 0 {
		port = config.DefaultPort
	}
	if bind == "" {
		bind = config.DefaultBind
	}

	cfg, err := config.LoadOrCreate(port, bind)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	common.InitLogging(config.DataDir()+"/logs", logLevel, 7)
	defer common.CloseLog()

	if err := common.LoadRegistry(); err != nil {
		common.Fatal(nil, "REGISTRY_LOAD", "fail", err.Error(), nil)
		return err
	}

	var apnsClient *apns.Client
	if cfg.Apns != nil {
		apnsClient, err = apns.New(*cfg.Apns)
		if err != nil {
			common.Fatal(nil, "APNS_INIT", "fail", err.Error(), nil)
			return err
		}
		common.Info(nil, "APNS_INIT", "ok", "", nil)
	}

	stopSweep := make(chan struct{})
	defer close(stopSweep)
	go sweepExpiredPairingsForever(stopSweep)

	gin.SetMode(gin.ReleaseMode)
	app := gin.New()
	app.Use(gin.Recovery())

	api := &httpapi.Server{Version: Version, StartedAt: time.Now()}
	if apnsClient != nil {
		// Assigning a nil *apns.Client to the AlarmPusher interface field
		// directly would make it a non-nil interface wrapping a nil
		// pointer, so the field is only set when a client actually exists.
		api.Apns = apnsClient
	}
	authed := app.Group("/", auth.BearerAuth(cfg.Server.APIKey))
	api.RegisterRoutes(authed)

	app.GET("/ws/device", gin.WrapF(wsdevice.Handle))
	app.GET("/ws/client", gin.WrapF(wsclient.Handle(cfg.Server.APIKey)))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Bind, cfg.Server.Port),
		Handler: app,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()
	common.Info(nil, "SERVICE_INIT", "ok", "", map[string]any{"listen": srv.Addr})
	fmt.Printf("omcli server listening on %s\n", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		common.Fatal(nil, "SERVICE_INIT", "fail", err.Error(), nil)
		return err
	case <-quit:
	}

	common.Warn(nil, "SERVICE_EXITING", "", "", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// http.Server.Shutdown only stops new connections and waits on
	// in-flight handlers; it never touches hijacked/upgraded sockets, so
	// every live device connection has to be closed explicitly.
	common.Connections.IterCb(func(_ string, conn *common.Connection) {
		conn.Close()
	})

	if err := srv.Shutdown(ctx); err != nil {
		common.Warn(nil, "SERVICE_EXIT", "error", err.Error(), nil)
		return err
	}
	common.Warn(nil, "SERVICE_EXIT", "success", "", nil)
	return nil
}

func sweepExpiredPairingsForever(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			common.SweepExpiredPairings()
		case <-stop:
			return
		}
	}
}
