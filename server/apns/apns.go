// Package apns is a narrow APNs dispatcher: a constructor that fails fast
// if the signing key cannot be loaded, and send methods that pack a
// command into a push and deliver it.
package apns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"github.com/P5ina/open-mobile-cli/server/config"
)

// Client is a constructed APNs dispatcher bound to one bundle ID and
// signing key.
type Client struct {
	client   *apns2.Client
	bundleID string
}

// New loads the signing key at cfg.KeyPath and builds a token-based APNs
// client. Construction fails if the key cannot be loaded; callers should
// treat that as fatal at startup.
func New(cfg config.ApnsConfig) (*Client, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("load APNs key %q: %w", cfg.KeyPath, err)
	}

	tok := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	client := apns2.NewTokenClient(tok)
	if cfg.Sandbox {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return &Client{client: client, bundleID: cfg.BundleID}, nil
}

// alarmCustom is the payload packed under the "omcli" custom key of every
// push this dispatcher sends.
type alarmCustom struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params"`
}

// SendAlarmPush delivers an alert-style push: alert body "Alarm triggered",
// content-available, category "alarm", push-type alert, priority high,
// topic = the configured bundle ID.
func (c *Client) SendAlarmPush(ctx context.Context, pushToken, command string, params json.RawMessage) error {
	p := payload.NewPayload().
		AlertBody("Alarm triggered").
		ContentAvailable().
		Category("alarm").
		Custom("omcli", alarmCustom{Command: command, Params: params})

	n := &apns2.Notification{
		DeviceToken: pushToken,
		Topic:       c.bundleID,
		PushType:    apns2.PushTypeAlert,
		Priority:    apns2.PriorityHigh,
		Payload:     p,
	}
	return c.send(ctx, n)
}

// SendVoipPush delivers a silent VoIP push: content-available, push-type
// voip, priority high, topic = "<bundle>.voip".
func (c *Client) SendVoipPush(ctx context.Context, voipToken, command string, params json.RawMessage) error {
	p := payload.NewPayload().
		ContentAvailable().
		Custom("omcli", alarmCustom{Command: command, Params: params})

	n := &apns2.Notification{
		DeviceToken: voipToken,
		Topic:       c.bundleID + ".voip",
		PushType:    apns2.PushTypeVOIP,
		Priority:    apns2.PriorityHigh,
		Payload:     p,
	}
	return c.send(ctx, n)
}

// SendNotifyPush delivers a plain alert push with an arbitrary title/body,
// used by the relay for third-party-triggered notifications rather than the
// fixed "Alarm triggered" alert of SendAlarmPush.
func (c *Client) SendNotifyPush(ctx context.Context, deviceToken, title, body, sound string) error {
	p := payload.NewPayload().AlertTitle(title).AlertBody(body).Sound(sound)

	n := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       c.bundleID,
		PushType:    apns2.PushTypeAlert,
		Priority:    apns2.PriorityHigh,
		Payload:     p,
	}
	return c.send(ctx, n)
}

// SendVoipPushRaw delivers a silent VoIP push carrying an arbitrary
// pushType/sound/message, used by the relay which has no command/params of
// its own to forward.
func (c *Client) SendVoipPushRaw(ctx context.Context, voipToken, pushType, sound, message string) error {
	p := payload.NewPayload().
		ContentAvailable().
		Custom("omcli", map[string]string{"type": pushType, "sound": sound, "message": message})

	n := &apns2.Notification{
		DeviceToken: voipToken,
		Topic:       c.bundleID + ".voip",
		PushType:    apns2.PushTypeVOIP,
		Priority:    apns2.PriorityHigh,
		Payload:     p,
	}
	return c.send(ctx, n)
}

func (c *Client) send(ctx context.Context, n *apns2.Notification) error {
	resp, err := c.client.PushWithContext(ctx, n)
	if err != nil {
		return fmt.Errorf("APNs transport error: %w", err)
	}
	if !resp.Sent() {
		return fmt.Errorf("APNs push failed: %s (status %d)", resp.Reason, resp.StatusCode)
	}
	return nil
}
