package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/P5ina/open-mobile-cli/pkg/protocol"
	"github.com/P5ina/open-mobile-cli/pkg/wsmux"
)

// inertConn builds a wsmux.Conn whose pumps are never started, so Close()
// only queues a close frame instead of touching a real socket.
func inertConn() *wsmux.Conn {
	return wsmux.New(nil)
}

func TestRegisterReplacesPriorConnection(t *testing.T) {
	first := NewConnection("dev-1", "Phone", inertConn())
	second := NewConnection("dev-1", "Phone", inertConn())

	Register("dev-1", first)
	Register("dev-1", second)

	got, ok := Connections.Get("dev-1")
	require.True(t, ok)
	assert.Same(t, second, got)

	Unregister("dev-1", second)
	_, ok = Connections.Get("dev-1")
	assert.False(t, ok)
}

func TestUnregisterIgnoresReplacedConnection(t *testing.T) {
	stale := NewConnection("dev-2", "Tablet", inertConn())
	Connections.Set("dev-2", stale)

	fresh := NewConnection("dev-2", "Tablet", inertConn())
	Connections.Set("dev-2", fresh)

	// A disconnect goroutine for the stale connection must not evict fresh.
	Unregister("dev-2", stale)

	got, ok := Connections.Get("dev-2")
	require.True(t, ok)
	assert.Same(t, fresh, got)

	Unregister("dev-2", fresh)
}

func TestPairingCodeRedeemIsSingleUse(t *testing.T) {
	code := NewPairingCode("dev-3", "Watch")

	pending, ok := RedeemPairingCode(code)
	require.True(t, ok)
	assert.Equal(t, "dev-3", pending.DeviceID)
	assert.Equal(t, "Watch", pending.Name)

	_, ok = RedeemPairingCode(code)
	assert.False(t, ok, "a code must not be redeemable twice")
}

func TestPairingCodeExpires(t *testing.T) {
	const code = "424242"
	Pairings.Set(code, PendingPairing{DeviceID: "dev-4", Name: "Old", ExpiresAt: time.Now().Add(-time.Second)})

	_, ok := RedeemPairingCode(code)
	assert.False(t, ok, "an expired code must be rejected")
	_, stillThere := Pairings.Get(code)
	assert.False(t, stillThere, "redeeming an expired code still consumes it")
}

func TestSweepExpiredPairings(t *testing.T) {
	Pairings.Set("111111", PendingPairing{DeviceID: "dev-5", ExpiresAt: time.Now().Add(-time.Minute)})
	Pairings.Set("222222", PendingPairing{DeviceID: "dev-6", ExpiresAt: time.Now().Add(time.Minute)})

	SweepExpiredPairings()

	_, expiredStillThere := Pairings.Get("111111")
	assert.False(t, expiredStillThere)
	_, liveStillThere := Pairings.Get("222222")
	assert.True(t, liveStillThere)

	RemovePairingsForDevice("dev-6")
}

func TestAwaitReplyFulfilled(t *testing.T) {
	const cmdID = "cmd-1"
	want := protocol.CommandResponse{ID: cmdID, Status: protocol.StatusOK}

	go func() {
		time.Sleep(10 * time.Millisecond)
		FulfillReply(want)
	}()

	got, err := AwaitReply(context.Background(), cmdID, time.Second, func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAwaitReplyTimesOut(t *testing.T) {
	_, err := AwaitReply(context.Background(), "cmd-2", 10*time.Millisecond, func() error { return nil })
	assert.ErrorIs(t, err, ErrReplyTimeout)

	_, stillPending := PendingCommands.Get("cmd-2")
	assert.False(t, stillPending, "the reply slot must not leak after timeout")
}

func TestAwaitReplyPropagatesOnReadyError(t *testing.T) {
	sendErr := assert.AnError
	_, err := AwaitReply(context.Background(), "cmd-3", time.Second, func() error { return sendErr })
	assert.ErrorIs(t, err, sendErr)
}

func TestFulfillReplyDropsUnknownID(t *testing.T) {
	// Must not panic even though no slot is registered for this ID.
	FulfillReply(protocol.CommandResponse{ID: "never-registered"})
}

func TestEventBusDeliversPublishedEvent(t *testing.T) {
	sub, unsubscribe := SubscribeEvents()
	defer unsubscribe()

	PublishEvent(protocol.ClientEvent{Event: protocol.EventDeviceConnected, DeviceID: "dev-7"})

	select {
	case ev := <-sub:
		assert.Equal(t, "dev-7", ev.DeviceID)
	case <-time.After(time.Second):
		t.Fatal("expected to receive the published event")
	}
}

func TestEventBusPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	sub, unsubscribe := SubscribeEvents()
	defer unsubscribe()

	for i := 0; i < eventBufferSize+10; i++ {
		PublishEvent(protocol.ClientEvent{Event: protocol.EventDevicePaired, DeviceID: "dev-8"})
	}

	// Publishing past the buffer must never block the publisher; the
	// subscriber still sees at least one event afterwards.
	select {
	case <-sub:
	default:
		t.Fatal("expected at least one buffered event to survive")
	}
}
