package common

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/P5ina/open-mobile-cli/pkg/protocol"
	"github.com/P5ina/open-mobile-cli/pkg/wsmux"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// ErrReplyTimeout and ErrReplyDropped are returned by AwaitReply.
var (
	ErrReplyTimeout = errors.New("common: command timed out")
	ErrReplyDropped = errors.New("common: reply slot dropped")
)

// Connection is one live device socket: the connection table's value.
// Send/Close go through the underlying wsmux.Conn; Authenticated gates
// whether the HTTP command endpoint may target this connection directly.
type Connection struct {
	DeviceID      string
	Name          string
	Authenticated bool
	conn          *wsmux.Conn
}

func NewConnection(deviceID, name string, c *wsmux.Conn) *Connection {
	return &Connection{DeviceID: deviceID, Name: name, conn: c}
}

// SendCommand enqueues a command frame on the device's outbound queue. The
// caller must not hold any table lock while calling this; cmap operations
// here are already lock-scoped per-shard and return immediately.
func (c *Connection) SendCommand(msg []byte) error {
	return c.conn.Send(msg)
}

func (c *Connection) Close() {
	c.conn.Close()
}

// Connections is the connection table: at most one entry per device ID.
var Connections = cmap.New[*Connection]()

// Register installs conn as the live connection for deviceID. If a prior
// connection exists for the same device it is proactively closed rather
// than left to fail on its own I/O.
func Register(deviceID string, conn *Connection) {
	if prev, ok := Connections.Get(deviceID); ok {
		prev.Close()
	}
	Connections.Set(deviceID, conn)
}

// Unregister removes deviceID's entry only if it still points at conn —
// a replacement registered after a stale disconnect must not be evicted.
func Unregister(deviceID string, conn *Connection) {
	Connections.RemoveCb(deviceID, func(_ string, cur *Connection, ok bool) bool {
		return ok && cur == conn
	})
}

// --- Pairing ledger ---

// PendingPairing is a device awaiting a client to redeem its pairing code.
type PendingPairing struct {
	DeviceID  string
	Name      string
	ExpiresAt time.Time
}

// PairingCodeTTL is how long a pairing code stays redeemable before a
// sweep or a redeem attempt treats it as gone.
const PairingCodeTTL = 5 * time.Minute

// Pairings maps a 6-digit decimal code (as a string) to the device it
// belongs to.
var Pairings = cmap.New[PendingPairing]()

// NewPairingCode draws a 6-digit decimal code uniformly in [100000,999999],
// re-drawing on collision with an outstanding code, and registers it with a
// PairingCodeTTL expiry.
func NewPairingCode(deviceID, name string) string {
	for {
		code := strconvPad6(100000 + rand.Intn(900000))
		pending := PendingPairing{DeviceID: deviceID, Name: name, ExpiresAt: time.Now().Add(PairingCodeTTL)}
		if Pairings.SetIfAbsent(code, pending) {
			return code
		}
	}
}

// SweepExpiredPairings removes pairing codes past their ExpiresAt. Called
// periodically from a background goroutine started at server startup.
func SweepExpiredPairings() {
	now := time.Now()
	for item := range Pairings.IterBuffered() {
		if now.After(item.Val.ExpiresAt) {
			Pairings.Remove(item.Key)
		}
	}
}

// RedeemPairingCode atomically removes and returns the pairing for code, if
// present and not expired. Two concurrent redeems of the same code: exactly
// one succeeds.
func RedeemPairingCode(code string) (PendingPairing, bool) {
	var found PendingPairing
	var ok bool
	Pairings.RemoveCb(code, func(_ string, v PendingPairing, exists bool) bool {
		if exists && time.Now().Before(v.ExpiresAt) {
			found, ok = v, true
		}
		return exists
	})
	return found, ok
}

// RemovePairingsForDevice clears any outstanding pairing codes for a
// device — used when a connection is replaced or closes before pairing
// completes.
func RemovePairingsForDevice(deviceID string) {
	for item := range Pairings.IterBuffered() {
		if item.Val.DeviceID == deviceID {
			Pairings.Remove(item.Key)
		}
	}
}

func strconvPad6(n int) string {
	const digits = "0123456789"
	b := [6]byte{}
	for i := 5; i >= 0; i-- {
		b[i] = digits[n%10]
		n /= 10
	}
	return string(b[:])
}

// --- Pending-command ledger ---

type replySlot struct {
	ch chan protocol.CommandResponse
}

// PendingCommands maps a command ID to its single-shot reply slot.
var PendingCommands = cmap.New[replySlot]()

// AwaitReply registers a reply slot for cmdID, invokes onReady once it is
// safe to enqueue (typically: send the command over the device socket), and
// blocks until a reply arrives, the context is cancelled, or the timeout
// elapses. The slot is always removed before returning — no entry is ever
// leaked.
func AwaitReply(ctx context.Context, cmdID string, timeout time.Duration, onReady func() error) (protocol.CommandResponse, error) {
	slot := replySlot{ch: make(chan protocol.CommandResponse, 1)}
	PendingCommands.Set(cmdID, slot)
	defer PendingCommands.Remove(cmdID)

	if err := onReady(); err != nil {
		return protocol.CommandResponse{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-slot.ch:
		if !ok {
			return protocol.CommandResponse{}, ErrReplyDropped
		}
		return resp, nil
	case <-timer.C:
		return protocol.CommandResponse{}, ErrReplyTimeout
	case <-ctx.Done():
		return protocol.CommandResponse{}, ctx.Err()
	}
}

// FulfillReply delivers a response to its pending slot, if one still
// exists. An unknown ID (already timed out, or never existed) is dropped
// silently.
func FulfillReply(resp protocol.CommandResponse) {
	if slot, ok := PendingCommands.Get(resp.ID); ok {
		select {
		case slot.ch <- resp:
		default:
		}
	}
}

// --- Event bus ---

// eventSubscribers holds the lossy fan-out's subscriber channels. Each
// subscriber has a small bounded buffer; a publish that would block a
// subscriber instead drops the oldest buffered event for that subscriber,
// so the publisher itself never blocks.
var (
	subMu           sync.Mutex
	eventSubscriber = map[chan protocol.ClientEvent]struct{}{}
)

const eventBufferSize = 256

// SubscribeEvents registers a new lossy subscriber and returns its channel
// plus an unsubscribe function.
func SubscribeEvents() (<-chan protocol.ClientEvent, func()) {
	ch := make(chan protocol.ClientEvent, eventBufferSize)
	subMu.Lock()
	eventSubscriber[ch] = struct{}{}
	subMu.Unlock()

	return ch, func() {
		subMu.Lock()
		delete(eventSubscriber, ch)
		subMu.Unlock()
		close(ch)
	}
}

// PublishEvent fans an event out to every subscriber. A subscriber whose
// buffer is full has its oldest event dropped to make room — the publisher
// never blocks.
func PublishEvent(ev protocol.ClientEvent) {
	subMu.Lock()
	defer subMu.Unlock()
	for ch := range eventSubscriber {
		select {
		case ch <- ev:
		default:
			// Drop the oldest buffered event for this lagging subscriber,
			// then retry once; if it's still full just skip this publish
			// for that subscriber rather than spin.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
