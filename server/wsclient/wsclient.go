// Package wsclient implements the read-only client event socket: a
// bearer-token-gated subscription to the lossy event bus.
package wsclient

import (
	"encoding/json"
	"net/http"

	ws "github.com/gorilla/websocket"

	"github.com/P5ina/open-mobile-cli/pkg/wsmux"
	"github.com/P5ina/open-mobile-cli/server/common"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handle upgrades `GET /ws/client?token=<api_key>`, rejecting with 401 if
// the token does not match apiKey, then streams ClientEvent records until
// the client disconnects. Inbound frames from the client are ignored.
func Handle(apiKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		wc := wsmux.New(conn)

		events, unsubscribe := common.SubscribeEvents()
		defer unsubscribe()

		done := make(chan struct{})
		go func() {
			wc.Run(func([]byte) {}) // client frames are ignored except close
			close(done)
		}()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				data, _ := json.Marshal(ev)
				if err := wc.Send(data); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
