package push

import (
	"encoding/json"
	"net/http"
	"time"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeDeadline = 10 * time.Second

// ServeWebSocket upgrades an HTTP request to a websocket connection
// and streams every Bus event to it until the client disconnects or
// the connection write fails.
func (b *Bus) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		gethlog.Warn("push: websocket upgrade failed", "component", "push", "err", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := b.Subscribe()
	defer unsubscribe()

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			gethlog.Error("push: failed to marshal event for websocket client", "component", "push", "err", err)
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
