package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nugget/leapctl/internal/bridgemodel"
)

// deviceStateMsg is the JSON frame pushed to connected dashboard pages
// whenever a device reports a new state.
type deviceStateMsg struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard is same-origin only; a browser UI has no cross-origin
	// reason to open this socket. CheckOrigin is left nil, so the
	// upgrader's default rejects requests whose Origin host differs
	// from the request's Host.
}

// hub fans device updates out to every open dashboard websocket.
type hub struct {
	logger     *slog.Logger
	mu         sync.Mutex
	clients    map[*websocket.Conn]chan deviceStateMsg
	broadcastC chan deviceStateMsg
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger:     logger,
		clients:    make(map[*websocket.Conn]chan deviceStateMsg),
		broadcastC: make(chan deviceStateMsg, 64),
	}
}

func (h *hub) broadcastDevice(d *bridgemodel.Device) {
	msg := deviceStateMsg{ID: d.ID, Name: d.Name, Level: d.CurrentLevel}
	select {
	case h.broadcastC <- msg:
	default:
		h.logger.Warn("web hub broadcast channel full, dropping update", "device_id", d.ID)
	}
}

func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.broadcastC:
			h.mu.Lock()
			for _, c := range h.clients {
				select {
				case c <- msg:
				default:
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	out := make(chan deviceStateMsg, 16)
	h.mu.Lock()
	h.clients[conn] = out
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	go h.readPump(conn)

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-out:
			if !ok {
				return
			}
			b, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames; it exists only to surface close
// events and keep the read deadline alive via pong handling.
func (h *hub) readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
