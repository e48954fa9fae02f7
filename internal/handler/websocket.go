// Realtime 채널 (GET /api/v1/ws)
//
// 연결 직후 hello 프레임을 보내고, 이후 Hub 이벤트를 그대로 전달
// 재연결 시 놓친 이벤트는 보내지 않음: client는 GET /api/v1/incidents로 재동기화

package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kube-rca/remediator/internal/observability"
	"github.com/kube-rca/remediator/internal/service"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// helloFrame - 연결 직후 1회 전송
type helloFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type RealtimeHandler struct {
	hub      *service.Hub
	upgrader websocket.Upgrader
}

// NewRealtimeHandler - allowedOrigins가 비어 있으면 모든 origin 허용
func NewRealtimeHandler(hub *service.Hub, allowedOrigins []string) *RealtimeHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(origins) == 0 || origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// Serve godoc
// @Summary Realtime incident updates (WebSocket)
// @Tags realtime
// @Router /api/v1/ws [get]
func (h *RealtimeHandler) Serve(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Realtime] Failed to upgrade websocket: %v", err)
		return
	}
	defer ws.Close()

	sub := h.hub.Subscribe()
	defer sub.Close()

	observability.WebsocketClients.Inc()
	defer observability.WebsocketClients.Dec()

	sessionID := uuid.NewString()
	log.Printf("[Realtime] Client connected (session=%s, remote=%s)", sessionID, c.ClientIP())
	defer log.Printf("[Realtime] Client disconnected (session=%s)", sessionID)

	if err := write(ws, helloFrame{Type: "hello", SessionID: sessionID}); err != nil {
		return
	}

	// client -> server 메시지는 사용하지 않음, 연결 종료 감지용으로만 읽음
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := write(ws, ev); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func write(ws *websocket.Conn, v any) error {
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := ws.WriteJSON(v); err != nil {
		log.Printf("[Realtime] Failed to write frame: %v", err)
		return err
	}
	return nil
}
