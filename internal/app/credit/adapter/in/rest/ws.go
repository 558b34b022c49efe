package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsEvent WebSocket 的訊息框架
// 伺服器推送: {"event":"accounts","data":[...]} / {"event":"credit-increased"} / {"event":"credit-decreased"}
// 客戶端請求: {"event":"getAccounts"}
type wsEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

const wsWriteTimeout = 10 * time.Second

// handleWebsocket 升級連線並開始推播
// 連上後立刻收到一份完整快照；之後每次可見狀態變更都會再收到一份
// 所有寫入都在本 goroutine 內，reader goroutine 只負責收請求
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	listener := s.notifier.Subscribe(r.Context())
	defer s.notifier.Unsubscribe(listener)

	requests := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			var msg wsEvent
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Event == "getAccounts" {
				select {
				case requests <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case accounts := <-listener.Snapshots:
			if err := s.writeEvent(conn, wsEvent{Event: "accounts", Data: accounts}); err != nil {
				return
			}
		case d := <-listener.Signals:
			if err := s.writeEvent(conn, wsEvent{Event: d.Event()}); err != nil {
				return
			}
		case <-requests:
			accounts, err := s.ledger.ListAccounts(r.Context())
			if err != nil {
				s.logger.Error("couldn't list accounts for websocket", zap.Error(err))
				continue
			}
			if err := s.writeEvent(conn, wsEvent{Event: "accounts", Data: accounts}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, event wsEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(event)
}
