package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/usecase"
)

// Server 是 HTTP façade (Driving Adapter)
// 只負責把請求轉成 Ledger 操作、把結果轉成回應，不帶業務邏輯
type Server struct {
	ledger   *usecase.Ledger
	notifier *usecase.Notifier
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewServer(ledger *usecase.Ledger, notifier *usecase.Notifier, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		upgrader: websocket.Upgrader{
			// 前端直接用瀏覽器連，不限制來源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router 組出路由
// staticDir 非空時在根路徑掛上靜態檔案
func (s *Server) Router(staticDir string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/users/all", s.handleListAccounts).Methods(http.MethodGet)
	r.HandleFunc("/transactions/all", s.handleListAllTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{name}", s.handleListUserTransactions).Methods(http.MethodGet)
	r.HandleFunc("/user/add", s.handleAddUser).Methods(http.MethodPost)
	r.HandleFunc("/user/rename", s.handleRenameUser).Methods(http.MethodPost)
	r.HandleFunc("/user/credit", s.handleCredit).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWebsocket)

	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}

	r.Use(corsMiddleware)
	return r
}

// corsMiddleware 對應原始服務開放跨來源查詢的行為
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "X-Requested-With")
		next.ServeHTTP(w, r)
	})
}
