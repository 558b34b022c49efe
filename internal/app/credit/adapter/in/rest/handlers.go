package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/domain"
)

// statusOf 把 Ledger 的錯誤種類對應到 HTTP 狀態碼
// (狀態碼沿用原始服務: 404 / 409 / 406，其餘一律 500)
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidDelta):
		return http.StatusNotAcceptable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("couldn't encode response", zap.Error(err))
	}
}

// writeResult 包裝成 {"result": ...}，沿用原始服務的回應格式
func (s *Server) writeResult(w http.ResponseWriter, v any) {
	s.writeJSON(w, map[string]any{"result": v})
}

func (s *Server) writeError(w http.ResponseWriter, path string, err error) {
	s.logger.Error("request failed", zap.String("path", path), zap.Error(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusOf(err))
	_ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		s.writeError(w, "/users/all", err)
		return
	}
	s.writeResult(w, accounts)
}

func (s *Server) handleListAllTransactions(w http.ResponseWriter, r *http.Request) {
	trans, err := s.ledger.ListTransactions(r.Context(), "")
	if err != nil {
		s.writeError(w, "/transactions/all", err)
		return
	}
	s.writeResult(w, trans)
}

func (s *Server) handleListUserTransactions(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	trans, err := s.ledger.ListTransactions(r.Context(), name)
	if err != nil {
		s.writeError(w, "/transactions/:name", err)
		return
	}
	s.writeResult(w, trans)
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	account, err := s.ledger.CreateAccount(r.Context(), req.Username)
	if err != nil {
		s.writeError(w, "/user/add", err)
		return
	}
	s.writeJSON(w, account)
}

func (s *Server) handleRenameUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		NewName  string `json:"newname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	account, err := s.ledger.RenameAccount(r.Context(), req.Username, req.NewName)
	if err != nil {
		s.writeError(w, "/user/rename", err)
		return
	}
	s.writeJSON(w, account)
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string          `json:"username"`
		Delta    decimal.Decimal `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// delta 不是數字 (含 "NaN" 之類的字串) 會在這裡被擋下
		s.writeError(w, "/user/credit", domain.ErrInvalidDelta)
		return
	}

	account, err := s.ledger.ApplyCredit(r.Context(), req.Username, req.Delta)
	if err != nil {
		s.writeError(w, "/user/credit", err)
		return
	}
	s.writeJSON(w, account)
}
