package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	rest_adapter "github.com/JoeShih716/go-credit-ledger/internal/app/credit/adapter/in/rest"
	memory_adapter "github.com/JoeShih716/go-credit-ledger/internal/app/credit/adapter/out/memory"
	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/domain"
	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/usecase"
)

// newTestServer 起一個掛記憶體儲存的完整 HTTP 服務
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := memory_adapter.NewStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	notifier := usecase.NewNotifier(store, nil)
	notifier.Start()
	t.Cleanup(notifier.Close)

	ledger := usecase.NewLedger(store, notifier, nil, nil)
	server := rest_adapter.NewServer(ledger, notifier, nil)

	ts := httptest.NewServer(server.Router(""))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeAccount(t *testing.T, resp *http.Response) domain.Account {
	t.Helper()
	defer resp.Body.Close()
	var account domain.Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		t.Fatal(err)
	}
	return account
}

// TestAddUser 建帳回傳帳戶，重複建帳回 409
func TestAddUser(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/user/add", map[string]any{"username": "alice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	account := decodeAccount(t, resp)
	if account.Name != "alice" || !account.Credit.IsZero() {
		t.Fatalf("account = %+v", account)
	}

	resp = postJSON(t, ts, "/user/add", map[string]any{"username": "alice"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", resp.StatusCode)
	}
}

// TestCreditFlow 走完整個異動流程並驗證查詢端點
func TestCreditFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/user/add", map[string]any{"username": "x"})
	resp.Body.Close()

	for _, delta := range []float64{50, -30, 10} {
		resp := postJSON(t, ts, "/user/credit", map[string]any{"username": "x", "delta": delta})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("credit %v status = %d, want 200", delta, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// 最後一次異動的回應帶更新後餘額
	resp = postJSON(t, ts, "/user/credit", map[string]any{"username": "x", "delta": 0.5})
	account := decodeAccount(t, resp)
	if want := decimal.RequireFromString("30.5"); !account.Credit.Equal(want) {
		t.Fatalf("credit = %s, want %s", account.Credit, want)
	}

	// /users/all 包在 {"result": ...} 裡
	getResp, err := http.Get(ts.URL + "/users/all")
	if err != nil {
		t.Fatal(err)
	}
	defer getResp.Body.Close()
	var users struct {
		Result []domain.Account `json:"result"`
	}
	if err := json.NewDecoder(getResp.Body).Decode(&users); err != nil {
		t.Fatal(err)
	}
	if len(users.Result) != 1 || users.Result[0].Name != "x" {
		t.Fatalf("users = %+v", users.Result)
	}

	// 帳戶名下的交易
	transResp, err := http.Get(ts.URL + "/transactions/x")
	if err != nil {
		t.Fatal(err)
	}
	defer transResp.Body.Close()
	var trans struct {
		Result []domain.Transaction `json:"result"`
	}
	if err := json.NewDecoder(transResp.Body).Decode(&trans); err != nil {
		t.Fatal(err)
	}
	if len(trans.Result) != 4 {
		t.Fatalf("transactions = %d, want 4", len(trans.Result))
	}
}

// TestCreditErrors 錯誤種類對應到原始服務的狀態碼
func TestCreditErrors(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/user/add", map[string]any{"username": "alice"})
	resp.Body.Close()

	// 不存在的帳戶 → 404
	resp = postJSON(t, ts, "/user/credit", map[string]any{"username": "ghost", "delta": 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown user status = %d, want 404", resp.StatusCode)
	}

	// 邊界值與超界 → 406
	for _, delta := range []float64{100, -100, 500} {
		resp = postJSON(t, ts, "/user/credit", map[string]any{"username": "alice", "delta": delta})
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotAcceptable {
			t.Fatalf("delta %v status = %d, want 406", delta, resp.StatusCode)
		}
	}

	// 非數字 → 406
	resp = postJSON(t, ts, "/user/credit", map[string]any{"username": "alice", "delta": "NaN"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotAcceptable {
		t.Fatalf("NaN status = %d, want 406", resp.StatusCode)
	}

	// 99.999 合法
	resp = postJSON(t, ts, "/user/credit", map[string]any{"username": "alice", "delta": 99.999})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("99.999 status = %d, want 200", resp.StatusCode)
	}
	account := decodeAccount(t, resp)
	if want := decimal.RequireFromString("100"); !account.Credit.Equal(want) {
		t.Fatalf("credit = %s, want %s", account.Credit, want)
	}
}

// TestRenameUser 改名成功與衝突
func TestRenameUser(t *testing.T) {
	ts := newTestServer(t)

	postJSON(t, ts, "/user/add", map[string]any{"username": "alice"}).Body.Close()
	postJSON(t, ts, "/user/add", map[string]any{"username": "bob"}).Body.Close()
	postJSON(t, ts, "/user/credit", map[string]any{"username": "alice", "delta": 12.3}).Body.Close()

	// 撞名 → 409
	resp := postJSON(t, ts, "/user/rename", map[string]any{"username": "alice", "newname": "bob"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("conflict status = %d, want 409", resp.StatusCode)
	}

	// 不存在 → 404
	resp = postJSON(t, ts, "/user/rename", map[string]any{"username": "ghost", "newname": "carol"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", resp.StatusCode)
	}

	// 正常改名
	resp = postJSON(t, ts, "/user/rename", map[string]any{"username": "alice", "newname": "carol"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename status = %d, want 200", resp.StatusCode)
	}
	account := decodeAccount(t, resp)
	if account.Name != "carol" {
		t.Fatalf("renamed name = %s, want carol", account.Name)
	}
	if want := decimal.RequireFromString("12.3"); !account.Credit.Equal(want) {
		t.Fatalf("renamed credit = %s, want %s", account.Credit, want)
	}

	// 歷史交易跟著搬家
	transResp, err := http.Get(ts.URL + "/transactions/carol")
	if err != nil {
		t.Fatal(err)
	}
	defer transResp.Body.Close()
	var trans struct {
		Result []domain.Transaction `json:"result"`
	}
	if err := json.NewDecoder(transResp.Body).Decode(&trans); err != nil {
		t.Fatal(err)
	}
	if len(trans.Result) != 1 {
		t.Fatalf("carol transactions = %d, want 1", len(trans.Result))
	}
}

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(3 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var frame wsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

// TestWebsocket 連上後先收初始快照，變更後收到新快照與方向事件
func TestWebsocket(t *testing.T) {
	ts := newTestServer(t)

	postJSON(t, ts, "/user/add", map[string]any{"username": "alice"}).Body.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// 初始快照
	frame := readFrame(t, conn)
	if frame.Event != "accounts" {
		t.Fatalf("first event = %q, want accounts", frame.Event)
	}
	var accounts []domain.Account
	if err := json.Unmarshal(frame.Data, &accounts); err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 || accounts[0].Name != "alice" {
		t.Fatalf("initial accounts = %+v", accounts)
	}

	// getAccounts 請求會再推一份快照
	if err := conn.WriteJSON(map[string]string{"event": "getAccounts"}); err != nil {
		t.Fatal(err)
	}
	frame = readFrame(t, conn)
	if frame.Event != "accounts" {
		t.Fatalf("getAccounts reply = %q, want accounts", frame.Event)
	}

	// 異動後收到方向事件與快照 (順序不保證)
	postJSON(t, ts, "/user/credit", map[string]any{"username": "alice", "delta": 5}).Body.Close()

	sawSignal, sawSnapshot := false, false
	for i := 0; i < 4 && !(sawSignal && sawSnapshot); i++ {
		frame = readFrame(t, conn)
		switch frame.Event {
		case "credit-increased":
			sawSignal = true
		case "accounts":
			sawSnapshot = true
		default:
			t.Fatalf("unexpected event %q", frame.Event)
		}
	}
	if !sawSignal || !sawSnapshot {
		t.Fatalf("signal=%v snapshot=%v, want both", sawSignal, sawSnapshot)
	}
}
