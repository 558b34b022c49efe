package nats

import (
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/domain"
	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/usecase"
)

// Relay 把每筆已落地的交易原樣轉發到 NATS
// subject 為 <prefix>.transactions；發布失敗由 Ledger 記 log，不影響帳務狀態
type Relay struct {
	nc     *nats.Conn
	prefix string
}

// Connect 連線到 NATS 並建立 Relay
func Connect(url, prefix string) (*Relay, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Relay{nc: nc, prefix: prefix}, nil
}

// Publish 轉發一筆交易 (nats 端為非同步緩衝發布，不等待落地)
func (r *Relay) Publish(tran *domain.Transaction) error {
	payload, err := json.Marshal(tran)
	if err != nil {
		return err
	}
	return r.nc.Publish(r.prefix+".transactions", payload)
}

// Close 關閉 NATS 連線
func (r *Relay) Close() {
	r.nc.Close()
}

var _ usecase.TransactionRelay = (*Relay)(nil)
