package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction 交易紀錄，寫入後不可修改
// Username 記錄交易當下的帳戶名稱；Rename 會整批改寫成新名稱，
// 但 Delta / Credit / Time 永遠不變
type Transaction struct {
	// ID: 外部追蹤號 (UUID)
	ID uuid.UUID `json:"id"`
	// Username: 交易當下的帳戶名稱
	Username string `json:"username"`
	// Delta: 異動值
	Delta decimal.Decimal `json:"delta"`
	// Credit: 套用 Delta 後的餘額快照，事後不重算
	Credit decimal.Decimal `json:"credit"`
	// Time: 紀錄時間
	Time time.Time `json:"time"`
}

// NewTransaction 建立一筆交易紀錄
func NewTransaction(username string, delta, credit decimal.Decimal, now time.Time) *Transaction {
	return &Transaction{
		ID:       uuid.New(),
		Username: username,
		Delta:    delta,
		Credit:   credit,
		Time:     now,
	}
}
