package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditScale 餘額精度：小數點後 2 位
const CreditScale = 2

// deltaLimit 單筆異動上限 (開區間 -100 < delta < 100)
var deltaLimit = decimal.NewFromInt(100)

// Account 帳戶
// Name 為唯一識別，建立後只能透過 Rename 變更
type Account struct {
	Name        string          `json:"name"`
	Credit      decimal.Decimal `json:"credit"`
	LastChanged time.Time       `json:"lastchanged"`
}

// NewAccount 建立初始餘額為 0 的帳戶
func NewAccount(name string, now time.Time) *Account {
	return &Account{
		Name:        name,
		Credit:      decimal.Zero,
		LastChanged: now,
	}
}

// Apply 套用一筆異動，回傳四捨五入至 2 位的新餘額
// 不直接修改 Account，由呼叫端決定何時寫回
func (a *Account) Apply(delta decimal.Decimal) decimal.Decimal {
	return a.Credit.Add(delta).Round(CreditScale)
}

// ValidDelta 檢查異動值是否落在 (-100, 100) 開區間
// 邊界值 100 / -100 視為不合法
func ValidDelta(delta decimal.Decimal) bool {
	return delta.Abs().LessThan(deltaLimit)
}
