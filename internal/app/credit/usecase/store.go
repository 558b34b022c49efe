package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/domain"
)

// Store 是帳務資料的儲存介面 (Driven Port)
// 每個方法在儲存端都是單一原子操作；跨方法的順序由 Ledger 負責，
// Store 不提供跨 collection 的交易
type Store interface {
	// AccountGet 依名稱取得帳戶，不存在時回傳 domain.ErrAccountNotFound
	AccountGet(ctx context.Context, name string) (*domain.Account, error)
	// AccountInsertUnique 新增帳戶，名稱重複時回傳 domain.ErrAccountExists
	// 唯一性必須由儲存端判定，不可先查後寫
	AccountInsertUnique(ctx context.Context, account *domain.Account) error
	// AccountUpdateFields 更新帳戶的餘額與異動時間
	AccountUpdateFields(ctx context.Context, name string, credit decimal.Decimal, lastChanged time.Time) error
	// AccountDelete 刪除帳戶
	AccountDelete(ctx context.Context, name string) error
	// AccountScanAll 取得所有帳戶
	AccountScanAll(ctx context.Context) ([]domain.Account, error)

	// TransactionInsert 寫入一筆交易紀錄
	TransactionInsert(ctx context.Context, tran *domain.Transaction) error
	// TransactionScan 取得交易紀錄，username 為空字串時回傳全部
	TransactionScan(ctx context.Context, username string) ([]domain.Transaction, error)
	// TransactionRepoint 將 oldName 名下的所有交易改掛到 newName
	TransactionRepoint(ctx context.Context, oldName, newName string) error
}

// TransactionRelay 是交易轉發介面 (Driven Port)
// 轉發失敗只記 log，不影響已寫入的帳務狀態
type TransactionRelay interface {
	Publish(tran *domain.Transaction) error
}
