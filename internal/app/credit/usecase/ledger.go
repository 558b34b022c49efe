package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/domain"
)

// Ledger 是核心業務邏輯層
// 負責維護「帳戶餘額」與「交易紀錄」之間的一致性規則：
// 餘額只能透過 ApplyCredit 變動、名稱只能透過 RenameAccount 變動
//
// 注意：多步驟操作 (Rename 四步、ApplyCredit 兩步) 不持有跨步驟的鎖，
// 每一步在 Store 端各自原子，整體順序可能與其他請求交錯
type Ledger struct {
	store    Store
	notifier *Notifier
	relay    TransactionRelay
	logger   *zap.Logger
}

// NewLedger 建立 Ledger
// notifier 與 relay 可為 nil (測試或關閉轉發時)
func NewLedger(store Store, notifier *Notifier, relay TransactionRelay, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:    store,
		notifier: notifier,
		relay:    relay,
		logger:   logger,
	}
}

// CreateAccount 建立初始餘額為 0 的帳戶
// 名稱重複時回傳 domain.ErrAccountExists，由 Store 的唯一性檢查判定
// (不先查後寫，避免 read-then-write race)
func (l *Ledger) CreateAccount(ctx context.Context, name string) (*domain.Account, error) {
	account := domain.NewAccount(name, time.Now())
	if err := l.store.AccountInsertUnique(ctx, account); err != nil {
		return nil, err
	}
	l.logger.Info("account created", zap.String("name", name))
	l.notifyChanged()
	return account, nil
}

// GetAccount 依名稱取得帳戶
func (l *Ledger) GetAccount(ctx context.Context, name string) (*domain.Account, error) {
	return l.store.AccountGet(ctx, name)
}

// ListAccounts 取得所有帳戶，順序不保證
func (l *Ledger) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return l.store.AccountScanAll(ctx)
}

// ListTransactions 取得交易紀錄，username 為空字串時回傳全部
func (l *Ledger) ListTransactions(ctx context.Context, username string) ([]domain.Transaction, error) {
	return l.store.TransactionScan(ctx, username)
}

// RenameAccount 將帳戶連同歷史交易轉移到新名稱：
//  1. 查舊帳戶，不存在回傳 ErrAccountNotFound
//  2. 以舊餘額新增新帳戶，名稱被占用回傳 ErrAccountExists 並中止 (舊帳戶不動)
//  3. 刪除舊帳戶
//  4. 將舊名稱名下的交易整批改掛到新名稱
//
// 步驟 2 成功後即視為改名成功；3、4 失敗只記 error log 不回滾
// (餘額已複製到新名稱，修復交由外部對帳程序)
func (l *Ledger) RenameAccount(ctx context.Context, oldName, newName string) (*domain.Account, error) {
	old, err := l.store.AccountGet(ctx, oldName)
	if err != nil {
		return nil, err
	}

	renamed := &domain.Account{
		Name:        newName,
		Credit:      old.Credit,
		LastChanged: time.Now(),
	}
	if err := l.store.AccountInsertUnique(ctx, renamed); err != nil {
		return nil, err
	}

	if err := l.store.AccountDelete(ctx, oldName); err != nil {
		l.logger.Error("rename: couldn't delete old account",
			zap.String("old", oldName), zap.String("new", newName), zap.Error(err))
	}
	if err := l.store.TransactionRepoint(ctx, oldName, newName); err != nil {
		l.logger.Error("rename: couldn't repoint transactions",
			zap.String("old", oldName), zap.String("new", newName), zap.Error(err))
	}

	l.logger.Info("account renamed", zap.String("old", oldName), zap.String("new", newName))
	l.notifyChanged()
	return renamed, nil
}

// ApplyCredit 套用一筆餘額異動：
//  1. 驗證 delta 落在 (-100, 100)
//  2. 查帳戶
//  3. 計算 round2(credit + delta)
//  4. 寫入交易紀錄
//  5. 更新帳戶餘額
//
// 步驟 4、5 各自原子但未包在同一個交易內；5 失敗時交易已落地，
// 只記 error log 並視為成功 (不一致窗口交由外部對帳)
func (l *Ledger) ApplyCredit(ctx context.Context, name string, delta decimal.Decimal) (*domain.Account, error) {
	if !domain.ValidDelta(delta) {
		return nil, domain.ErrInvalidDelta
	}

	account, err := l.store.AccountGet(ctx, name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	newCredit := account.Apply(delta)
	tran := domain.NewTransaction(name, delta, newCredit, now)

	if err := l.store.TransactionInsert(ctx, tran); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	l.relayTransaction(tran)

	if err := l.store.AccountUpdateFields(ctx, name, newCredit, now); err != nil {
		// 交易已落地但餘額沒跟上，屬已知的不一致窗口
		l.logger.Error("couldn't update credit after recording transaction",
			zap.String("name", name), zap.String("delta", delta.String()), zap.Error(err))
	}

	account.Credit = newCredit
	account.LastChanged = now

	l.logger.Info("credit changed",
		zap.String("name", name),
		zap.String("delta", delta.String()),
		zap.String("credit", newCredit.String()))

	if l.notifier != nil {
		if delta.IsNegative() {
			l.notifier.Signal(DirectionDecrease)
		} else {
			l.notifier.Signal(DirectionIncrease)
		}
	}
	l.notifyChanged()
	return account, nil
}

// notifyChanged 觸發快照廣播 (fire-and-forget，不阻塞請求)
func (l *Ledger) notifyChanged() {
	if l.notifier != nil {
		l.notifier.NotifyChanged()
	}
}

// relayTransaction 將交易轉發到外部通道，失敗只記 log
func (l *Ledger) relayTransaction(tran *domain.Transaction) {
	if l.relay == nil {
		return
	}
	if err := l.relay.Publish(tran); err != nil {
		l.logger.Error("couldn't relay transaction",
			zap.String("id", tran.ID.String()), zap.Error(err))
	}
}
