package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/domain"
	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/usecase"
	"github.com/JoeShih716/go-credit-ledger/pkg/journal"
)

// journal 操作代號
const (
	opAccountInsert = "account-insert"
	opAccountUpdate = "account-update"
	opAccountDelete = "account-delete"
	opTranInsert    = "tx-insert"
	opTranRepoint   = "tx-repoint"
)

// journalEntry journal 裡的一筆紀錄
type journalEntry struct {
	Op          string              `json:"op"`
	Account     *domain.Account     `json:"account,omitempty"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
	Rename      *renameEntry        `json:"rename,omitempty"`
}

type renameEntry struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Store 是 Mutex 保護的記憶體儲存
//
// 每個方法各自是一個臨界區 (對應 Store port 的「單一原子操作」)，
// 跨方法之間不互鎖，Ledger 層的多步驟交錯行為因此得以保留
//
// 掛上 journal 後每筆已提交的變更都會落地，重啟時重放還原狀態
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	transactions []*domain.Transaction
	journal      *journal.Journal
}

// NewStore 建立記憶體儲存
// jnl 可為 nil (純記憶體，測試用)；非 nil 時先重放既有內容
func NewStore(jnl *journal.Journal) (*Store, error) {
	s := &Store{
		accounts: make(map[string]*domain.Account),
		journal:  jnl,
	}
	if jnl != nil {
		if err := s.recover(); err != nil {
			return nil, fmt.Errorf("journal replay: %w", err)
		}
	}
	return s, nil
}

// recover 重放 journal 還原記憶體狀態 (啟動期單執行緒，不加鎖)
func (s *Store) recover() error {
	return s.journal.Replay(func(raw []byte) error {
		var entry journalEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		switch entry.Op {
		case opAccountInsert, opAccountUpdate:
			account := *entry.Account
			s.accounts[account.Name] = &account
		case opAccountDelete:
			delete(s.accounts, entry.Account.Name)
		case opTranInsert:
			tran := *entry.Transaction
			s.transactions = append(s.transactions, &tran)
		case opTranRepoint:
			for _, tran := range s.transactions {
				if tran.Username == entry.Rename.Old {
					tran.Username = entry.Rename.New
				}
			}
		}
		return nil
	})
}

// append 寫入 journal，未掛 journal 時為 no-op
func (s *Store) append(entry journalEntry) error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Append(entry)
}

func (s *Store) AccountGet(ctx context.Context, name string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[name]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *Store) AccountInsertUnique(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.Name]; ok {
		return domain.ErrAccountExists
	}
	cp := *account
	if err := s.append(journalEntry{Op: opAccountInsert, Account: &cp}); err != nil {
		return err
	}
	s.accounts[cp.Name] = &cp
	return nil
}

func (s *Store) AccountUpdateFields(ctx context.Context, name string, credit decimal.Decimal, lastChanged time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[name]
	if !ok {
		return domain.ErrAccountNotFound
	}
	updated := domain.Account{Name: name, Credit: credit, LastChanged: lastChanged}
	if err := s.append(journalEntry{Op: opAccountUpdate, Account: &updated}); err != nil {
		return err
	}
	account.Credit = credit
	account.LastChanged = lastChanged
	return nil
}

func (s *Store) AccountDelete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[name]; !ok {
		return domain.ErrAccountNotFound
	}
	if err := s.append(journalEntry{Op: opAccountDelete, Account: &domain.Account{Name: name}}); err != nil {
		return err
	}
	delete(s.accounts, name)
	return nil
}

func (s *Store) AccountScanAll(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, *account)
	}
	return out, nil
}

func (s *Store) TransactionInsert(ctx context.Context, tran *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tran
	if err := s.append(journalEntry{Op: opTranInsert, Transaction: &cp}); err != nil {
		return err
	}
	s.transactions = append(s.transactions, &cp)
	return nil
}

func (s *Store) TransactionScan(ctx context.Context, username string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Transaction, 0, len(s.transactions))
	for _, tran := range s.transactions {
		if username != "" && tran.Username != username {
			continue
		}
		out = append(out, *tran)
	}
	return out, nil
}

func (s *Store) TransactionRepoint(ctx context.Context, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.append(journalEntry{Op: opTranRepoint, Rename: &renameEntry{Old: oldName, New: newName}}); err != nil {
		return err
	}
	for _, tran := range s.transactions {
		if tran.Username == oldName {
			tran.Username = newName
		}
	}
	return nil
}

var _ usecase.Store = (*Store)(nil)
