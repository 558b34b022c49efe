package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/domain"
	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/usecase"
	"github.com/JoeShih716/go-credit-ledger/pkg/mysql"
)

// sqlAccount 對應資料庫的 accounts 表
// Name 為主鍵，插入重複名稱時由資料庫回報 duplicate key
type sqlAccount struct {
	Name        string          `gorm:"primaryKey;size:64"`
	Credit      decimal.Decimal `gorm:"type:decimal(12,2)"`
	LastChanged time.Time       `gorm:"column:last_changed"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction 對應資料庫的 transactions 表
type sqlTransaction struct {
	ID       int64           `gorm:"primaryKey;autoIncrement"`
	RefID    []byte          `gorm:"column:ref_id;type:binary(16);uniqueIndex"`
	Username string          `gorm:"size:64;index"`
	Delta    decimal.Decimal `gorm:"type:decimal(5,2)"`
	Credit   decimal.Decimal `gorm:"type:decimal(12,2)"`
	Time     time.Time
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

// Store 是以 MySQL 為後端的儲存實作
// 每個方法對應一條 SQL，各自原子；不做跨表交易
type Store struct {
	client *mysql.Client
}

func NewStore(client *mysql.Client) *Store {
	return &Store{
		client: client,
	}
}

// Migrate 建立資料表
func (s *Store) Migrate() error {
	return s.client.DB().AutoMigrate(&sqlAccount{}, &sqlTransaction{})
}

func (s *Store) AccountGet(ctx context.Context, name string) (*domain.Account, error) {
	var row sqlAccount
	err := s.client.DB().WithContext(ctx).Where("name = ?", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) AccountInsertUnique(ctx context.Context, account *domain.Account) error {
	row := sqlAccount{
		Name:        account.Name,
		Credit:      account.Credit,
		LastChanged: account.LastChanged,
	}
	err := s.client.DB().WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAccountExists
	}
	return err
}

func (s *Store) AccountUpdateFields(ctx context.Context, name string, credit decimal.Decimal, lastChanged time.Time) error {
	return s.client.DB().WithContext(ctx).
		Model(&sqlAccount{}).
		Where("name = ?", name).
		Updates(map[string]any{
			"credit":       credit,
			"last_changed": lastChanged,
		}).Error
}

func (s *Store) AccountDelete(ctx context.Context, name string) error {
	return s.client.DB().WithContext(ctx).
		Where("name = ?", name).
		Delete(&sqlAccount{}).Error
}

func (s *Store) AccountScanAll(ctx context.Context) ([]domain.Account, error) {
	var rows []sqlAccount
	if err := s.client.DB().WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) TransactionInsert(ctx context.Context, tran *domain.Transaction) error {
	row := sqlTransaction{
		RefID:    tran.ID[:],
		Username: tran.Username,
		Delta:    tran.Delta,
		Credit:   tran.Credit,
		Time:     tran.Time,
	}
	return s.client.DB().WithContext(ctx).Create(&row).Error
}

func (s *Store) TransactionScan(ctx context.Context, username string) ([]domain.Transaction, error) {
	query := s.client.DB().WithContext(ctx).Order("id")
	if username != "" {
		query = query.Where("username = ?", username)
	}
	var rows []sqlTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		tran, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *tran)
	}
	return out, nil
}

func (s *Store) TransactionRepoint(ctx context.Context, oldName, newName string) error {
	return s.client.DB().WithContext(ctx).
		Model(&sqlTransaction{}).
		Where("username = ?", oldName).
		Update("username", newName).Error
}

func (row *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		Name:        row.Name,
		Credit:      row.Credit,
		LastChanged: row.LastChanged,
	}
}

func (row *sqlTransaction) toDomain() (*domain.Transaction, error) {
	id, err := uuid.FromBytes(row.RefID)
	if err != nil {
		return nil, err
	}
	return &domain.Transaction{
		ID:       id,
		Username: row.Username,
		Delta:    row.Delta,
		Credit:   row.Credit,
		Time:     row.Time,
	}, nil
}

var _ usecase.Store = (*Store)(nil)
