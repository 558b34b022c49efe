package mysql

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Client 封裝 GORM DB 實例
type Client struct {
	db *gorm.DB
}

// NewClient 建立並回傳一個新的 MySQL 客戶端實例 (GORM)
//
// 參數:
//
//	cfg: Config - MySQL 連線配置
//
// 回傳值:
//
//	*Client: 封裝後的 MySQL 客戶端
//	error: 若連線失敗則回傳錯誤
func NewClient(cfg Config) (*Client, error) {
	gormConfig := &gorm.Config{
		// 每個 Store 操作各自是單一原子寫入，不需要預設交易包裝
		SkipDefaultTransaction: true,
		// 把 driver 的 duplicate key 錯誤轉成 gorm.ErrDuplicatedKey，
		// 帳戶名稱的唯一性檢查靠這個判定
		TranslateError: true,
		Logger:         newLogger(cfg.LogLevel),
	}

	var db *gorm.DB
	var err error

	// 資料庫還沒就緒時重試連線
	maxRetries := 10
	retryInterval := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
		if err == nil {
			rawDB, pingErr := db.DB()
			if pingErr == nil {
				if err = rawDB.Ping(); err == nil {
					break
				}
			} else {
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			fmt.Printf("Failed to connect to MySQL (attempt %d/%d): %v. Retrying in %v...\n", i+1, maxRetries, err, retryInterval)
			time.Sleep(retryInterval)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql after %d attempts: %w", maxRetries, err)
	}

	// 取得底層 sql.DB 物件以設定連線池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.db: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}

	return &Client{db: db}, nil
}

// DB 回傳底層的 *gorm.DB 實例，供業務邏輯層使用
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Close 關閉資料庫連線
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newLogger 根據配置建立 GORM Logger
func newLogger(level string) logger.Interface {
	var logLevel logger.LogLevel
	switch level {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	case "silent":
		logLevel = logger.Silent
	default:
		logLevel = logger.Error
	}

	return logger.Default.LogMode(logLevel)
}
