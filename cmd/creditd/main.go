package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	rest_adapter "github.com/JoeShih716/go-credit-ledger/internal/app/credit/adapter/in/rest"
	memory_adapter "github.com/JoeShih716/go-credit-ledger/internal/app/credit/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-credit-ledger/internal/app/credit/adapter/out/mysql"
	nats_adapter "github.com/JoeShih716/go-credit-ledger/internal/app/credit/adapter/out/nats"
	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/usecase"
	"github.com/JoeShih716/go-credit-ledger/pkg/journal"
	"github.com/JoeShih716/go-credit-ledger/pkg/mysql"
)

// 支援的 Store 後端
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

type Config struct {
	Server struct {
		Addr      string `yaml:"addr"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"server"`
	Store   string `yaml:"store"`
	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
	MySQL mysql.Config `yaml:"mysql"`
	NATS  struct {
		Enable bool   `yaml:"enable"`
		URL    string `yaml:"url"`
		Prefix string `yaml:"prefix"`
	} `yaml:"nats"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

func main() {
	// 1. 載入設定
	cfg := loadConfig()

	// 2. 初始化 Logger
	logger := newLogger(cfg)
	defer logger.Sync() //nolint:errcheck

	// 3. 初始化 Store (Driven Adapter)
	var store usecase.Store
	switch cfg.Store {
	case StoreMySQL:
		dbClient, err := mysql.NewClient(cfg.MySQL)
		if err != nil {
			logger.Fatal("Failed to connect to MySQL", zap.Error(err))
		}
		defer dbClient.Close()
		logger.Info("Connected to MySQL successfully")

		mysqlStore := mysql_adapter.NewStore(dbClient)
		if err := mysqlStore.Migrate(); err != nil {
			logger.Fatal("Failed to migrate tables", zap.Error(err))
		}
		store = mysqlStore
	case StoreMemory:
		jnl, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Fatal("Failed to open journal", zap.Error(err))
		}
		defer jnl.Close()

		memStore, err := memory_adapter.NewStore(jnl)
		if err != nil {
			logger.Fatal("Failed to init memory store", zap.Error(err))
		}
		store = memStore
	default:
		logger.Fatal("Invalid store backend", zap.String("store", cfg.Store))
	}

	// 4. 初始化 NATS Relay (可選)
	var relay usecase.TransactionRelay
	if cfg.NATS.Enable {
		natsRelay, err := nats_adapter.Connect(cfg.NATS.URL, cfg.NATS.Prefix)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsRelay.Close()
		relay = natsRelay
		logger.Info("Connected to NATS successfully", zap.String("prefix", cfg.NATS.Prefix))
	}

	// 5. 初始化 UseCase
	notifier := usecase.NewNotifier(store, logger)
	notifier.Start()
	defer notifier.Close()

	ledger := usecase.NewLedger(store, notifier, relay, logger)

	// 6. 初始化 HTTP Adapter (Driving Adapter) 並啟動
	server := rest_adapter.NewServer(ledger, notifier, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Router(cfg.Server.StaticDir),
	}

	go func() {
		logger.Info("Server started!", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down. Good bye!")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("Server exited")
}

func loadConfig() Config {
	cfgData, err := os.ReadFile("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	// 補全預設配置 (如果 yaml 沒寫)
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Store == "" {
		cfg.Store = StoreMemory
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = "credit.journal"
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://127.0.0.1:4222"
	}
	if cfg.NATS.Prefix == "" {
		cfg.NATS.Prefix = "credit"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.MySQL.ConnMaxLifetime == 0 {
		cfg.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	return cfg
}

// newLogger 建立 zap logger，可同時輸出到 stdout 與檔案
func newLogger(cfg Config) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if cfg.Log.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Log.Level)
		if err != nil {
			log.Fatalf("Invalid log level %q: %v", cfg.Log.Level, err)
		}
		zapCfg.Level = level
	}
	zapCfg.OutputPaths = []string{"stdout"}
	if cfg.Log.File != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.Log.File)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	return logger
}
