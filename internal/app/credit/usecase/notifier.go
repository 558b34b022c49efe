package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-credit-ledger/internal/app/credit/domain"
)

// Direction 餘額異動方向
type Direction int

const (
	DirectionIncrease Direction = iota + 1
	DirectionDecrease
)

// Event 回傳對外的事件名稱
func (d Direction) Event() string {
	if d == DirectionDecrease {
		return "credit-decreased"
	}
	return "credit-increased"
}

// Listener 一個訂閱者
// 兩個 channel 都有緩衝；廣播時塞不進去就直接丟棄，
// 斷線或太慢的訂閱者只會在下一次廣播拿到最新狀態
type Listener struct {
	Snapshots chan []domain.Account
	Signals   chan Direction
}

const listenerBuffer = 8

// Notifier 負責把「目前完整的帳戶清單」推送給所有訂閱者
// 採訂閱者集合 + 明確 Subscribe/Unsubscribe，廣播永遠發給整個集合
//
// 快照廣播經過 wake channel 合併：連續多次變更可能只掃一次 Store，
// 訂閱者拿到的一定是廣播當下的完整狀態，不是差異量
type Notifier struct {
	store  Store
	logger *zap.Logger

	mu        sync.Mutex
	listeners map[*Listener]struct{}

	wake chan struct{}
	sigs chan Direction
	done chan struct{}
	once sync.Once
}

// NewNotifier 建立 Notifier，呼叫 Start 後才會開始廣播
func NewNotifier(store Store, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		store:     store,
		logger:    logger,
		listeners: make(map[*Listener]struct{}),
		wake:      make(chan struct{}, 1),
		sigs:      make(chan Direction, 64),
		done:      make(chan struct{}),
	}
}

// Start 啟動背景廣播迴圈
func (n *Notifier) Start() {
	go n.run()
}

// Close 停止廣播迴圈
func (n *Notifier) Close() {
	n.once.Do(func() { close(n.done) })
}

// Subscribe 註冊一個訂閱者，並立刻送出一份目前的完整快照
func (n *Notifier) Subscribe(ctx context.Context) *Listener {
	l := &Listener{
		Snapshots: make(chan []domain.Account, listenerBuffer),
		Signals:   make(chan Direction, listenerBuffer),
	}

	n.mu.Lock()
	n.listeners[l] = struct{}{}
	n.mu.Unlock()

	accounts, err := n.store.AccountScanAll(ctx)
	if err != nil {
		n.logger.Error("couldn't load initial snapshot", zap.Error(err))
		return l
	}
	l.Snapshots <- accounts
	return l
}

// Unsubscribe 移除訂閱者
func (n *Notifier) Unsubscribe(l *Listener) {
	n.mu.Lock()
	delete(n.listeners, l)
	n.mu.Unlock()
}

// NotifyChanged 通知「可見狀態變了」，觸發一次快照廣播
// 不阻塞：wake channel 已滿表示廣播已排程，重複通知直接合併
func (n *Notifier) NotifyChanged() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Signal 發送一次性的方向事件 (全域，不分帳戶)
func (n *Notifier) Signal(d Direction) {
	select {
	case n.sigs <- d:
	default:
		n.logger.Warn("signal queue full, dropping direction signal")
	}
}

func (n *Notifier) run() {
	for {
		select {
		case <-n.wake:
			n.broadcastSnapshot()
		case d := <-n.sigs:
			n.broadcastSignal(d)
		case <-n.done:
			return
		}
	}
}

// broadcastSnapshot 掃描 Store 並把完整帳戶清單發給所有訂閱者
func (n *Notifier) broadcastSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	accounts, err := n.store.AccountScanAll(ctx)
	if err != nil {
		n.logger.Error("couldn't scan accounts for broadcast", zap.Error(err))
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for l := range n.listeners {
		select {
		case l.Snapshots <- accounts:
		default:
		}
	}
}

func (n *Notifier) broadcastSignal(d Direction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for l := range n.listeners {
		select {
		case l.Signals <- d:
		default:
		}
	}
}
