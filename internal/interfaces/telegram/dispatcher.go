package telegram

import (
	"context"
	"fmt"
	"sync"

	"rfp-bot/pkg/metrics"
	"rfp-bot/pkg/safego"
)

// Task 一次更新的处理
type Task func(ctx context.Context)

// Dispatcher 按 chat ID 哈希到固定 worker，同一会话的事件严格按到达顺序处理，
// 不同会话并行
type Dispatcher struct {
	mu      sync.RWMutex
	queues  []chan Task
	wg      sync.WaitGroup
	running bool
}

// NewDispatcher workers 为 1 时退化为全局串行
func NewDispatcher(workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	queues := make([]chan Task, workers)
	for i := range queues {
		queues[i] = make(chan Task, queueSize)
	}
	return &Dispatcher{queues: queues}
}

// Start 启动 worker；ctx 传递给每个任务
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return fmt.Errorf("dispatcher already running")
	}
	d.running = true

	for _, q := range d.queues {
		d.wg.Add(1)
		go d.work(ctx, q)
	}
	return nil
}

func (d *Dispatcher) work(ctx context.Context, q chan Task) {
	defer d.wg.Done()
	for task := range q {
		d.run(ctx, task)
	}
}

func (d *Dispatcher) run(ctx context.Context, task Task) {
	defer safego.Recovery(ctx)
	task(ctx)
}

// Submit 队列满时阻塞直到有空位或 ctx 取消；已停止或被取消时返回 false
func (d *Dispatcher) Submit(ctx context.Context, chatID int64, task Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return false
	}
	select {
	case d.queues[d.shard(chatID)] <- task:
		return true
	case <-ctx.Done():
		metrics.TelegramUpdatesTotal.WithLabelValues("dropped").Inc()
		return false
	}
}

func (d *Dispatcher) shard(chatID int64) int {
	return int(uint64(chatID) % uint64(len(d.queues)))
}

// Stop 不再接收新任务，等待已排队的任务执行完
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
