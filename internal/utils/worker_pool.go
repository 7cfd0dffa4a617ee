package utils

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	logger "github.com/Gopher0727/HappyBot/middleware/log"
	"github.com/Gopher0727/HappyBot/utils/consistenthash"
)

var ErrPoolStopped = errors.New("worker pool stopped")

// WorkerPool 通用协程池
// 每个 worker 有自己的队列；同一个 key 的任务总是落到同一个 worker 上，按提交顺序执行
type WorkerPool struct {
	lanes []chan func()
	ring  *consistenthash.Ring
	next  atomic.Uint64
	log   *logger.Logger

	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorkerPool 创建一个新的协程池，queueSize 为每个 worker 的队列长度
func NewWorkerPool(workers, queueSize int, log *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if log == nil {
		log = logger.NewNop()
	}
	p := &WorkerPool{
		lanes: make([]chan func(), workers),
		log:   log,
		quit:  make(chan struct{}),
	}
	names := make([]string, workers)
	for i := range workers {
		p.lanes[i] = make(chan func(), queueSize)
		names[i] = "worker-" + strconv.Itoa(i)
	}
	p.ring = consistenthash.New(0, nil, names...)
	return p
}

// Start 启动协程池
func (p *WorkerPool) Start() {
	for i := range p.lanes {
		p.wg.Go(func() { p.work(i) })
	}
	p.log.Info("worker pool started", zap.Int("workers", len(p.lanes)), zap.Int("queue", cap(p.lanes[0])))
}

func (p *WorkerPool) work(id int) {
	jobs := p.lanes[id]
	for {
		select {
		case job := <-jobs:
			p.run(id, job)
		case <-p.quit:
			// 停止前把已排队的任务执行完
			for {
				select {
				case job := <-jobs:
					p.run(id, job)
				default:
					return
				}
			}
		}
	}
}

// run 执行单个任务，recover 防止单个任务 panic 导致 worker 挂掉
func (p *WorkerPool) run(id int, job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker panic",
				zap.Int("worker", id),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	job()
}

// Submit 提交无序任务，轮询分配到各个 worker
func (p *WorkerPool) Submit(ctx context.Context, job func()) error {
	lane := int(p.next.Add(1) % uint64(len(p.lanes)))
	return p.enqueue(ctx, lane, job)
}

// SubmitKeyed 提交有序任务：同一个 key 的任务串行执行
func (p *WorkerPool) SubmitKeyed(ctx context.Context, key string, job func()) error {
	return p.enqueue(ctx, p.Lane(key), job)
}

// Lane reports which worker runs jobs submitted under key.
func (p *WorkerPool) Lane(key string) int {
	return p.ring.Locate(key)
}

// enqueue 队列已满时阻塞，直到有空位、ctx 结束或协程池停止
func (p *WorkerPool) enqueue(ctx context.Context, lane int, job func()) error {
	select {
	case <-p.quit:
		return ErrPoolStopped
	default:
	}

	select {
	case p.lanes[lane] <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrPoolStopped
	}
}

// Stop 停止协程池，等待已提交的任务执行完毕
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	p.wg.Wait()
}
