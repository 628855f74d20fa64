package cart

import (
	"context"
	"sync"
)

type job struct {
	run  func()
	done chan struct{}
}

// executor 单协程按提交顺序串行执行写操作
type executor struct {
	jobs      chan job
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newExecutor() *executor {
	e := &executor{
		jobs: make(chan job),
		quit: make(chan struct{}),
	}
	e.wg.Add(1)
	go e.loop()
	return e
}

func (e *executor) loop() {
	defer e.wg.Done()
	for {
		select {
		case j := <-e.jobs:
			j.run()
			close(j.done)
		case <-e.quit:
			return
		}
	}
}

// Do 提交任务并等待完成；任务一旦入队不再响应调用方取消
func (e *executor) Do(ctx context.Context, fn func(ctx context.Context)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx := context.WithoutCancel(ctx)
	j := job{
		run:  func() { fn(runCtx) },
		done: make(chan struct{}),
	}
	select {
	case e.jobs <- j:
	case <-e.quit:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-j.done
	return nil
}

// Close 停止执行协程，正在执行的任务会先完成
func (e *executor) Close() {
	e.closeOnce.Do(func() {
		close(e.quit)
	})
	e.wg.Wait()
}
