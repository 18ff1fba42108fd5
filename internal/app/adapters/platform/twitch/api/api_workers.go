package api

import (
	"errors"
	"sync"
)

// Pool runs fire-and-forget API calls (moderation enforcement) on a fixed set of workers.
type Pool struct {
	wg       sync.WaitGroup
	tasks    chan func()
	shutdown chan struct{}
	once     sync.Once
}

func NewPool(workers, queueSize int) *Pool {
	p := &Pool{
		tasks:    make(chan func(), queueSize),
		shutdown: make(chan struct{}),
	}

	for range max(workers, 1) {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) Submit(task func()) (err error) {
	defer func() {
		if recover() != nil {
			err = errors.New("worker pool is stopped")
		}
	}()

	select {
	case p.tasks <- task:
		return nil
	default:
		return errors.New("worker pool queue is full")
	}
}

// Stop drains the queued tasks and waits for the workers. Safe to call twice.
func (p *Pool) Stop() {
	p.once.Do(func() {
		close(p.tasks)
		p.wg.Wait()
		close(p.shutdown)
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task()
		case <-p.shutdown:
			return
		}
	}
}
