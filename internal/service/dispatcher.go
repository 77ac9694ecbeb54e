package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// Task is a side-channel unit of work run after a transition committed
type Task func(ctx context.Context) error

// Dispatcher runs side-channel tasks without making the caller wait for them
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, task Task)
	Wait()
}

type asyncDispatcher struct {
	log     *logrus.Logger
	timeout time.Duration
	sem     chan struct{}
	wg      conc.WaitGroup
}

// NewAsyncDispatcher bounds concurrently running tasks to maxGoroutines.
// Each task gets a context detached from the request, limited by timeout.
func NewAsyncDispatcher(log *logrus.Logger, maxGoroutines int, timeout time.Duration) Dispatcher {
	if maxGoroutines <= 0 {
		maxGoroutines = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &asyncDispatcher{
		log:     log,
		timeout: timeout,
		sem:     make(chan struct{}, maxGoroutines),
	}
}

func (d *asyncDispatcher) Dispatch(ctx context.Context, name string, task Task) {
	detached := context.WithoutCancel(ctx)

	d.wg.Go(func() {
		d.sem <- struct{}{}
		defer func() { <-d.sem }()

		defer func() {
			if r := recover(); r != nil {
				d.log.Errorf("Side task %s panicked: %v", name, r)
			}
		}()

		taskCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()

		if err := task(taskCtx); err != nil {
			d.log.Errorf("Failed to run side task %s: %+v", name, err)
		}
	})
}

// Wait blocks until every dispatched task returned
func (d *asyncDispatcher) Wait() {
	d.wg.Wait()
}

// SyncDispatcher runs tasks inline. Used by the worker command and tests.
type SyncDispatcher struct {
	Log *logrus.Logger
}

func (d SyncDispatcher) Dispatch(ctx context.Context, name string, task Task) {
	if err := task(ctx); err != nil && d.Log != nil {
		d.Log.Errorf("Failed to run side task %s: %+v", name, err)
	}
}

func (SyncDispatcher) Wait() {}
