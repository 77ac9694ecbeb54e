package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// Interval for cleaning up stale mutexes
	lockCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	lockStaleThreshold = 10 * time.Minute
)

// ConsultationLocker serialises writers on the same consultation (or time slot)
// within one process. Cross-process safety comes from the version column.
type ConsultationLocker interface {
	Lock(id uuid.UUID) (unlock func())
	Stop()
}

type consultationLocker struct {
	log *logrus.Logger

	locks sync.Map // map[uuid.UUID]*mutexWithTimestamp

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// NewConsultationLocker starts the background cleanup goroutine.
// Call Stop() during graceful shutdown.
func NewConsultationLocker(log *logrus.Logger) ConsultationLocker {
	l := &consultationLocker{
		log:      log,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

func (l *consultationLocker) Lock(id uuid.UUID) func() {
	mt := l.getMutex(id)
	mt.mu.Lock()
	return func() {
		mt.lastUsed.Store(time.Now().Unix())
		mt.mu.Unlock()
	}
}

// Stop is safe to call multiple times
func (l *consultationLocker) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopChan)
		l.wg.Wait()
		l.log.Info("ConsultationLocker stopped")
	}
}

func (l *consultationLocker) getMutex(id uuid.UUID) *mutexWithTimestamp {
	mt, _ := l.locks.LoadOrStore(id, &mutexWithTimestamp{})
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

func (l *consultationLocker) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(lockCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			l.log.Debug("Lock cleanup goroutine stopping")
			return
		case <-ticker.C:
			l.cleanupStale(time.Now().Add(-lockStaleThreshold))
		}
	}
}

// cleanupStale drops mutexes unused since cutoff. lastUsed is checked while
// holding the lock so a concurrent Lock cannot slip in between.
func (l *consultationLocker) cleanupStale(cutoff time.Time) int {
	cutoffUnix := cutoff.Unix()
	var cleaned int

	l.locks.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoffUnix {
				l.locks.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		l.log.Debugf("Cleaned up %d stale consultation locks", cleaned)
	}
	return cleaned
}
