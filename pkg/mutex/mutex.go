// Package mutex provides per-wallet mutex locking so that two concurrent
// chat requests naming the same recipient cannot race each other through
// the transfer submission path.
package mutex

import (
	"sync"
	"sync/atomic"
	"time"
)

// WalletMutex provides per-wallet mutexes with idle cleanup
type WalletMutex struct {
	mutexes    map[string]*mutexEntry
	mapMutex   sync.RWMutex
	cleanupTTL time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// mutexEntry holds a mutex and its last access time for cleanup.
// lastAccess is atomic because the fast path updates it under the read lock.
type mutexEntry struct {
	mutex      *sync.Mutex
	lastAccess atomic.Int64 // unix nanos
}

func (e *mutexEntry) touch() {
	e.lastAccess.Store(time.Now().UnixNano())
}

// New creates a new WalletMutex instance with automatic cleanup
func New(cleanupTTL time.Duration) *WalletMutex {
	wm := &WalletMutex{
		mutexes:    make(map[string]*mutexEntry),
		cleanupTTL: cleanupTTL,
		stopCh:     make(chan struct{}),
	}

	go wm.cleanup()

	return wm
}

// GetMutex returns the mutex for the given wallet, creating one if needed
func (wm *WalletMutex) GetMutex(wallet string) *sync.Mutex {
	wm.mapMutex.RLock()
	entry, exists := wm.mutexes[wallet]
	if exists {
		entry.touch()
		wm.mapMutex.RUnlock()
		return entry.mutex
	}
	wm.mapMutex.RUnlock()

	wm.mapMutex.Lock()
	defer wm.mapMutex.Unlock()

	// Double-check in case another goroutine created it
	if entry, exists := wm.mutexes[wallet]; exists {
		entry.touch()
		return entry.mutex
	}

	newEntry := &mutexEntry{mutex: &sync.Mutex{}}
	newEntry.touch()
	wm.mutexes[wallet] = newEntry

	return newEntry.mutex
}

// Size returns the number of mutexes currently stored
func (wm *WalletMutex) Size() int {
	wm.mapMutex.RLock()
	defer wm.mapMutex.RUnlock()
	return len(wm.mutexes)
}

// cleanup runs periodically to remove idle mutexes
func (wm *WalletMutex) cleanup() {
	ticker := time.NewTicker(wm.cleanupTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			wm.removeUnused()
		case <-wm.stopCh:
			return
		}
	}
}

func (wm *WalletMutex) removeUnused() {
	wm.mapMutex.Lock()
	defer wm.mapMutex.Unlock()

	now := time.Now().UnixNano()
	for wallet, entry := range wm.mutexes {
		if now-entry.lastAccess.Load() > int64(wm.cleanupTTL) {
			// Only drop mutexes that are not currently held
			if entry.mutex.TryLock() {
				entry.mutex.Unlock()
				delete(wm.mutexes, wallet)
			}
		}
	}
}

// Stop stops the cleanup goroutine
func (wm *WalletMutex) Stop() {
	wm.stopOnce.Do(func() {
		close(wm.stopCh)
	})
}
