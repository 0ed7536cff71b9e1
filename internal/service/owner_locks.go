package service

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ownerLocks serializes operations per owner inside this process. Owners
// hashing to the same stripe share a mutex. A nil *ownerLocks locks nothing.
type ownerLocks struct {
	stripes []sync.Mutex
}

func newOwnerLocks(n int) *ownerLocks {
	if n <= 0 {
		return nil
	}
	return &ownerLocks{stripes: make([]sync.Mutex, n)}
}

func (l *ownerLocks) lock(ownerID string) func() {
	if l == nil {
		return func() {}
	}
	m := &l.stripes[xxhash.Sum64String(ownerID)%uint64(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
