package kafkaconsumer

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// revisionDedupe remembers the newest revision applied per dataset.
type revisionDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func newRevisionDedupe(size int) *revisionDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, uint64](size)
	return &revisionDedupe{lru: c}
}

// stale reports whether rev is not newer than the last applied revision.
func (d *revisionDedupe) stale(dataset string, rev uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lru.Get(dataset)
	return ok && rev <= last
}

// record is called once the event was applied, so a failed reload is
// retried on redelivery.
func (d *revisionDedupe) record(dataset string, rev uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(dataset); ok && rev <= last {
		return
	}
	d.lru.Add(dataset, rev)
}

func (d *revisionDedupe) forget(dataset string) {
	d.mu.Lock()
	d.lru.Remove(dataset)
	d.mu.Unlock()
}
