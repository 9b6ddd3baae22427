package service

import (
	"fmt"
	"sync"

	"microfinance-service/internal/models"
)

// PlanLocks serializes work on one plan within this process. Row locks taken
// inside the transaction cover other processes.
type PlanLocks struct {
	mu    sync.Mutex
	locks map[string]*planLock
}

type planLock struct {
	mu   sync.Mutex
	refs int
}

// NewPlanLocks creates an empty lock table
func NewPlanLocks() *PlanLocks {
	return &PlanLocks{locks: make(map[string]*planLock)}
}

// Lock blocks until key is free and returns the matching unlock
func (l *PlanLocks) Lock(key string) func() {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &planLock{}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()

	return func() {
		lk.mu.Unlock()

		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func planKey(category models.Category, planID int) string {
	return fmt.Sprintf("%s:%d", category, planID)
}

func applyKey(category models.Category, userID int) string {
	return fmt.Sprintf("apply:%s:%d", category, userID)
}
