// ===== internal/oplog/oplog.go =====
package oplog

import (
	"container/list"
	"log"
	"sync"
	"time"

	"delaykiller/pkg/models"
)

const maxEntries = 100

// Log keeps a bounded in-memory history of operation outcomes so the status
// API and watch agent can show what happened recently. Oldest entries are
// dropped once the limit is reached.
type Log struct {
	entries *list.List
	mu      sync.RWMutex
}

// New creates an empty operation log
func New() *Log {
	return &Log{entries: list.New()}
}

// Record appends one operation outcome and mirrors it to the process log.
func (l *Log) Record(action string, res models.Result) {
	now := time.Now()
	entry := &models.OpRecord{
		Timestamp: now,
		UnixTime:  now.Unix(),
		Action:    action,
		Code:      res.Code,
		Message:   res.Message,
	}

	l.mu.Lock()
	if l.entries.Len() >= maxEntries {
		l.entries.Remove(l.entries.Front())
	}
	l.entries.PushBack(entry)
	l.mu.Unlock()

	log.Printf("%s -> %d: %s", action, res.Code, res.Message)
}

// Entries returns the recorded history, oldest first.
func (l *Log) Entries() []models.OpRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.OpRecord
	for e := l.entries.Front(); e != nil; e = e.Next() {
		out = append(out, *(e.Value.(*models.OpRecord)))
	}
	return out
}
