package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var bodyBucket = []byte("bodies")

// bodyStore keeps fetched bodies in memory until memoryBudget bytes
// are held, then spools further bodies to a bbolt file created lazily
// under spillDir. The file lives for the process only; Close removes
// it. Readers never see the difference.
type bodyStore struct {
	mu           sync.RWMutex
	memoryBudget int64
	memoryUsed   int64
	inMemory     map[string][]byte

	spillDir  string
	spillPath string
	db        *bbolt.DB
}

func newBodyStore(memoryBudget int64, spillDir string) (*bodyStore, error) {
	if spillDir == "" {
		spillDir = os.TempDir()
	}
	return &bodyStore{
		memoryBudget: memoryBudget,
		inMemory:     make(map[string][]byte),
		spillDir:     spillDir,
	}, nil
}

// openSpill creates the bbolt file on first need.
// Caller must hold b.mu.
func (b *bodyStore) openSpill() error {
	if b.db != nil {
		return nil
	}
	b.spillPath = filepath.Join(b.spillDir, fmt.Sprintf("site-auditor-bodies-%d.db", os.Getpid()))
	db, err := bbolt.Open(b.spillPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("open body spill %q: %w", b.spillPath, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bodyBucket)
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("create body bucket: %w", err)
	}
	b.db = db
	return nil
}

// Put stores body under fp. When the spill file cannot be opened the
// body is kept in memory over budget rather than dropped.
func (b *bodyStore) Put(fp string, body []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.memoryUsed+int64(len(body)) <= b.memoryBudget {
		b.inMemory[fp] = body
		b.memoryUsed += int64(len(body))
		return
	}

	if err := b.openSpill(); err != nil {
		b.inMemory[fp] = body
		b.memoryUsed += int64(len(body))
		return
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bodyBucket).Put([]byte(fp), body)
	})
	if err != nil {
		b.inMemory[fp] = body
		b.memoryUsed += int64(len(body))
	}
}

// Get returns the body for fp from memory or the spill file.
func (b *bodyStore) Get(fp string) ([]byte, bool) {
	b.mu.RLock()
	body, ok := b.inMemory[fp]
	db := b.db
	b.mu.RUnlock()
	if ok {
		return body, true
	}
	if db == nil {
		return nil, false
	}

	var spilled []byte
	db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bodyBucket).Get([]byte(fp)); v != nil {
			spilled = append([]byte(nil), v...)
		}
		return nil
	})
	if spilled == nil {
		return nil, false
	}
	return spilled, true
}

// Close closes and removes the spill file.
func (b *bodyStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	os.Remove(b.spillPath)
	b.db = nil
	return err
}
