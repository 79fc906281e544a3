// Package prefs persists backup bookkeeping that lives outside the
// encrypted container: when the last backup happened and when the user
// was last reminded to make one.
package prefs

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const (
	sixDays = 6 * 24 * time.Hour
	oneWeek = 7 * 24 * time.Hour
)

var (
	backupBucket  = []byte("backup")
	keyLastBackup = []byte("last_backup_date")
	keyLastNag    = []byte("last_nag_date")
)

// Overridable in tests.
var timeNow = time.Now

// Prefs stores bookkeeping timestamps in a BBolt database using a
// write-through cache: reads come from an in-memory map, writes persist
// to BBolt and update the map atomically.
type Prefs struct {
	db    *bbolt.DB
	mu    sync.RWMutex
	cache map[string]int64
}

// New returns a Prefs store backed by the given BBolt database.
func New(db *bbolt.DB) (*Prefs, error) {
	p := &Prefs{
		db:    db,
		cache: make(map[string]int64),
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(backupBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			if len(v) == 8 {
				p.cache[string(k)] = int64(binary.BigEndian.Uint64(v))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewFromFile opens a BBolt database at the given path and returns a
// Prefs store.
func NewFromFile(path string) (*Prefs, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return New(db)
}

// Close closes the underlying BBolt database.
func (p *Prefs) Close() error {
	return p.db.Close()
}

// LastBackup returns the time of the last recorded backup, or the zero
// time when no backup was ever made.
func (p *Prefs) LastBackup() time.Time {
	millis := p.get(keyLastBackup)
	if millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}

// SetLastBackup records now as the time of the last backup.
func (p *Prefs) SetLastBackup() error {
	return p.set(keyLastBackup, timeNow().UnixMilli())
}

// BackupTooOld reports whether the user should be reminded that no
// backup exists yet. The very first call only arms the reminder, so a
// fresh install stays quiet for a day. After that the reminder fires at
// most once per week, and never again once a backup has been recorded.
func (p *Prefs) BackupTooOld() (bool, error) {
	now := timeNow().UnixMilli()
	if p.get(keyLastBackup) != 0 {
		return false, nil
	}

	lastNag := p.get(keyLastNag)
	if lastNag == 0 {
		// Don't warn the very first day the program runs.
		return false, p.set(keyLastNag, now-sixDays.Milliseconds())
	}
	if now-lastNag > oneWeek.Milliseconds() {
		if err := p.set(keyLastNag, now); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (p *Prefs) get(key []byte) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cache[string(key)]
}

func (p *Prefs) set(key []byte, millis int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(backupBucket)
		if err != nil {
			return err
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(millis))
		return b.Put(key, buf[:])
	})
	if err != nil {
		return err
	}

	p.cache[string(key)] = millis
	return nil
}
