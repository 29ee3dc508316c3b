// Package ledger records which items a command has already processed so a
// rerun can skip them. Entries live in badger, keyed by command and item.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("ledger is closed")

const prefixEntry = "e:"

// Entry is one processed item.
type Entry struct {
	Command   string    `json:"command"`
	Item      string    `json:"item"`
	RunID     string    `json:"run_id"`
	Detail    string    `json:"detail,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ledger is a badger-backed checkpoint store. It is safe for concurrent use.
type Ledger struct {
	db *badgerdb.DB
}

// Open opens the ledger at path. An empty path keeps everything in memory.
func Open(path string) (*Ledger, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

func keyEntry(command, item string) []byte {
	return []byte(prefixEntry + command + ":" + item)
}

func keyCommand(command string) []byte {
	return []byte(prefixEntry + command + ":")
}

// MarkDone records item as processed by command.
func (l *Ledger) MarkDone(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.db.IsClosed() {
		return ErrClosed
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyEntry(e.Command, e.Item), data)
	})
}

// IsDone reports whether command already processed item.
func (l *Ledger) IsDone(ctx context.Context, command, item string) (bool, error) {
	_, err := l.Get(ctx, command, item)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Get returns the entry for item. It wraps badger.ErrKeyNotFound when
// the item was never recorded.
func (l *Ledger) Get(ctx context.Context, command, item string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.db.IsClosed() {
		return nil, ErrClosed
	}

	var e Entry
	err := l.db.View(func(txn *badgerdb.Txn) error {
		it, err := txn.Get(keyEntry(command, item))
		if err != nil {
			return err
		}
		return it.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ledger %s/%s: %w", command, item, err)
	}
	return &e, nil
}

// List returns every entry recorded for command, ordered by item.
func (l *Ledger) List(ctx context.Context, command string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.db.IsClosed() {
		return nil, ErrClosed
	}

	var result []Entry
	err := l.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = keyCommand(command)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return err
				}
				result = append(result, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reset forgets every entry for command and returns how many were removed.
func (l *Ledger) Reset(ctx context.Context, command string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if l.db.IsClosed() {
		return 0, ErrClosed
	}

	var keys [][]byte
	err := l.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = keyCommand(command)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := l.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l.db.IsClosed() {
		return nil
	}
	return l.db.Close()
}
