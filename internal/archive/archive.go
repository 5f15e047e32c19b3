// Package archive keeps every exported snapshot blob in a BadgerDB directory,
// keyed by snapshot id and creation time, so earlier materializations of an id
// can be restored after its rows have changed in the store.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const prefixSnapshot = "s:"

// ErrNotFound is returned when no blob is archived under the requested key.
var ErrNotFound = errors.New("archive: snapshot not found")

// Entry describes one archived blob.
type Entry struct {
	SnapshotID string
	CreatedAt  string
	Size       int64
}

// Archive is a BadgerDB-backed snapshot archive. It is safe for concurrent
// use.
type Archive struct {
	db *badger.DB
}

// Open opens or creates the archive in dir.
func Open(dir string, readOnly bool) (*Archive, error) {
	opts := badger.DefaultOptions(dir).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR)
	if readOnly {
		opts = opts.WithReadOnly(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger DB: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// snapshotPrefix is "s:<id>" followed by a NUL, so ids that share a prefix
// never match each other's keys.
func snapshotPrefix(snapshotID string) []byte {
	return []byte(prefixSnapshot + snapshotID + "\x00")
}

func entryKey(snapshotID, createdAt string) []byte {
	return append(snapshotPrefix(snapshotID), createdAt...)
}

func parseKey(key []byte) (snapshotID, createdAt string) {
	rest := strings.TrimPrefix(string(key), prefixSnapshot)
	snapshotID, createdAt, _ = strings.Cut(rest, "\x00")
	return snapshotID, createdAt
}

// Put stores blob under (snapshotID, createdAt), replacing any blob already
// there.
func (a *Archive) Put(snapshotID, createdAt string, blob []byte) error {
	if snapshotID == "" || createdAt == "" {
		return errors.New("archive: snapshot id and creation time are required")
	}
	err := a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(snapshotID, createdAt), blob)
	})
	if err != nil {
		return fmt.Errorf("archive snapshot %q: %w", snapshotID, err)
	}
	return nil
}

// Get returns the blob stored under (snapshotID, createdAt).
func (a *Archive) Get(snapshotID, createdAt string) ([]byte, error) {
	var blob []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(snapshotID, createdAt))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s at %s", ErrNotFound, snapshotID, createdAt)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", snapshotID, err)
	}
	return blob, nil
}

// Latest returns the most recently created blob of snapshotID and its entry.
func (a *Archive) Latest(snapshotID string) (Entry, []byte, error) {
	var (
		entry Entry
		blob  []byte
	)
	prefix := snapshotPrefix(snapshotID)
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(append(bytes.Clone(prefix), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return ErrNotFound
		}
		item := it.Item()
		id, createdAt := parseKey(item.Key())
		entry = Entry{SnapshotID: id, CreatedAt: createdAt, Size: item.ValueSize()}
		var err error
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return Entry{}, nil, fmt.Errorf("%w: %s", ErrNotFound, snapshotID)
	}
	if err != nil {
		return Entry{}, nil, fmt.Errorf("read latest snapshot %q: %w", snapshotID, err)
	}
	return entry, blob, nil
}

// List returns the entries of snapshotID, oldest first. An empty snapshotID
// lists every archived snapshot in key order.
func (a *Archive) List(snapshotID string) ([]Entry, error) {
	prefix := []byte(prefixSnapshot)
	if snapshotID != "" {
		prefix = snapshotPrefix(snapshotID)
	}
	var entries []Entry
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id, createdAt := parseKey(item.Key())
			entries = append(entries, Entry{SnapshotID: id, CreatedAt: createdAt, Size: item.ValueSize()})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return entries, nil
}
