// Package pebble persists branch coverage in a pebble database so that
// separate executions skip branches another run has already negated.
package pebble

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	symcc "github.com/y4ngyy/SymCC-Modified"
)

// Ensure store implements interface.
var _ symcc.CoverageMap = (*CoverageStore)(nil)

var keyPrefix = []byte("branch/")

// CoverageStore is a coverage map keyed by branch key.
type CoverageStore struct {
	db *pebble.DB
}

// Open opens or creates the database in dir.
func Open(dir string) (*CoverageStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open coverage db: %w", err)
	}
	return &CoverageStore{db: db}, nil
}

// Close closes the database.
func (s *CoverageStore) Close() error {
	return s.db.Close()
}

// Visit records key and returns true if no execution has recorded it before.
func (s *CoverageStore) Visit(key uint64) (bool, error) {
	k := keyFor(key)

	_, closer, err := s.db.Get(k)
	if err == nil {
		return false, closer.Close()
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return false, err
	}

	if err := s.db.Set(k, []byte{1}, pebble.Sync); err != nil {
		return false, err
	}
	return true, nil
}

// Keys calls fn for every recorded key in ascending order.
func (s *CoverageStore) Keys(fn func(key uint64) error) error {
	upper := append(append([]byte(nil), keyPrefix[:len(keyPrefix)-1]...), keyPrefix[len(keyPrefix)-1]+1)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: upper,
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Len returns the number of recorded keys.
func (s *CoverageStore) Len() (int, error) {
	var n int
	err := s.Keys(func(uint64) error { n++; return nil })
	return n, err
}

func keyFor(key uint64) []byte {
	b := make([]byte, len(keyPrefix)+8)
	copy(b, keyPrefix)
	binary.BigEndian.PutUint64(b[len(keyPrefix):], key)
	return b
}

func parseKey(b []byte) (uint64, error) {
	if len(b) != len(keyPrefix)+8 {
		return 0, fmt.Errorf("invalid coverage key: %q", b)
	}
	return binary.BigEndian.Uint64(b[len(keyPrefix):]), nil
}
