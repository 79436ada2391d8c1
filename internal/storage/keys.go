// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package storage

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key layout. Primary keys embed a zero-padded nanosecond timestamp so a
// prefix scan walks records in time order; secondary index keys carry the
// primary key as their value.
//
//	rl:<ts>:<id>                request log (primary)
//	rli:d:<domain>:<ts>:<id>    request log index by domain
//	rli:i:<ip>:<ts>:<id>        request log index by IP
//	rli:k:<key>:<ts>:<id>       request log index by API key
//	fb:<domain>:<ts>:<id>       feedback
//	hist:<domain>:<ts>:<id>     history entry
//	fl:<ts>:<id>                abuse flag (primary)
//	fli:d:<domain>:<ts>:<id>    abuse flag index by domain
//	fli:i:<ip>:<ts>:<id>        abuse flag index by IP
//	fli:k:<key>:<ts>:<id>       abuse flag index by API key
//	flid:<id>                   abuse flag index by id
//	ver:<domain>                verification (latest state)
//	rep:<domain>                reputation view

func tsKey(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

func primaryKey(prefix string, t time.Time, id string) []byte {
	return []byte(prefix + tsKey(t) + ":" + id)
}

func indexKey(prefix, value string, t time.Time, id string) []byte {
	return []byte(prefix + value + ":" + tsKey(t) + ":" + id)
}

// setJSON marshals v and stores it under key within txn.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// getJSON loads key from txn into v. Maps badger.ErrKeyNotFound to
// ErrNotFound.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		return err
	}
	return item.Value(func(data []byte) error {
		return json.Unmarshal(data, v)
	})
}

// scanPrefix walks all values under prefix in key order, decoding each
// into a fresh T. A negative or zero limit scans everything. reverse
// walks newest-first.
func scanPrefix[T any](db *badger.DB, prefix []byte, limit int, reverse bool) ([]T, error) {
	var out []T
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = reverse

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if reverse {
			// Seek past the prefix range so reverse iteration starts at
			// its last key.
			seek = append(append([]byte{}, prefix...), 0xff)
		}
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var v T
			err := it.Item().Value(func(data []byte) error {
				return json.Unmarshal(data, &v)
			})
			if err != nil {
				return err
			}
			out = append(out, v)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// scanIndex walks an index prefix, following each entry's value to its
// primary record. reverse walks newest-first.
func scanIndex[T any](db *badger.DB, prefix []byte, limit int, reverse bool) ([]T, error) {
	var out []T
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = reverse

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if reverse {
			seek = append(append([]byte{}, prefix...), 0xff)
		}
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			primary, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var v T
			if err := getJSON(txn, primary, &v); err != nil {
				if err == ErrNotFound {
					continue
				}
				return err
			}
			out = append(out, v)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// ctxErr short-circuits store calls on cancelled contexts; badger itself
// is not context-aware.
func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
