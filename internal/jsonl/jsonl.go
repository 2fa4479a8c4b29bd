// Package jsonl dumps and restores cache entries as JSON Lines, one
// {"key": ..., "value": ...} object per line.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// Entry is one cached snapshot.
type Entry struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Decode reads entries from r. Blank lines, malformed lines and lines without
// a key are skipped.
func Decode(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil || e.Key == "" || len(e.Value) == 0 {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning entries: %w", err)
	}
	return entries, nil
}

// Encode writes entries to w, one per line.
func Encode(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", e.Key, err)
		}
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return bw.Flush()
}

// ReadFile reads entries from a JSONL file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	entries, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// WriteFile atomically writes entries to path using the temp-file, fsync,
// rename pattern.
func WriteFile(path string, entries []Entry) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := Encode(tmp, entries); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Export reads every cached entry of the given record types, in key order.
// Entries whose value is not valid JSON cannot be represented in a dump; their
// keys are returned in skipped.
func Export(ctx context.Context, store types.CacheStore, recordTypes ...string) (entries []Entry, skipped []string, err error) {
	for _, rt := range recordTypes {
		keys, err := store.Keys(ctx, rt+":*")
		if err != nil {
			return nil, nil, fmt.Errorf("list %s keys: %w", rt, err)
		}
		for _, k := range keys {
			v, found, err := store.Get(ctx, k)
			if err != nil {
				return nil, nil, fmt.Errorf("read %s: %w", k, err)
			}
			if !found {
				continue
			}
			if !json.Valid(v) {
				skipped = append(skipped, k)
				continue
			}
			entries = append(entries, Entry{Key: k, Value: json.RawMessage(v)})
		}
	}
	return entries, skipped, nil
}

// Import writes entries to store in a single batch.
func Import(ctx context.Context, store types.CacheStore, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	b := store.Batch()
	for _, e := range entries {
		b.Set(e.Key, e.Value)
	}
	if err := b.Exec(ctx); err != nil {
		return fmt.Errorf("import %d entries: %w", len(entries), err)
	}
	return nil
}
