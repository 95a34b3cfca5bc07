package csv

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// codec maps one entity type to and from a CSV row.
type codec[T any] struct {
	headers []string
	encode  func(T) []string
	decode  func([]string) (T, error)
	id      func(T) int64
	setID   func(*T, int64)
}

// table is one flat file of rows. Writes are whole-file rewrites (except
// append) with last-writer-wins semantics; there is no locking across
// processes. That limitation is deliberate and documented, not fixed.
type table[T any] struct {
	mu    sync.Mutex
	path  string
	codec codec[T]
}

func newTable[T any](dir, name string, c codec[T]) (*table[T], error) {
	t := &table[T]{path: filepath.Join(dir, name+".csv"), codec: c}
	if err := t.ensureFile(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *table[T]) ensureFile() error {
	if _, err := os.Stat(t.path); err == nil {
		return nil
	}
	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("create table file %s: %w", t.path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(t.codec.headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	w.Flush()
	return w.Error()
}

// readAll decodes every row, skipping malformed ones with a warning.
// A single bad row must never abort a whole read.
func (t *table[T]) readAll() ([]T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readAllLocked()
}

func (t *table[T]) readAllLocked() ([]T, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := t.ensureFile(); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, fmt.Errorf("open table file %s: %w", t.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}

	var out []T
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		v, err := t.codec.decode(rec)
		if err != nil {
			slog.Warn("Skipping malformed row",
				"table", filepath.Base(t.path),
				"line", i+1,
				"error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (t *table[T]) append(v T) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, err := t.readAllLocked()
	if err != nil {
		return v, err
	}
	var max int64
	for _, e := range existing {
		if id := t.codec.id(e); id > max {
			max = id
		}
	}
	t.codec.setID(&v, max+1)

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return v, fmt.Errorf("open table file %s: %w", t.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.codec.encode(v)); err != nil {
		return v, fmt.Errorf("append row: %w", err)
	}
	w.Flush()
	return v, w.Error()
}

func (t *table[T]) rewriteAll(rows []T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rewriteAllLocked(rows)
}

func (t *table[T]) rewriteAllLocked(rows []T) error {
	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("rewrite table file %s: %w", t.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.codec.headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for _, v := range rows {
		if err := w.Write(t.codec.encode(v)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// update rewrites the file with the matching row replaced.
func (t *table[T]) update(v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.readAllLocked()
	if err != nil {
		return err
	}
	found := false
	for i := range rows {
		if t.codec.id(rows[i]) == t.codec.id(v) {
			rows[i] = v
			found = true
			break
		}
	}
	if !found {
		return errNotFound
	}
	return t.rewriteAllLocked(rows)
}

// delete rewrites the file without the matching row.
func (t *table[T]) delete(id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.readAllLocked()
	if err != nil {
		return err
	}
	kept := rows[:0]
	for _, r := range rows {
		if t.codec.id(r) != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(rows) {
		return errNotFound
	}
	return t.rewriteAllLocked(kept)
}

func (t *table[T]) findByID(id int64) (T, error) {
	var zero T
	rows, err := t.readAll()
	if err != nil {
		return zero, err
	}
	for _, r := range rows {
		if t.codec.id(r) == id {
			return r, nil
		}
	}
	return zero, errNotFound
}
