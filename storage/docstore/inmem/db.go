// Package inmemdoc is an in-memory core.Docstore used by tests and local
// development. It reproduces the hosted store's observable behavior:
// store-assigned IDs, commit-time server timestamps, snapshot listeners and
// atomic delete batches.
package inmemdoc

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core"
)

var ErrNotFound = errors.New("document not found")

type record struct {
	data map[string]interface{}
}

type DB struct {
	mu           sync.RWMutex
	docs         map[string]*record // keyed by full document path
	listeners    map[string]map[int]func(core.Document, error)
	nextListener int
	err          error
	now          func() time.Time
}

var _ core.Docstore = (*DB)(nil)

func Open() *DB {
	return &DB{
		docs:      make(map[string]*record),
		listeners: make(map[string]map[int]func(core.Document, error)),
		now:       time.Now,
	}
}

// SetError forces every subsequent operation to fail with err until reset with nil.
func (db *DB) SetError(err error) {
	db.mu.Lock()
	db.err = err
	db.mu.Unlock()
}

// SetNow overrides the server clock. Tests use it to pin createdAt values.
func (db *DB) SetNow(now func() time.Time) {
	db.mu.Lock()
	db.now = now
	db.mu.Unlock()
}

func docID(path string) string {
	segs := strings.Split(path, "/")
	return segs[len(segs)-1]
}

// resolve deep-copies data, replacing core.ServerTimestamp sentinels with the
// store's commit time.
func (db *DB) resolve(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = db.resolve(val)
		default:
			if v == core.ServerTimestamp {
				out[k] = db.now().UTC()
			} else {
				out[k] = v
			}
		}
	}
	return out
}

func copyData(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if m, ok := v.(map[string]interface{}); ok {
			out[k] = copyData(m)
		} else {
			out[k] = v
		}
	}
	return out
}

func (db *DB) snapshotLocked(path string) core.Document {
	doc := core.Document{ID: docID(path)}
	if rec, ok := db.docs[path]; ok {
		doc.Exists = true
		doc.Data = copyData(rec.data)
	}
	return doc
}

func (db *DB) Get(_ context.Context, path string) (core.Document, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.err != nil {
		return core.Document{}, db.err
	}
	return db.snapshotLocked(path), nil
}

func (db *DB) Set(_ context.Context, path string, data map[string]interface{}) error {
	db.mu.Lock()
	if db.err != nil {
		db.mu.Unlock()
		return db.err
	}
	db.docs[path] = &record{data: db.resolve(data)}
	fns, doc := db.listenersForLocked(path)
	db.mu.Unlock()

	deliver(fns, doc)
	return nil
}

func (db *DB) Update(_ context.Context, path string, data map[string]interface{}) error {
	db.mu.Lock()
	if db.err != nil {
		db.mu.Unlock()
		return db.err
	}
	rec, ok := db.docs[path]
	if !ok {
		db.mu.Unlock()
		return errors.Wrap(ErrNotFound, path)
	}
	for k, v := range db.resolve(data) {
		rec.data[k] = v
	}
	fns, doc := db.listenersForLocked(path)
	db.mu.Unlock()

	deliver(fns, doc)
	return nil
}

func (db *DB) Delete(_ context.Context, path string) error {
	db.mu.Lock()
	if db.err != nil {
		db.mu.Unlock()
		return db.err
	}
	delete(db.docs, path)
	fns, doc := db.listenersForLocked(path)
	db.mu.Unlock()

	deliver(fns, doc)
	return nil
}

func (db *DB) Add(_ context.Context, collectionPath string, data map[string]interface{}) (string, error) {
	db.mu.Lock()
	if db.err != nil {
		db.mu.Unlock()
		return "", db.err
	}
	id := uuid.NewString()
	db.docs[collectionPath+"/"+id] = &record{data: db.resolve(data)}
	db.mu.Unlock()
	return id, nil
}

func (db *DB) Query(_ context.Context, collectionPath string, filters []core.Filter, orderBy ...core.Ordering) ([]core.Document, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.err != nil {
		return nil, db.err
	}

	prefix := collectionPath + "/"
	var docs []core.Document
	for path, rec := range db.docs {
		if !strings.HasPrefix(path, prefix) || strings.Contains(path[len(prefix):], "/") {
			continue
		}
		if !matches(rec.data, filters) {
			continue
		}
		docs = append(docs, core.Document{ID: docID(path), Exists: true, Data: copyData(rec.data)})
	}

	for _, ord := range orderBy {
		ord := ord
		sort.SliceStable(docs, func(i, j int) bool {
			less := lessValue(docs[i].Data[ord.Field], docs[j].Data[ord.Field])
			if ord.Ascending {
				return less
			}
			return lessValue(docs[j].Data[ord.Field], docs[i].Data[ord.Field])
		})
	}
	return docs, nil
}

func matches(data map[string]interface{}, filters []core.Filter) bool {
	for _, f := range filters {
		if f.Op != "==" {
			return false
		}
		if data[f.Field] != f.Value {
			return false
		}
	}
	return true
}

func lessValue(a, b interface{}) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	}
	return false
}

// Snapshots delivers the current document synchronously, then on every change.
func (db *DB) Snapshots(path string, fn func(core.Document, error)) (unsubscribe func()) {
	db.mu.Lock()
	id := db.nextListener
	db.nextListener++
	if db.listeners[path] == nil {
		db.listeners[path] = make(map[int]func(core.Document, error))
	}
	db.listeners[path][id] = fn
	doc := db.snapshotLocked(path)
	db.mu.Unlock()

	fn(doc, nil)
	return func() {
		db.mu.Lock()
		defer db.mu.Unlock()
		delete(db.listeners[path], id)
	}
}

func (db *DB) listenersForLocked(path string) ([]func(core.Document, error), core.Document) {
	fns := make([]func(core.Document, error), 0, len(db.listeners[path]))
	for _, fn := range db.listeners[path] {
		fns = append(fns, fn)
	}
	return fns, db.snapshotLocked(path)
}

func deliver(fns []func(core.Document, error), doc core.Document) {
	for _, fn := range fns {
		fn(doc, nil)
	}
}

type batch struct {
	db      *DB
	deletes []string
}

func (db *DB) Batch() core.Batch {
	return &batch{db: db}
}

func (b *batch) Delete(path string) {
	b.deletes = append(b.deletes, path)
}

// Commit applies all accumulated deletes under one lock: all or nothing.
func (b *batch) Commit(_ context.Context) error {
	b.db.mu.Lock()
	if b.db.err != nil {
		b.db.mu.Unlock()
		return b.db.err
	}
	type notice struct {
		fns []func(core.Document, error)
		doc core.Document
	}
	var notices []notice
	for _, path := range b.deletes {
		delete(b.db.docs, path)
		fns, doc := b.db.listenersForLocked(path)
		if len(fns) > 0 {
			notices = append(notices, notice{fns, doc})
		}
	}
	b.db.mu.Unlock()

	for _, n := range notices {
		deliver(n.fns, n.doc)
	}
	return nil
}
