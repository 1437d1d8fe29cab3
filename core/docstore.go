package core

import (
	"context"
	"time"
)

type serverTimestamp struct{}

// ServerTimestamp is a sentinel placed in document data; the store replaces
// it with its own commit time. The resulting value is opaque to the writer
// until the document is read back.
var ServerTimestamp = serverTimestamp{}

type (
	// Document is a point-in-time snapshot of a document in a Docstore.
	// Exists is false for snapshots of missing documents; Data is nil then.
	Document struct {
		ID     string
		Exists bool
		Data   map[string]interface{}
	}

	// Filter restricts a query to documents whose field compares to Value.
	// Op is "==" for every query in this codebase.
	Filter struct {
		Field string
		Op    string
		Value interface{}
	}

	Ordering struct {
		Field     string
		Ascending bool
	}

	// Batch accumulates deletes and commits them as one atomic unit:
	// either every delete is applied or none is.
	Batch interface {
		Delete(path string)
		Commit(ctx context.Context) error
	}

	// Docstore is the hosted document store behind profiles, subjects,
	// assignments and exams. Paths are slash-separated, alternating
	// collection and document segments ("users/u1/subjects/s1").
	Docstore interface {
		Get(ctx context.Context, path string) (Document, error)
		// Set creates or fully replaces the document at path.
		Set(ctx context.Context, path string, data map[string]interface{}) error
		// Update modifies the given top-level fields of an existing document.
		Update(ctx context.Context, path string, data map[string]interface{}) error
		Delete(ctx context.Context, path string) error
		// Add creates a document with a store-assigned ID and returns the ID.
		Add(ctx context.Context, collectionPath string, data map[string]interface{}) (string, error)
		Query(ctx context.Context, collectionPath string, filters []Filter, orderBy ...Ordering) ([]Document, error)
		// Snapshots delivers the current document immediately, then again on
		// every change, until the returned unsubscribe func is called.
		// Errors are delivered through the same callback and end the stream.
		Snapshots(path string, fn func(Document, error)) (unsubscribe func())
		Batch() Batch
	}
)

// String returns the named field as a string, or "" when absent or not a string.
func (d Document) String(key string) string {
	s, _ := d.Data[key].(string)
	return s
}

// Time returns the named field as a time.Time, or the zero value.
func (d Document) Time(key string) time.Time {
	t, _ := d.Data[key].(time.Time)
	return t
}

// Map returns the named field as a nested document map, or nil.
func (d Document) Map(key string) map[string]interface{} {
	m, _ := d.Data[key].(map[string]interface{})
	return m
}
