package firestoredoc

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/studyhub/studyhub/core"
)

// DB adapts a Firestore client to the core.Docstore port.
type DB struct {
	client *firestore.Client
}

var _ core.Docstore = (*DB)(nil)

func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	var opts []option.ClientOption
	if conf.Docstore.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Docstore.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, conf.Docstore.ProjectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}
	return &DB{client: client}, nil
}

func (db *DB) Close() error {
	return db.client.Close()
}

// translate swaps the sentinel timestamp for Firestore's own.
func translate(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if v == core.ServerTimestamp {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}

func document(snap *firestore.DocumentSnapshot) core.Document {
	doc := core.Document{ID: snap.Ref.ID, Exists: snap.Exists()}
	if doc.Exists {
		doc.Data = snap.Data()
	}
	return doc
}

func (db *DB) Get(ctx context.Context, path string) (core.Document, error) {
	snap, err := db.client.Doc(path).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return core.Document{ID: db.client.Doc(path).ID}, nil
	}
	if err != nil {
		return core.Document{}, errors.Wrap(err, "getting "+path)
	}
	return document(snap), nil
}

func (db *DB) Set(ctx context.Context, path string, data map[string]interface{}) error {
	if _, err := db.client.Doc(path).Set(ctx, translate(data)); err != nil {
		return errors.Wrap(err, "setting "+path)
	}
	return nil
}

func (db *DB) Update(ctx context.Context, path string, data map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(data))
	for k, v := range translate(data) {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	if _, err := db.client.Doc(path).Update(ctx, updates); err != nil {
		return errors.Wrap(err, "updating "+path)
	}
	return nil
}

func (db *DB) Delete(ctx context.Context, path string) error {
	if _, err := db.client.Doc(path).Delete(ctx); err != nil {
		return errors.Wrap(err, "deleting "+path)
	}
	return nil
}

func (db *DB) Add(ctx context.Context, collectionPath string, data map[string]interface{}) (string, error) {
	ref, _, err := db.client.Collection(collectionPath).Add(ctx, translate(data))
	if err != nil {
		return "", errors.Wrap(err, "adding to "+collectionPath)
	}
	return ref.ID, nil
}

func (db *DB) Query(ctx context.Context, collectionPath string, filters []core.Filter, orderBy ...core.Ordering) ([]core.Document, error) {
	q := db.client.Collection(collectionPath).Query
	for _, f := range filters {
		q = q.Where(f.Field, f.Op, f.Value)
	}
	for _, ord := range orderBy {
		dir := firestore.Asc
		if !ord.Ascending {
			dir = firestore.Desc
		}
		q = q.OrderBy(ord.Field, dir)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []core.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "querying "+collectionPath)
		}
		out = append(out, document(snap))
	}
	return out, nil
}

func (db *DB) Snapshots(path string, fn func(core.Document, error)) (unsubscribe func()) {
	ctx, cancel := context.WithCancel(context.Background())
	iter := db.client.Doc(path).Snapshots(ctx)

	go func() {
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				fn(core.Document{}, errors.Wrap(err, "watching "+path))
				return
			}
			fn(document(snap), nil)
		}
	}()
	return cancel
}

type batch struct {
	db    *DB
	paths []string
}

func (db *DB) Batch() core.Batch {
	return &batch{db: db}
}

func (b *batch) Delete(path string) {
	b.paths = append(b.paths, path)
}

func (b *batch) Commit(ctx context.Context) error {
	// WriteBatch commits all-or-nothing, which the cascade delete relies on;
	// BulkWriter does not.
	wb := b.db.client.Batch()
	for _, path := range b.paths {
		wb = wb.Delete(b.db.client.Doc(path))
	}
	if _, err := wb.Commit(ctx); err != nil {
		return errors.Wrap(err, "committing batched deletes")
	}
	return nil
}
