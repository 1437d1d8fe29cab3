package ossobj

import (
	"context"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/notes"
)

// Store is a notes.FileStorage backed by an Alibaba Cloud OSS bucket.
type Store struct {
	bucket        *oss.Bucket
	publicBaseURL string
}

var _ notes.FileStorage = (*Store)(nil)

func NewStore(conf *core.Config) (*Store, error) {
	client, err := oss.New(conf.ObjectStorage.Endpoint, conf.ObjectStorage.AccessKeyID, conf.ObjectStorage.AccessKeySecret)
	if err != nil {
		return nil, errors.Wrap(err, "creating OSS client")
	}
	bucket, err := client.Bucket(conf.ObjectStorage.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "opening OSS bucket")
	}
	return &Store{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(conf.ObjectStorage.PublicBaseURL, "/"),
	}, nil
}

func (st *Store) Upload(ctx context.Context, path, contentType string, size int64, content io.Reader) error {
	opts := []oss.Option{
		oss.ContentType(contentType),
		oss.ContentLength(size),
	}
	if err := st.bucket.PutObject(path, content, opts...); err != nil {
		return errors.Wrap(err, "putting object "+path)
	}
	return nil
}

func (st *Store) PublicURL(path string) string {
	return st.publicBaseURL + "/" + path
}

func (st *Store) Remove(ctx context.Context, path string) error {
	if err := st.bucket.DeleteObject(path); err != nil {
		return errors.Wrap(err, "deleting object "+path)
	}
	return nil
}
