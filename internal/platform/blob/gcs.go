package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores blobs in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS connects with the service account key at credentialsPath, or the
// ambient application default credentials when it is empty.
func NewGCS(ctx context.Context, bucket, credentialsPath, publicPrefix string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		if _, err := os.Stat(credentialsPath); err != nil {
			return nil, fmt.Errorf("service account key not found at %s: %w", credentialsPath, err)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	if publicPrefix == "" {
		publicPrefix = "https://storage.googleapis.com/" + bucket
	}
	return &GCS{client: client, bucket: bucket, prefix: strings.TrimRight(publicPrefix, "/")}, nil
}

func (g *GCS) Put(ctx context.Context, key, contentType string, r io.Reader) (Object, error) {
	if !ValidKey(key) {
		return Object{}, fmt.Errorf("invalid blob key %q", key)
	}
	writer := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "public, max-age=86400"

	size, err := io.Copy(writer, r)
	if err != nil {
		writer.Close()
		return Object{}, fmt.Errorf("upload gs://%s/%s: %w", g.bucket, key, err)
	}
	if err := writer.Close(); err != nil {
		return Object{}, fmt.Errorf("finalize gs://%s/%s: %w", g.bucket, key, err)
	}
	return Object{Key: key, URL: g.prefix + "/" + key, ContentType: contentType, Size: size}, nil
}

func (g *GCS) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	reader, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, Object{}, ErrNotFound
	}
	if err != nil {
		return nil, Object{}, err
	}
	return reader, Object{
		Key:         key,
		URL:         g.prefix + "/" + key,
		ContentType: reader.Attrs.ContentType,
		Size:        reader.Attrs.Size,
	}, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}
