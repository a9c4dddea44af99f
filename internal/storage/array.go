// Package storage is the dual persistence layer: a relational store
// (relational.go) for ModelRun/PointMetric/GridSnapshot rows, and a
// chunked/compressed array store (this file) for the 2-D divergence
// fields those rows catalog. Grounded on the spatialmodel-inmap cloud
// package's gocloud.dev/blob bucket dispatch, generalized from raster
// data to SynopticSpread's grid-divergence snapshots.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"

	"github.com/synopticspread/spread/internal/domain"
)

// ArrayField is the on-disk representation of one grid-divergence
// snapshot: a regular field plus its own axis metadata, independent of
// the catalog row that references it.
type ArrayField struct {
	LatAxis []float64 `msgpack:"lat_axis"`
	LonAxis []float64 `msgpack:"lon_axis"`
	Values  []float64 `msgpack:"values"`
}

// ArrayStore is the chunked compressed array backend: written once, read
// by handle, never updated in place.
type ArrayStore struct {
	bucket *blob.Bucket
}

// OpenArrayStore opens the bucket named by root, where root is
// 'provider://name' — "file" for local filesystem (tests, single-node
// deployments), "s3" or "gs" for cloud object storage.
func OpenArrayStore(ctx context.Context, root string) (*ArrayStore, error) {
	u, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing data_store_path %q: %s", domain.ErrStorageFailure, root, err)
	}

	var bucket *blob.Bucket
	switch u.Scheme {
	case "file":
		bucket, err = fileblob.OpenBucket(u.Path, nil)
	case "gs":
		bucket, err = openGCSBucket(ctx, u.Host)
	case "s3":
		bucket, err = openS3Bucket(ctx, u.Host)
	default:
		return nil, fmt.Errorf("%w: unsupported data_store_path scheme %q", domain.ErrStorageFailure, u.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: opening bucket %q: %s", domain.ErrStorageFailure, root, err)
	}
	return &ArrayStore{bucket: bucket}, nil
}

// openGCSBucket authenticates via the environment's default application
// credentials (see https://cloud.google.com/docs/authentication/getting-started).
func openGCSBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, client, name, nil)
}

// openS3Bucket authenticates from AWS_REGION, AWS_ACCESS_KEY_ID and
// AWS_SECRET_ACCESS_KEY.
func openS3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	cfg := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, sess, name, nil)
}

// HandleKey builds the stable handle the array store addresses a
// snapshot by: {YYYYMMDDHH}/{variable}/fhr{NNN}.
func HandleKey(initTime time.Time, variable domain.Variable, leadHour int) string {
	return fmt.Sprintf("%s/%s/fhr%03d", initTime.UTC().Format("2006010215"), variable, leadHour)
}

// Put writes field to handle, zstd-compressed msgpack, overwriting any
// existing object at that key (idempotent — re-running an orchestrator
// job for the same run re-derives the same handle and replaces it).
func (s *ArrayStore) Put(ctx context.Context, handle string, field ArrayField) error {
	raw, err := msgpack.Marshal(field)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %s", domain.ErrStorageFailure, handle, err)
	}

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStorageFailure, err)
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return fmt.Errorf("%w: compressing %s: %s", domain.ErrStorageFailure, handle, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStorageFailure, err)
	}

	if err := s.bucket.WriteAll(ctx, handle, buf.Bytes(), nil); err != nil {
		return fmt.Errorf("%w: writing %s: %s", domain.ErrStorageFailure, handle, err)
	}
	return nil
}

// Get reads and decodes the field at handle.
func (s *ArrayStore) Get(ctx context.Context, handle string) (ArrayField, error) {
	compressed, err := s.bucket.ReadAll(ctx, handle)
	if err != nil {
		return ArrayField{}, fmt.Errorf("%w: reading %s: %s", domain.ErrStorageFailure, handle, err)
	}

	zr, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return ArrayField{}, fmt.Errorf("%w: %s", domain.ErrStorageFailure, err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(zr); err != nil {
		return ArrayField{}, fmt.Errorf("%w: decompressing %s: %s", domain.ErrStorageFailure, handle, err)
	}

	var field ArrayField
	if err := msgpack.Unmarshal(buf.Bytes(), &field); err != nil {
		return ArrayField{}, fmt.Errorf("%w: decoding %s: %s", domain.ErrStorageFailure, handle, err)
	}
	return field, nil
}

// DropTree deletes every object whose key has prefix, for the reset path:
// sweeping orphan objects left by a crash between Put and the catalog
// commit.
func (s *ArrayStore) DropTree(ctx context.Context, prefix string) error {
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err != nil {
			if err.Error() == "iterator done" || strings.Contains(err.Error(), "EOF") {
				break
			}
			return fmt.Errorf("%w: listing %s: %s", domain.ErrStorageFailure, prefix, err)
		}
		if obj == nil {
			break
		}
		if err := s.bucket.Delete(ctx, obj.Key); err != nil {
			return fmt.Errorf("%w: deleting %s: %s", domain.ErrStorageFailure, obj.Key, err)
		}
	}
	return nil
}

func (s *ArrayStore) Close() error {
	return s.bucket.Close()
}
