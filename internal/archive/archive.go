// Package archive exports ledger snapshots to S3, sealed to the
// contract owner's key. The ledgers themselves stay unbounded; the
// archive is an off-store copy, not a rotation.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/RpGmAx/ronin-mission-5/internal/contract/physical"
	"github.com/RpGmAx/ronin-mission-5/internal/storage"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

const (
	KeyBucket          = "bucket"
	KeyRegion          = "region"
	KeyEndpoint        = "endpoint"
	KeyPrefix          = "prefix"
	KeyAccessKeyID     = "access_key_id"
	KeySecretAccessKey = "secret_access_key"
	KeyForcePathStyle  = "force_path_style"
)

// Snapshot is the plaintext archive payload: both ledgers in append
// order plus provenance.
type Snapshot struct {
	Owner     identity.Key           `json:"owner"`
	CreatedAt int64                  `json:"created_at"`
	Updates   []physical.UpdateEntry `json:"updates"`
	Deletes   []physical.DeleteEntry `json:"deletes"`
}

// Archiver uploads sealed ledger snapshots to an S3 bucket.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an Archiver from a configuration map and verifies bucket
// access.
func New(ctx context.Context, config map[string]string) (*Archiver, error) {
	bucket := storage.GetString(config, KeyBucket, "")
	if bucket == "" {
		return nil, storage.NewConfigError("s3", KeyBucket, "cannot be empty")
	}

	region := storage.GetString(config, KeyRegion, "us-east-1")
	endpoint := storage.GetString(config, KeyEndpoint, "")
	prefix := storage.GetString(config, KeyPrefix, "")
	accessKeyID := storage.GetString(config, KeyAccessKeyID, "")
	secretAccessKey := storage.GetString(config, KeySecretAccessKey, "")

	forcePathStyle, err := storage.GetBool(config, KeyForcePathStyle, false)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("s3", KeyForcePathStyle, config[KeyForcePathStyle], err.Error())
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))

	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("s3", "", "failed to load AWS config", err)
	}

	var s3Opts []func(*s3.Options)
	if endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if forcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, s3Opts...)

	// Fail fast: verify bucket access.
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("s3", KeyBucket, "bucket not accessible", err)
	}

	slog.Info("ledger archive initialized", "bucket", bucket, "region", region, "prefix", prefix)

	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Archive seals the snapshot to the owner's key and uploads it. Returns
// the object key.
func (a *Archiver) Archive(ctx context.Context, snap *Snapshot) (string, error) {
	sealed, err := sealSnapshot(snap)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%sledger-%s.sealed", a.prefix,
		time.UnixMilli(snap.CreatedAt).UTC().Format("20060102T150405Z"))

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(sealed),
	})
	if err != nil {
		return "", fmt.Errorf("archive: upload: %w", err)
	}

	slog.InfoContext(ctx, "ledger snapshot archived",
		"key", key,
		"update_entries", len(snap.Updates),
		"delete_entries", len(snap.Deletes),
		"sealed_bytes", len(sealed))
	return key, nil
}

// sealSnapshot serializes and seals a snapshot to its owner's key.
func sealSnapshot(snap *Snapshot) ([]byte, error) {
	plaintext, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("archive: marshal snapshot: %w", err)
	}
	sealed, err := Seal(plaintext, snap.Owner)
	if err != nil {
		return nil, fmt.Errorf("archive: seal snapshot: %w", err)
	}
	return sealed, nil
}

// Fetch downloads a sealed snapshot by object key.
func (a *Archiver) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: fetch %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: fetch %s: %w", key, err)
	}
	return data, nil
}

// Unseal decrypts a fetched snapshot with the owner's Ed25519 seed.
func Unseal(sealed, seed []byte) (*Snapshot, error) {
	plaintext, err := Open(sealed, seed)
	if err != nil {
		return nil, fmt.Errorf("archive: unseal: %w", err)
	}
	snap := &Snapshot{}
	if err := json.Unmarshal(plaintext, snap); err != nil {
		return nil, fmt.Errorf("archive: decode snapshot: %w", err)
	}
	return snap, nil
}
