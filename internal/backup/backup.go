// Package backup stores JSONL cache dumps in an S3-compatible bucket so a
// fresh Redis can be repopulated without walking the boards.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/eric/internal/jsonl"
)

// Prefix is the key prefix of every dump object.
const Prefix = "cache-dumps/"

const defaultRegion = "us-east-1"

// ErrNoDumps is returned by Latest when the bucket holds no dumps.
var ErrNoDumps = errors.New("no cache dumps in bucket")

// ObjectAPI is the subset of *s3.Client used here.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config selects the bucket. Endpoint is set for MinIO and other
// S3-compatible stores, which also need path-style addressing. Static keys,
// when both are set, replace the default credential chain.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Store uploads and downloads dumps.
type Store struct {
	api    ObjectAPI
	bucket string
	now    func() time.Time
}

// New wraps an existing client.
func New(api ObjectAPI, bucket string) *Store {
	return &Store{api: api, bucket: bucket, now: time.Now}
}

// Open builds an S3 client from the default AWS credential chain or the
// static keys in cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, cfg.Bucket), nil
}

// Upload writes entries as a new dump object and returns its key. Keys sort
// by creation time.
func (s *Store) Upload(ctx context.Context, entries []jsonl.Entry) (string, error) {
	var buf bytes.Buffer
	if err := jsonl.Encode(&buf, entries); err != nil {
		return "", err
	}
	key := Prefix + s.now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString() + ".jsonl"
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// Download reads the dump at key.
func (s *Store) Download(ctx context.Context, key string) ([]jsonl.Entry, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer out.Body.Close()
	entries, err := jsonl.Decode(out.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return entries, nil
}

// List returns the dump keys, oldest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var (
		keys  []string
		token *string
	)
	for {
		out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(Prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list dumps: %w", err)
		}
		for _, obj := range out.Contents {
			if k := aws.ToString(obj.Key); path.Ext(k) == ".jsonl" {
				keys = append(keys, k)
			}
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Strings(keys)
	return keys, nil
}

// Latest returns the key of the newest dump.
func (s *Store) Latest(ctx context.Context) (string, error) {
	keys, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", ErrNoDumps
	}
	return keys[len(keys)-1], nil
}
