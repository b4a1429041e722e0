// Package s3 implements the blob Store on AWS S3 or an S3-compatible
// endpoint such as MinIO.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"boardgamestats/internal/blob/core"
)

// Environment variables read by OpenFromEnv. Credentials follow the default
// AWS chain unless the access key variables are set.
const (
	EnvBucket    = "BGSTATS_BLOB_S3_BUCKET"
	EnvRegion    = "BGSTATS_BLOB_S3_REGION"
	EnvEndpoint  = "BGSTATS_BLOB_S3_ENDPOINT"
	EnvPathStyle = "BGSTATS_BLOB_S3_PATH_STYLE"
)

const defaultRegion = "us-east-1"

// Store is a single-bucket S3 blob store.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// Config holds explicit construction parameters.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
	HTTPClient      *http.Client
}

// New creates an S3 store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return &Store{client: client, presign: s3.NewPresignClient(client), bucket: cfg.Bucket}, nil
}

// OpenFromEnv constructs a Store from BGSTATS_BLOB_S3_* variables.
func OpenFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv(EnvBucket)
	if bucket == "" {
		return nil, fmt.Errorf("%s required for s3 driver", EnvBucket)
	}
	return New(ctx, Config{
		Bucket:          bucket,
		Region:          os.Getenv(EnvRegion),
		Endpoint:        os.Getenv(EnvEndpoint),
		PathStyle:       strings.EqualFold(os.Getenv(EnvPathStyle), "true"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	})
}

func (s *Store) Driver() core.Driver { return core.DriverS3 }

// Put uploads the object, replacing any existing version. The body is
// buffered so the SDK can sign a seekable payload.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	clean, err := core.CleanKey(key)
	if err != nil {
		return core.Info{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(clean),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      core.CopyMetadata(opts.Metadata),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return core.Info{}, fmt.Errorf("s3 put %s: %w", clean, err)
	}
	return s.Head(ctx, clean)
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	clean, err := core.CleanKey(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(clean)})
	if err != nil {
		return core.Info{}, nil, translate(clean, err)
	}
	info := objectInfo(clean, out.ContentLength, out.ContentType, out.ETag, out.Metadata, out.LastModified)
	return info, out.Body, nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	clean, err := core.CleanKey(key)
	if err != nil {
		return core.Info{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(clean)})
	if err != nil {
		return core.Info{}, translate(clean, err)
	}
	return objectInfo(clean, out.ContentLength, out.ContentType, out.ETag, out.Metadata, out.LastModified), nil
}

// Delete removes the object. S3 deletes are idempotent, so existence is
// checked with a HEAD first.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	clean, err := core.CleanKey(key)
	if err != nil {
		return false, err
	}
	if _, err := s.Head(ctx, clean); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(clean)}); err != nil {
		return false, fmt.Errorf("s3 delete %s: %w", clean, err)
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			infos = append(infos, core.Info{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Store) PresignURL(ctx context.Context, key string, opts core.SignedURLOptions) (string, error) {
	if opts.Method != "" && !strings.EqualFold(opts.Method, "GET") {
		return "", core.ErrUnsupported
	}
	clean, err := core.CleanKey(key)
	if err != nil {
		return "", err
	}
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = core.DefaultURLExpiry
	}
	req, err := s.presign.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(clean)},
		func(po *s3.PresignOptions) { po.Expires = expiry })
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func translate(key string, err error) error {
	var re *awshttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	return err
}

func objectInfo(key string, size *int64, contentType, etag *string, md map[string]string, lastModified *time.Time) core.Info {
	info := core.Info{
		Key:          key,
		Size:         aws.ToInt64(size),
		ContentType:  aws.ToString(contentType),
		ETag:         strings.Trim(aws.ToString(etag), `"`),
		Metadata:     core.CopyMetadata(md),
		LastModified: time.Now().UTC(),
	}
	if lastModified != nil {
		info.LastModified = *lastModified
	}
	return info
}
