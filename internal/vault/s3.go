package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"plantly/internal/plantly"
)

// s3API is the subset of the S3 client used by S3Vault.
type s3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Options holds construction parameters for an S3 vault.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string // default us-east-1
	Endpoint        string // optional, for S3-compatible services
	PathStyle       bool
	AccessKeyID     string // optional, falls back to the default credentials chain
	SecretAccessKey string
}

// S3Vault stores the snapshot and content as objects in a single bucket:
//
//	<prefix>/snapshot/plants.json
//	<prefix>/content/<checksum>
//
// Each object is written with a single PutObject, which replaces the
// previous object atomically.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   s3API
	uploader *manager.Uploader
}

// NewS3Vault creates an S3 vault using the default AWS configuration chain,
// overridden by any explicit options.
func NewS3Vault(ctx context.Context, name string, opts S3Options) (*S3Vault, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.PathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return NewS3VaultWithClient(name, opts.Bucket, opts.Prefix, client), nil
}

// NewS3VaultWithClient wraps an existing client. Used by tests.
func NewS3VaultWithClient(name, bucket, prefix string, client s3API) *S3Vault {
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

func (v *S3Vault) key(parts ...string) string {
	return path.Join(append([]string{v.prefix}, parts...)...)
}

// PutSnapshot replaces the snapshot object.
func (v *S3Vault) PutSnapshot(r io.Reader, size int64) error {
	return v.put(v.key("snapshot", snapshotFile), r, size, "application/octet-stream")
}

// GetSnapshot writes the snapshot object to w.
func (v *S3Vault) GetSnapshot(w io.Writer) error {
	err := v.get(v.key("snapshot", snapshotFile), w)
	if isNoSuchKey(err) {
		return plantly.ErrNoSnapshot
	}
	return err
}

// PutContent stores content under its checksum. Re-uploading the same
// checksum overwrites identical bytes, so the operation is idempotent.
func (v *S3Vault) PutContent(checksum string, r io.Reader, size int64) error {
	return v.put(v.key("content", checksum), r, size, "application/octet-stream")
}

// GetContent retrieves content by checksum and writes it to w.
func (v *S3Vault) GetContent(checksum string, w io.Writer) error {
	err := v.get(v.key("content", checksum), w)
	if isNoSuchKey(err) {
		return fmt.Errorf("content not found: %s", checksum)
	}
	return err
}

// ValidateSetup verifies that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{Bucket: aws.String(v.bucket)})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

// put buffers the body so a short read is caught before anything is
// uploaded; the previous object is never replaced by a truncated one.
func (v *S3Vault) put(key string, r io.Reader, size int64, contentType string) error {
	data, err := readExactly(r, size)
	if err != nil {
		return err
	}

	_, err = v.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket:      aws.String(v.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

func (v *S3Vault) get(key string, w io.Writer) error {
	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

// Compile-time check that S3Vault implements plantly.Vault interface
var _ plantly.Vault = (*S3Vault)(nil)
