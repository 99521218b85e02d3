package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Uploader is the subset of manager.Uploader used by Archive.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Options configures NewArchive.
type Options struct {
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Passphrase turns on GCM3NCR0 encryption of archived bytes.
	Passphrase string
}

// Archive stores uploaded documents in S3.
type Archive struct {
	uploader   Uploader
	bucket     string
	prefix     string
	passphrase string
}

// NewArchive loads AWS config (static credentials when both keys are set,
// otherwise the default chain) and returns an Archive for opts.Bucket.
func NewArchive(ctx context.Context, opts Options) (*Archive, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("archive bucket not configured")
	}
	var loadOpts []func(*awscfg.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewArchiveWithUploader(manager.NewUploader(s3.NewFromConfig(cfg)), opts), nil
}

// NewArchiveWithUploader builds an Archive around an existing uploader.
func NewArchiveWithUploader(u Uploader, opts Options) *Archive {
	return &Archive{uploader: u, bucket: opts.Bucket, prefix: strings.Trim(opts.Prefix, "/"), passphrase: opts.Passphrase}
}

// Key returns the object key for a document of a report.
func (a *Archive) Key(reportID, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload.pdf"
	}
	key := path.Join("uploads", reportID, name)
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}
	return key
}

// Put uploads data and returns its s3:// URL.
func (a *Archive) Put(ctx context.Context, reportID, name string, data []byte) (string, error) {
	key := a.Key(reportID, name)
	body := data
	meta := map[string]string{
		"name":        name,
		"report-id":   reportID,
		"uploaded-at": time.Now().UTC().Format(time.RFC3339),
		"encrypted":   "false",
	}
	if a.passphrase != "" {
		enc, err := Encrypt(data, a.passphrase)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt data: %w", err)
		}
		body = enc
		meta["encrypted"] = "true"
		meta["encryption-format"] = gcmMagic
	}

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/pdf"),
		Metadata:    meta,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	url := fmt.Sprintf("s3://%s/%s", a.bucket, key)
	log.Info().Str("key", key).Str("report_id", reportID).Bool("encrypted", a.passphrase != "").Msg("archived upload to S3")
	return url, nil
}
