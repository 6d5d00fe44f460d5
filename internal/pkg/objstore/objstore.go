// Package objstore archives original PDFs to S3-compatible storage. The
// archive is optional; an unconfigured bucket disables it.
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appcfg "github.com/paperlens/core/internal/config"
)

// Archive stores raw document payloads under a key prefix.
type Archive struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds an Archive from config. Returns (nil, nil) when the bucket is
// unset so callers can treat the archive as absent.
func New(cfg appcfg.ArchiveConfig) (*Archive, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, nil
	}
	if strings.TrimSpace(cfg.Region) == "" || strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("objstore: incomplete archive config, region/access_key/secret_key are required")
	}

	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Archive{client: client, bucket: bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// PutPDF archives one document's PDF bytes and returns the object key.
func (a *Archive) PutPDF(ctx context.Context, docID string, pdf []byte) (string, error) {
	key := path.Join(a.prefix, sanitizeKey(docID)+".pdf")
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("archive pdf %q: %w", docID, err)
	}
	return key, nil
}

func sanitizeKey(docID string) string {
	replacer := strings.NewReplacer(":", "_", "/", "_", " ", "_")
	return replacer.Replace(docID)
}
