// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package storage stores user avatars in an S3-compatible bucket.

Objects are streamed straight from the request body to the bucket. The key
of an object doubles as its public id, which is what the account row keeps
so the avatar can be deleted later.
*/
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// avatarPrefix namespaces avatar keys inside the bucket.
const avatarPrefix = "avatars/"

// Config holds the bucket coordinates and credentials.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	// PublicURL is the base URL objects are served from. When empty, URLs
	// are built from Endpoint and Bucket in path style.
	PublicURL string
}

// Object is an uploaded file.
type Object struct {
	URL      string
	PublicID string
}

// ObjectAPI is the subset of [*s3.Client] used here.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Storage uploads and deletes avatar objects.
type Storage struct {
	client  ObjectAPI
	bucket  string
	baseURL string
	logger  *slog.Logger
}

/*
New builds an S3 client from static credentials.

Parameters:
  - ctx: used while loading the shared AWS configuration
  - cfg: bucket settings

Returns:
  - *Storage: ready to upload
  - error: when the AWS configuration cannot be loaded
*/
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client ObjectAPI, cfg Config, logger *slog.Logger) *Storage {
	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &Storage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

/*
Upload streams body to a new object.

The object key is a random id under "avatars/", keeping the extension of
name (or one derived from contentType) so browsers render it directly.

Returns:
  - *Object: public URL and the id to pass to [Storage.Delete]
  - error: wrapped S3 failure
*/
func (storage *Storage) Upload(ctx context.Context, name string, body io.Reader, contentType string) (*Object, error) {
	key := avatarPrefix + uuid.NewString() + extension(name, contentType)

	input := &s3.PutObjectInput{
		Bucket: aws.String(storage.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := storage.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("storage: put %s: %w", key, err)
	}

	storage.logger.InfoContext(ctx, "avatar_uploaded", slog.String("public_id", key))
	return &Object{URL: storage.baseURL + "/" + key, PublicID: key}, nil
}

// Delete removes the object with publicID. S3 treats a missing key as success.
func (storage *Storage) Delete(ctx context.Context, publicID string) error {
	_, err := storage.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(storage.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", publicID, err)
	}

	storage.logger.InfoContext(ctx, "avatar_deleted", slog.String("public_id", publicID))
	return nil
}

func extension(name, contentType string) string {
	if ext := strings.ToLower(path.Ext(name)); ext != "" {
		return ext
	}
	if contentType == "" {
		return ""
	}
	extensions, err := mime.ExtensionsByType(contentType)
	if err != nil || len(extensions) == 0 {
		return ""
	}
	return extensions[0]
}
