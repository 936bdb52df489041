// Package s3 implements a datasource.Source backed by one object in an
// S3-compatible store (AWS S3, MinIO) through minio-go.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config identifies the object and how to reach it.
type Config struct {
	// Endpoint is host[:port] or a URL; an https:// scheme enables TLS.
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	Key       string
}

// Object streams a single object.
type Object struct {
	client *minio.Client
	bucket string
	key    string
}

// New validates cfg and builds the client. No request is made until Open.
func New(cfg Config) (*Object, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("s3: endpoint is required")
	}
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("s3: bucket and key are required")
	}
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	opts := &minio.Options{Secure: secure, Region: cfg.Region}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		opts.Creds = credentials.NewEnvAWS()
	}
	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return &Object{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

// parseEndpoint accepts "host:port" or "scheme://host:port".
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	if !strings.Contains(raw, "://") {
		return raw, useSSL, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("s3: invalid endpoint URL: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("s3: endpoint URL %q has no host", raw)
	}
	return u.Host, useSSL || u.Scheme == "https", nil
}

// Open starts streaming the object. The object is stat'ed first so a missing
// key or bad credentials fail here rather than on the first read.
func (o *Object) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3: get %s/%s: %w", o.bucket, o.key, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("s3: stat %s/%s: %w", o.bucket, o.key, describe(err))
	}
	return obj, nil
}

// describe adds the S3 error code to the message when there is one.
func describe(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code != "" {
		return fmt.Errorf("%s: %w", resp.Code, err)
	}
	return err
}
