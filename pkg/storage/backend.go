// Package storage publishes reports and history ledgers to the local
// filesystem or S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/version"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("storage: object not found")

// BlobStore defines the interface for abstract storage backends.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Open resolves a destination into a store and the key inside it.
// "s3://bucket/path/report.json" selects S3 with the shared AWS config;
// anything else is a local path whose directory becomes the store root.
func Open(ctx context.Context, target string) (BlobStore, string, error) {
	if target == "" {
		return nil, "", fmt.Errorf("storage: empty destination")
	}
	if strings.HasPrefix(target, "s3://") {
		u, err := url.Parse(target)
		if err != nil {
			return nil, "", fmt.Errorf("storage: invalid s3 url: %w", err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, "", fmt.Errorf("storage: s3 url needs bucket and key: %s", target)
		}
		cfg, err := LoadAWSConfig(ctx)
		if err != nil {
			return nil, "", err
		}
		return NewS3Store(cfg, u.Host), key, nil
	}
	return NewLocalStore(filepath.Dir(target)), filepath.Base(target), nil
}

// LoadAWSConfig loads the shared AWS config. AWS_ENDPOINT_URL overrides the
// endpoint (LocalStack, MinIO) and every request is tagged with the
// application User-Agent.
func LoadAWSConfig(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
	opts := optFns
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("storage: load aws config: %w", err)
	}

	agent := fmt.Sprintf("%s/%s", version.AppName, version.Current)
	cfg.APIOptions = append(cfg.APIOptions, func(stack *middleware.Stack) error {
		return stack.Build.Add(middleware.BuildMiddlewareFunc("AppUserAgent", func(ctx context.Context, input middleware.BuildInput, next middleware.BuildHandler) (
			middleware.BuildOutput, middleware.Metadata, error,
		) {
			if req, ok := input.Request.(*smithyhttp.Request); ok {
				ua := req.Header.Get("User-Agent")
				if ua == "" {
					req.Header.Set("User-Agent", agent)
				} else {
					req.Header.Set("User-Agent", ua+" "+agent)
				}
			}
			return next.HandleBuild(ctx, input)
		}), middleware.After)
	})
	return cfg, nil
}
