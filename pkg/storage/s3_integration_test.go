//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
)

// TestS3Store_LocalStack runs the S3 backend against LocalStack.
// Requires Docker.
func TestS3Store_LocalStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := localstack.RunContainer(ctx,
		testcontainers.WithImage("localstack/localstack:3.0"),
	)
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}()

	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
	require.NoError(t, err)

	cfg, err := LoadAWSConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test", SessionToken: "test"}, nil
		})),
	)
	require.NoError(t, err)

	store := NewS3Store(cfg, "assetpulse-reports", func(o *s3.Options) { o.UsePathStyle = true })
	_, err = store.Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(store.Bucket)})
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "press-7/report.json", []byte(`{"health_score":83}`)))

	data, err := store.Get(ctx, "press-7/report.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"health_score":83}`, string(data))

	keys, err := store.List(ctx, "press-7/")
	require.NoError(t, err)
	assert.Equal(t, []string{"press-7/report.json"}, keys)

	_, err = store.Get(ctx, "press-7/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}
