package blob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azblobpkg "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"
)

// AzureStore keeps buckets as Azure Blob Storage containers.
type AzureStore struct {
	client  *azblob.Client
	baseURL string
	logger  *zap.Logger
}

// NewAzureStore creates an AzureStore from a storage account connection string.
func NewAzureStore(connStr string, logger *zap.Logger) (*AzureStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	client, err := azblob.NewClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, fmt.Errorf("create azure blob client: %w", err)
	}
	return &AzureStore{
		client:  client,
		baseURL: strings.TrimRight(client.URL(), "/"),
		logger:  logger,
	}, nil
}

// Upload writes data to bucket/path. Without overwrite an existing blob yields ErrExists.
func (s *AzureStore) Upload(ctx context.Context, bucket, path string, data []byte, contentType string, overwrite bool) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	opts := &azblob.UploadBufferOptions{
		HTTPHeaders: &azblobpkg.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	}
	if !overwrite {
		opts.AccessConditions = &azblobpkg.AccessConditions{
			ModifiedAccessConditions: &azblobpkg.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		}
	}
	if _, err := s.client.UploadBuffer(ctx, bucket, path, data, opts); err != nil {
		if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
			return ErrExists
		}
		return err
	}
	return nil
}

// Remove deletes every path, skipping blobs that are already gone.
func (s *AzureStore) Remove(ctx context.Context, bucket string, paths []string) error {
	for _, path := range paths {
		if err := ValidatePath(path); err != nil {
			return err
		}
		if _, err := s.client.DeleteBlob(ctx, bucket, path, nil); err != nil {
			if bloberror.HasCode(err, bloberror.BlobNotFound) {
				s.logger.Debug("blob already removed", zap.String("bucket", bucket), zap.String("path", path))
				continue
			}
			return err
		}
	}
	return nil
}

// PublicURL returns the container URL of the blob.
func (s *AzureStore) PublicURL(bucket, path string) string {
	return s.baseURL + "/" + bucket + "/" + path
}
