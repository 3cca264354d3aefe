// Package minio is the fallback vault: values are encrypted locally with the
// room passphrase and the ciphertexts parked in an object store. Deployments
// with a hosted vault swap this out behind model.Vault.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/envpass/envpass-server/internal/model"
	"github.com/envpass/envpass-server/internal/vault/cipher"
)

// vaultObjectPrefix marks IDs minted by this vault so they are recognizable
// in audit trails and logs without being guessable.
const vaultObjectPrefix = "vlt_"

// Internal adapter interface to enable mocking without a real MinIO server.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Wrapper to adapt *minio.Client to minioAPI.
type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}
func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}
func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}
func (w minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}
func (w minioClientWrapper) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return w.c.RemoveObject(ctx, bucketName, objectName, opts)
}

var _ model.Vault = (*Client)(nil)

type Client struct {
	api    minioAPI
	bucket string
}

// NewClient creates a vault client using a real *minio.Client instance.
func NewClient(ctx context.Context, client *minio.Client, bucket string) (*Client, error) {
	return NewClientWithAPI(ctx, minioClientWrapper{c: client}, bucket)
}

// NewClientWithAPI allows injecting a mockable API (used in tests).
func NewClientWithAPI(ctx context.Context, api minioAPI, bucket string) (*Client, error) {
	c := &Client{
		api:    api,
		bucket: bucket,
	}

	if err := c.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return c, nil
}

func (c *Client) ensureBucketExists(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// CreateObject encrypts value under the passphrase, stores the ciphertext
// and returns the minted object ID.
func (c *Client) CreateObject(ctx context.Context, passphrase, value string) (string, error) {
	sealed, err := cipher.Seal(passphrase, value)
	if err != nil {
		return "", fmt.Errorf("failed to seal value: %w", err)
	}

	id := vaultObjectPrefix + uuid.NewString()
	_, err = c.api.PutObject(ctx, c.bucket, id, bytes.NewReader([]byte(sealed)), int64(len(sealed)), minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to store vault object: %w", errors.Join(model.ErrExternalDependency, err))
	}

	return id, nil
}

// ReadObject fetches and decrypts the object. An unknown ID maps to
// ErrNotFound; transport failures map to ErrExternalDependency.
func (c *Client) ReadObject(ctx context.Context, passphrase, id string) (string, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get vault object: %w", errors.Join(model.ErrExternalDependency, err))
	}
	defer obj.Close()

	sealed, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("failed to read vault object: %w", errors.Join(model.ErrExternalDependency, err))
	}

	value, err := cipher.Open(passphrase, string(sealed))
	if err != nil {
		return "", fmt.Errorf("failed to open vault object: %w", err)
	}
	return value, nil
}

// DeleteObject removes the ciphertext. Deleting an unknown ID is a no-op so
// best-effort purges can retry freely.
func (c *Client) DeleteObject(ctx context.Context, id string) error {
	err := c.api.RemoveObject(ctx, c.bucket, id, minio.RemoveObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("failed to delete vault object: %w", errors.Join(model.ErrExternalDependency, err))
	}
	return nil
}
