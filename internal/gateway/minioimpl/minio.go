package minioimpl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/xkdemo/moments/internal/gateway"
	"github.com/xkdemo/moments/pkg/config"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
	"github.com/xkdemo/moments/pkg/logger"
)

// Objects is the object store backed by an S3-compatible server.
type Objects struct {
	client  *minio.Client
	logger  logger.Logger
	baseURL string
}

func New(cfg *config.Config, log logger.Logger) (*Objects, error) {
	client, err := minio.New(strings.TrimPrefix(strings.TrimPrefix(cfg.Storage.Endpoint, "http://"), "https://"), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return NewWithClient(client, cfg.Storage.PublicBaseURL, log), nil
}

// NewWithClient uses baseURL for public links, falling back to the client's endpoint.
func NewWithClient(client *minio.Client, baseURL string, log logger.Logger) *Objects {
	if baseURL == "" {
		baseURL = client.EndpointURL().String()
	}
	return &Objects{
		client:  client,
		logger:  log.WithComponent("ObjectGateway"),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

var _ gateway.ObjectStore = (*Objects)(nil)

// Upload overwrites any object already stored at path.
func (o *Objects) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	_, err := o.client.PutObject(ctx, bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		o.logger.Error("Upload failed", "bucket", bucket, "path", path, "error", err)
		return classify(err, "upload "+path)
	}
	o.logger.Debug("Uploaded object", "bucket", bucket, "path", path, "size", len(data))
	return nil
}

func (o *Objects) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/%s/%s", o.baseURL, bucket, strings.TrimLeft(path, "/"))
}

func (o *Objects) Remove(ctx context.Context, bucket, path string) error {
	if err := o.client.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return classify(err, "remove "+path)
	}
	return nil
}

// EnsureBucket creates bucket if it is missing.
func (o *Objects) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := o.client.BucketExists(ctx, bucket)
	if err != nil {
		return classify(err, "bucket exists "+bucket)
	}
	if exists {
		return nil
	}
	if err := o.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return classify(err, "make bucket "+bucket)
	}
	o.logger.Info("Created bucket", "bucket", bucket)
	return nil
}

func classify(err error, op string) error {
	switch {
	case errors.Is(err, context.Canceled):
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeCancelled, op)
	case errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeNetwork, op)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeNetwork, op)
	}

	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchBucket" || resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound:
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeNotFound, op)
	case resp.Code == "AccessDenied" || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeUnauthorized, op)
	case resp.StatusCode >= http.StatusInternalServerError:
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeNetwork, op)
	}
	return pkgerrors.Wrap(err, op)
}
