package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// RemoteStore keeps files in an S3-compatible bucket under
// <prefix>/<session_id>/<file>.
type RemoteStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewRemoteStore creates a remote store from the BUCKET_* environment
// variables.
func NewRemoteStore() (*RemoteStore, error) {
	endpoint := os.Getenv("BUCKET_ENDPOINT")
	accessKey := os.Getenv("BUCKET_ACCESS_KEY")
	secretKey := os.Getenv("BUCKET_SECRET_KEY")
	bucket := os.Getenv("BUCKET_NAME")
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("remote upload requires BUCKET_ENDPOINT, BUCKET_ACCESS_KEY, BUCKET_SECRET_KEY and BUCKET_NAME")
	}

	prefix := os.Getenv("BUCKET_PREFIX")
	if prefix == "" {
		prefix = "documents"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: os.Getenv("BUCKET_USE_SSL") != "false",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket client: %w", err)
	}

	return &RemoteStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (r *RemoteStore) Save(sessionID, fileName string, content []byte) (string, error) {
	key := path.Join(r.prefix, sessionID, fileName)
	_, err := r.client.PutObject(context.Background(), r.bucket, key,
		bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to upload document object: %w", err)
	}
	return key, nil
}

func (r *RemoteStore) Load(objectKey string) ([]byte, error) {
	obj, err := r.client.GetObject(context.Background(), r.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document object: %w", err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read document object: %w", err)
	}
	return content, nil
}

func (r *RemoteStore) Remote() bool { return true }
