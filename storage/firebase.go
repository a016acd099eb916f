package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const publicHost = "https://storage.googleapis.com/"

// FirebaseClient stores objects in a Firebase (Cloud Storage) bucket and
// returns public URLs as references.
type FirebaseClient struct {
	app    *firebase.App
	bucket string
	log    *zap.Logger
}

// NewFirebaseClient initialises the Firebase app. credentials may be a JSON
// document or a path to a service account file; empty falls back to default
// credentials.
func NewFirebaseClient(ctx context.Context, bucket, credentials string, log *zap.Logger) (*FirebaseClient, error) {
	if bucket == "" {
		return nil, fmt.Errorf("FIREBASE_STORAGE_BUCKET not set")
	}

	var opts []option.ClientOption
	switch {
	case strings.HasPrefix(credentials, "{"):
		log.Info("using firebase credentials from environment variable")
		opts = append(opts, option.WithCredentialsJSON([]byte(credentials)))
	case credentials != "":
		log.Info("using firebase credentials from file", zap.String("path", credentials))
		opts = append(opts, option.WithCredentialsFile(credentials))
	default:
		log.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using default credentials")
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	log.Info("firebase initialized", zap.String("bucket", bucket))
	return &FirebaseClient{app: app, bucket: bucket, log: log}, nil
}

func (f *FirebaseClient) bucketHandle(ctx context.Context) (*gcs.BucketHandle, error) {
	client, err := f.app.Storage(ctx)
	if err != nil {
		return nil, err
	}
	return client.Bucket(f.bucket)
}

func (f *FirebaseClient) Upload(ctx context.Context, kind Kind, filename, contentType string, r io.Reader) (string, error) {
	bucket, err := f.bucketHandle(ctx)
	if err != nil {
		return "", err
	}

	objectPath := objectName(kind, filename)
	obj := bucket.Object(objectPath)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	// Public ACL so the URL works without authentication.
	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		f.log.Warn("failed to set public ACL", zap.String("object", objectPath), zap.Error(err))
	}

	return publicHost + f.bucket + "/" + objectPath, nil
}

func (f *FirebaseClient) Delete(ctx context.Context, ref string) error {
	objectPath, err := ExtractObjectPath(ref)
	if err != nil {
		return err
	}

	bucket, err := f.bucketHandle(ctx)
	if err != nil {
		return err
	}

	if err := bucket.Object(objectPath).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete object %s: %w", objectPath, err)
	}

	f.log.Debug("deleted object", zap.String("object", objectPath), zap.String("bucket", f.bucket))
	return nil
}

// ExtractObjectPath extracts the object path from a public storage URL.
func ExtractObjectPath(url string) (string, error) {
	if !strings.HasPrefix(url, publicHost) {
		return "", fmt.Errorf("invalid URL")
	}

	// Remove host and bucket name
	path := strings.TrimPrefix(url, publicHost)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("invalid URL format")
	}

	return parts[1], nil
}
