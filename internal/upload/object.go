package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"training-app/internal/config"
	"training-app/internal/logger"
)

// ObjectStore keeps uploads in an S3-compatible bucket. Files are still
// served by the API under the public path so element URLs do not change
// with the backend.
type ObjectStore struct {
	client     *minio.Client
	bucket     string
	baseURL    string
	publicPath string
	maxSize    int64
	log        logger.Logger
}

// NewObjectStore connects to the bucket in cfg.S3 and creates it if it is missing.
func NewObjectStore(ctx context.Context, cfg config.UploadConfig, baseURL string, log logger.Logger) (*ObjectStore, error) {
	s3 := cfg.S3
	client, err := minio.New(s3.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s3.AccessKey, s3.SecretKey, ""),
		Secure: s3.UseSSL,
		Region: s3.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, s3.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", s3.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, s3.Bucket, minio.MakeBucketOptions{Region: s3.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", s3.Bucket, err)
		}
		log.Info("Created upload bucket " + s3.Bucket)
	}

	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &ObjectStore{
		client:     client,
		bucket:     s3.Bucket,
		baseURL:    baseURL,
		publicPath: cfg.PublicPath,
		maxSize:    maxSize,
		log:        log,
	}, nil
}

// Save uploads the file under a new unique object name.
func (s *ObjectStore) Save(ctx context.Context, f File) (string, error) {
	mediaType, err := checkType(f.MIMEType)
	if err != nil {
		return "", err
	}
	if f.Size > s.maxSize {
		return "", tooLarge(s.maxSize)
	}

	name := newFileName(extension(f.Name, mediaType))
	info, err := s.client.PutObject(ctx, s.bucket, name, io.LimitReader(f.Reader, s.maxSize+1), -1,
		minio.PutObjectOptions{ContentType: mediaType})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	if info.Size > s.maxSize {
		if rmErr := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); rmErr != nil {
			s.log.Error(rmErr, "Failed to remove oversized object "+name)
		}
		return "", tooLarge(s.maxSize)
	}

	s.log.With(map[string]interface{}{"object": name, "bytes": info.Size}).Debug("Upload stored")
	return publicURL(s.baseURL, s.publicPath, name), nil
}

// Delete removes the object behind url. S3 treats a missing key as deleted.
func (s *ObjectStore) Delete(ctx context.Context, url string) error {
	name := fileName(url, s.publicPath)
	if name == "" {
		return fmt.Errorf("url %q does not point at a stored upload", url)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	s.log.Debug("Upload removed: " + name)
	return nil
}

// Owns reports whether url resolves to an object name under the public path.
func (s *ObjectStore) Owns(url string) bool {
	return fileName(url, s.publicPath) != ""
}

// PublicPath is the URL prefix the files are served under.
func (s *ObjectStore) PublicPath() string {
	return s.publicPath
}

// Handler streams objects from the bucket. Mount it with the public path stripped.
func (s *ObjectStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" || strings.ContainsAny(name, `/\`) {
			http.NotFound(w, r)
			return
		}
		obj, err := s.client.GetObject(r.Context(), s.bucket, name, minio.GetObjectOptions{})
		if err != nil {
			s.log.Error(err, "Failed to open object "+name)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer obj.Close()

		stat, err := obj.Stat()
		if err != nil {
			if minio.ToErrorResponse(err).Code == "NoSuchKey" {
				http.NotFound(w, r)
				return
			}
			s.log.Error(err, "Failed to stat object "+name)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if stat.ContentType != "" {
			w.Header().Set("Content-Type", stat.ContentType)
		}
		http.ServeContent(w, r, name, stat.LastModified, obj)
	})
}
