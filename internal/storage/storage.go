// Package storage keeps exported files. Exports are written once, served by
// name and purged after a retention period, so the interface is a flat
// object store: Put, Open, Delete and List.
//
// Backends:
//
//   - local: a directory on disk (the default, "uploads/exports")
//   - s3:    an AWS S3 bucket via aws-sdk-go-v2
//   - minio: any S3-compatible endpoint via minio-go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("export not found")

// ErrInvalidName is returned for names that are not a single path element.
var ErrInvalidName = errors.New("invalid object name")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Store is a flat namespace of immutable objects.
type Store interface {
	// Put writes r under name, replacing any previous object.
	// size may be -1 when unknown.
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	// Open returns the object's content. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes name. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
	// List returns every object, sorted by name.
	List(ctx context.Context) ([]ObjectInfo, error)
}

// Backend names accepted by Config.Backend.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendMinIO = "minio"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Dir     string // local

	Bucket string // s3, minio
	Prefix string // s3, minio
	Region string // s3, minio

	Endpoint  string // minio
	AccessKey string // minio
	SecretKey string // minio
	UseSSL    bool   // minio
}

// New builds the backend named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendLocal:
		return NewLocal(cfg.Dir)
	case BackendS3:
		return NewS3FromConfig(ctx, cfg.Bucket, cfg.Prefix, cfg.Region)
	case BackendMinIO:
		return NewMinIOFromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown export backend %q", cfg.Backend)
	}
}

// ValidateName rejects empty names, path separators and dot segments.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ContentType returns the MIME type for an export name.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".xlsx", ".xls":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// objectKey joins a bucket prefix and an object name.
func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// trimKey strips a bucket prefix from a key.
func trimKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	key = strings.TrimPrefix(key, strings.TrimSuffix(prefix, "/"))
	return strings.TrimPrefix(key, "/")
}
