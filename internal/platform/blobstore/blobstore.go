// Package blobstore archives uploaded documents (claim bills, lab reports)
// under per-user keys. It defines the Store interface, an in-memory store for
// development and tests, and an S3-backed store for deployed environments.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrBlobNotFound        = errors.New("blob not found")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType  = errors.New("content type is not allowed")
	ErrMissingFileName     = errors.New("file name is required")
	ErrPresignNotSupported = errors.New("store does not issue download links")
)

// MaxFileSize is the largest document the store accepts (25 MB).
const MaxFileSize = 25 * 1024 * 1024

// Document kinds, used as the second key segment.
const (
	KindBill      = "bills"
	KindLabReport = "lab-reports"
)

// AllowedContentTypes are the formats the extraction service can read.
var AllowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// Metadata describes a stored document.
type Metadata struct {
	Key         string    `json:"key"`
	UserID      string    `json:"user_id"`
	Kind        string    `json:"kind"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is implemented by MemoryStore and S3Store.
type Store interface {
	Put(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *Metadata, error)
	List(ctx context.Context, userID, kind string, limit, offset int) ([]*Metadata, int, error)
	DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// NewKey returns users/<user>/<kind>/<ulid>-<file>. ULIDs sort by creation
// time so a reverse key sort lists newest first.
func NewKey(userID, kind, fileName string) string {
	return fmt.Sprintf("users/%s/%s/%s-%s", userID, kind, ulid.Make().String(), sanitizeFileName(fileName))
}

// UserPrefix is the key prefix of every document belonging to userID, or of
// one kind when kind is non-empty.
func UserPrefix(userID, kind string) string {
	if kind == "" {
		return "users/" + userID + "/"
	}
	return "users/" + userID + "/" + kind + "/"
}

// parseKey recovers user, kind and original file name from a key built by NewKey.
func parseKey(key string) (userID, kind, fileName string, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != "users" {
		return "", "", "", false
	}
	_, name, found := strings.Cut(parts[3], "-")
	if !found {
		name = parts[3]
	}
	return parts[1], parts[2], name, true
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "document"
	}
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	return out
}

// DetectContentType resolves the MIME type of an upload from its declared
// type, its extension and finally its leading bytes, and rejects anything
// other than JPEG, PNG or PDF.
func DetectContentType(fileName, declared string, head []byte) (string, error) {
	declared = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	if AllowedContentTypes[declared] {
		return declared, nil
	}
	if ct, ok := extensionTypes[extOf(fileName)]; ok {
		return ct, nil
	}
	if len(head) > 0 {
		sniffed := strings.Split(http.DetectContentType(head), ";")[0]
		if AllowedContentTypes[sniffed] {
			return sniffed, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidContentType, fileName)
}

// ContentTypeByExtension maps a JPEG, PNG or PDF file name to its MIME type
// by extension alone, ignoring case.
func ContentTypeByExtension(fileName string) (string, bool) {
	ct, ok := extensionTypes[extOf(fileName)]
	return ct, ok
}

func extOf(name string) string {
	return strings.ToLower(path.Ext(name))
}

// readAll reads content into memory, enforcing MaxFileSize, and fills the
// size and hash fields of meta.
func readAll(meta *Metadata, content io.Reader) ([]byte, error) {
	if meta.FileName == "" {
		return nil, ErrMissingFileName
	}
	if !AllowedContentTypes[meta.ContentType] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentType, meta.ContentType)
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	sum := sha256.Sum256(data)
	meta.Size = int64(len(data))
	meta.Hash = hex.EncodeToString(sum[:])
	if meta.Key == "" {
		meta.Key = NewKey(meta.UserID, meta.Kind, meta.FileName)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	return data, nil
}

// page sorts newest first and returns the requested window with the total.
func page(items []*Metadata, limit, offset int) ([]*Metadata, int) {
	sort.Slice(items, func(i, j int) bool { return items[i].Key > items[j].Key })

	total := len(items)
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total
}
