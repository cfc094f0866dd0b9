// Package storage holds the interchangeable photo stores. Exactly one Backend
// is active per deployment; callers receive it as a value and never look at
// the environment themselves.
package storage

import (
	"context"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// Kind identifies which family of store a reference belongs to.
type Kind string

const (
	KindNone    Kind = ""
	KindLocal   Kind = "local"
	KindCloud   Kind = "cloud"
	KindUnknown Kind = "unknown"
)

const keyRoot = "uploads"

var (
	ErrNotImage              = errors.New("uploaded file is not an image")
	ErrObjectNotFound        = errors.New("stored object not found")
	ErrUnrecognizedReference = errors.New("unrecognized photo reference")
)

// Object is a photo ready to be written to a backend.
type Object struct {
	Data        []byte
	Filename    string
	ContentType string
	Folder      string
}

// Backend is a photo store.
type Backend interface {
	Kind() Kind
	// Store writes the object under its folder and returns the reference
	// that should be persisted on the report.
	Store(ctx context.Context, obj Object) (string, error)
	// Delete removes the object a reference points to. A reference whose
	// object is already gone yields ErrObjectNotFound or nil, never a
	// different error.
	Delete(ctx context.Context, ref string) error
}

// Relocator is implemented by backends that can move an object into a
// different folder while keeping its file name.
type Relocator interface {
	Relocate(ctx context.Context, ref, folder string) (string, error)
}

var cloudHosts = []string{
	"storage.googleapis.com",
	"firebasestorage.googleapis.com",
	"res.cloudinary.com",
}

// KindOf infers the backend family from the shape of a reference: a leading
// slash is a local path, a URL on a known object-store host is cloud.
func KindOf(ref string) Kind {
	if ref == "" {
		return KindNone
	}
	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
		return KindLocal
	}

	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return KindUnknown
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range cloudHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return KindCloud
		}
	}
	return KindUnknown
}

// GenerateFilename builds "<timestamp>_<base><ext>" where the timestamp is
// ISO-8601 in UTC, truncated to seconds, with colons replaced by dashes.
// Two uploads of the same original name within one second collide.
func GenerateFilename(now time.Time, original string) string {
	ts := strings.ReplaceAll(now.UTC().Format("2006-01-02T15:04:05"), ":", "-")

	base := path.Base(filepath.ToSlash(strings.ReplaceAll(original, `\`, "/")))
	if base == "." || base == "/" {
		base = ""
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "photo"
	}
	return ts + "_" + stem + ext
}

// ImageFilename is GenerateFilename with the extension forced to agree with
// the payload's sniffed type, so anything serving the file by extension
// reports the type the bytes actually have. contentType, when it names a
// known type, is trusted over sniffing.
func ImageFilename(now time.Time, original, contentType string, data []byte) string {
	name := GenerateFilename(now, original)

	mt := mimetype.Lookup(strings.ToLower(strings.TrimSpace(contentType)))
	if mt == nil {
		mt = mimetype.Detect(data)
	}

	ext := path.Ext(name)
	if ext != "" {
		if byExt, _, err := mime.ParseMediaType(mime.TypeByExtension(ext)); err == nil && mt.Is(byExt) {
			return name
		}
	}
	return strings.TrimSuffix(name, ext) + mt.Extension()
}

// ObjectKey is the cloud object key for a generated file name.
func ObjectKey(folder, name string) string {
	return path.Join(keyRoot, folder, name)
}

// DetectImage sniffs the payload and returns its MIME type. Anything that is
// not image/* by content, or that the client declared as non-image, is
// rejected with ErrNotImage. application/octet-stream counts as undeclared.
func DetectImage(data []byte, declared string) (string, error) {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != "application/octet-stream" && !strings.HasPrefix(declared, "image/") {
		return "", errors.Wrapf(ErrNotImage, "declared type %q", declared)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", errors.Wrapf(ErrNotImage, "detected type %q", mt.String())
	}
	return mt.String(), nil
}
