package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// signedURLValidity is how long photo links handed to clients stay readable.
// V2 signing is used because V4 caps expiry at seven days.
const signedURLValidity = 10 * 365 * 24 * time.Hour

// GCS stores photos in a Google Cloud Storage bucket under
// uploads/<folder>/<name>.
type GCS struct {
	client     *storage.Client
	bucket     string
	accessID   string
	privateKey []byte
	now        func() time.Time
	logger     *zap.Logger
}

func NewGCS(ctx context.Context, bucket, credentialsFile string, logger *zap.Logger) (*GCS, error) {
	g := &GCS{bucket: bucket, now: time.Now, logger: logger}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))

		// The client can sign with the key it was given, but only when the
		// account email and key are spelled out.
		if data, err := os.ReadFile(credentialsFile); err == nil {
			if conf, err := google.JWTConfigFromJSON(data); err == nil {
				g.accessID = conf.Email
				g.privateKey = conf.PrivateKey
			} else {
				logger.Warn("credentials file is not a service account key, signed urls may fail", zap.Error(err))
			}
		}
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	g.client = client
	return g, nil
}

func (g *GCS) Kind() Kind { return KindCloud }

func (g *GCS) Store(ctx context.Context, obj Object) (string, error) {
	key := ObjectKey(obj.Folder, ImageFilename(g.now(), obj.Filename, obj.ContentType, obj.Data))

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = obj.ContentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := w.Write(obj.Data); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "writing gs://%s/%s", g.bucket, key)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "finalizing gs://%s/%s", g.bucket, key)
	}

	signed, err := g.signedURL(key)
	if err != nil {
		g.logger.Warn("signing photo url failed, falling back to public url",
			zap.String("key", key), zap.Error(err))
		return PublicGCSURL(g.bucket, key), nil
	}
	return signed, nil
}

func (g *GCS) signedURL(key string) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV2,
		Method:  http.MethodGet,
		Expires: g.now().Add(signedURLValidity),
	}
	if g.accessID != "" {
		opts.GoogleAccessID = g.accessID
		opts.PrivateKey = g.privateKey
	}
	return g.client.Bucket(g.bucket).SignedURL(key, opts)
}

func (g *GCS) Delete(ctx context.Context, ref string) error {
	key, err := ParseGCSKey(ref, g.bucket)
	if err != nil {
		return err
	}

	err = g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrapf(ErrObjectNotFound, "gs://%s/%s", g.bucket, key)
	}
	return errors.Wrapf(err, "deleting gs://%s/%s", g.bucket, key)
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// PublicGCSURL is the unsigned URL of an object in a publicly readable bucket.
func PublicGCSURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

// ParseGCSKey recovers the object key from any URL shape the bucket hands out:
// signed or direct path-style URLs, virtual-host URLs and firebase download
// URLs (/v0/b/<bucket>/o/<escaped key>).
func ParseGCSKey(ref, bucket string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "", errors.Wrapf(ErrUnrecognizedReference, "%q", ref)
	}

	host := strings.ToLower(u.Hostname())
	var key string
	switch {
	case host == "storage.googleapis.com":
		key = strings.TrimPrefix(u.Path, "/"+bucket+"/")
		if key == u.Path {
			return "", errors.Wrapf(ErrUnrecognizedReference, "%q is not in bucket %s", ref, bucket)
		}
	case host == bucket+".storage.googleapis.com":
		key = strings.TrimPrefix(u.Path, "/")
	case host == "firebasestorage.googleapis.com":
		marker := "/v0/b/" + bucket + "/o/"
		if !strings.HasPrefix(u.Path, marker) {
			return "", errors.Wrapf(ErrUnrecognizedReference, "%q is not in bucket %s", ref, bucket)
		}
		key = strings.TrimPrefix(u.Path, marker)
	default:
		return "", errors.Wrapf(ErrUnrecognizedReference, "%q", ref)
	}

	if key == "" {
		return "", errors.Wrapf(ErrUnrecognizedReference, "%q has no object key", ref)
	}
	return key, nil
}
