package storage

import (
	"bytes"
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"
)

type Cloudinary struct {
	CLD *cloudinary.Cloudinary
	now func() time.Time
}

func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, errors.Wrap(err, "initializing cloudinary")
	}

	return &Cloudinary{CLD: cld, now: time.Now}, nil
}

func (c *Cloudinary) Kind() Kind { return KindCloud }

func (c *Cloudinary) Store(ctx context.Context, obj Object) (string, error) {
	name := GenerateFilename(c.now(), obj.Filename)
	publicID := strings.TrimSuffix(name, path.Ext(name))

	resp, err := c.CLD.Upload.Upload(ctx, bytes.NewReader(obj.Data), uploader.UploadParams{
		Folder:   path.Join(keyRoot, obj.Folder),
		PublicID: publicID,
	})
	if err != nil {
		return "", errors.Wrap(err, "uploading to cloudinary")
	}
	if resp.Error.Message != "" {
		return "", errors.Errorf("uploading to cloudinary: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

func (c *Cloudinary) Delete(ctx context.Context, ref string) error {
	publicID, err := ParseCloudinaryPublicID(ref)
	if err != nil {
		return err
	}

	resp, err := c.CLD.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return errors.Wrapf(err, "destroying %s", publicID)
	}
	if resp.Error.Message != "" {
		return errors.Errorf("destroying %s: %s", publicID, resp.Error.Message)
	}
	if resp.Result == "not found" {
		return errors.Wrapf(ErrObjectNotFound, "%s", publicID)
	}
	return nil
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// ParseCloudinaryPublicID turns a delivery URL such as
// https://res.cloudinary.com/<cloud>/image/upload/v171/uploads/road/x.jpg
// back into the public id "uploads/road/x".
func ParseCloudinaryPublicID(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil || !strings.EqualFold(u.Hostname(), "res.cloudinary.com") {
		return "", errors.Wrapf(ErrUnrecognizedReference, "%q", ref)
	}

	_, rest, found := strings.Cut(u.Path, "/upload/")
	if !found || rest == "" {
		return "", errors.Wrapf(ErrUnrecognizedReference, "%q has no upload path", ref)
	}

	parts := strings.Split(rest, "/")
	if len(parts) > 1 && versionSegment.MatchString(parts[0]) {
		parts = parts[1:]
	}
	id := strings.Join(parts, "/")
	return strings.TrimSuffix(id, path.Ext(id)), nil
}
