package storage

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Local stores photos on disk under root/<folder>/<name> and hands out
// references of the form <prefix>/<folder>/<name>.
type Local struct {
	root   string
	prefix string
	now    func() time.Time
	rename func(oldpath, newpath string) error
	remove func(name string) error
}

// DefaultURLPrefix is used when the configured prefix is empty or "/".
const DefaultURLPrefix = "/uploads"

func NewLocal(root, urlPrefix string) *Local {
	prefix := "/" + strings.Trim(urlPrefix, "/")
	if prefix == "/" {
		prefix = DefaultURLPrefix
	}
	return &Local{root: root, prefix: prefix, now: time.Now, rename: os.Rename, remove: os.Remove}
}

func (l *Local) Kind() Kind { return KindLocal }

// Root is the directory photos are written under.
func (l *Local) Root() string { return l.root }

// Prefix is the URL prefix local references start with.
func (l *Local) Prefix() string { return l.prefix }

func (l *Local) Store(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(l.root, obj.Folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating upload directory %s", dir)
	}

	name := ImageFilename(l.now(), obj.Filename, obj.ContentType, obj.Data)
	if err := os.WriteFile(filepath.Join(dir, name), obj.Data, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", name)
	}
	return path.Join(l.prefix, obj.Folder, name), nil
}

func (l *Local) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := l.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %s", p)
	}
	return nil
}

// Relocate moves the referenced file into folder, keeping its name. It tries
// a rename first and falls back to copy-then-remove when the rename fails,
// e.g. across devices.
func (l *Local) Relocate(ctx context.Context, ref, folder string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := l.Path(ref)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrObjectNotFound, "%s", ref)
		}
		return "", errors.Wrapf(err, "stat %s", src)
	}

	name := filepath.Base(src)
	dstDir := filepath.Join(l.root, folder)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating upload directory %s", dstDir)
	}
	dst := filepath.Join(dstDir, name)
	newRef := path.Join(l.prefix, folder, name)
	if dst == src {
		return newRef, nil
	}

	if renameErr := l.rename(src, dst); renameErr != nil {
		if err := copyFile(src, dst); err != nil {
			return "", errors.Wrapf(err, "moving %s after rename failed (%v)", src, renameErr)
		}
		if err := l.remove(src); err != nil {
			// the report keeps ref, so the copy must not outlive it
			if rmErr := os.Remove(dst); rmErr != nil {
				return "", errors.Wrapf(err, "removing %s after copy, copy %s left behind (%v)", src, dst, rmErr)
			}
			return "", errors.Wrapf(err, "removing %s after copy", src)
		}
	}
	return newRef, nil
}

// Open returns the stored bytes behind a reference.
func (l *Local) Open(ref string) (io.ReadCloser, error) {
	p, err := l.Path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrObjectNotFound, "%s", ref)
	}
	return f, err
}

// Path maps a reference back onto the file system, refusing references that
// are outside the prefix or that climb out of the upload root.
func (l *Local) Path(ref string) (string, error) {
	if !strings.HasPrefix(ref, l.prefix+"/") {
		return "", errors.Wrapf(ErrUnrecognizedReference, "%q is not under %s", ref, l.prefix)
	}

	rel := strings.TrimPrefix(ref, l.prefix+"/")
	clean := path.Clean("/" + rel)
	if clean == "/" || clean != "/"+rel {
		return "", errors.Wrapf(ErrUnrecognizedReference, "%q", ref)
	}
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
