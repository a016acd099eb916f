package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalClient writes objects under Dir and returns references rooted at
// URLPrefix (for example "/uploads/submissions/..."). The router serves Dir
// at URLPrefix.
type LocalClient struct {
	Dir       string
	URLPrefix string
}

func NewLocalClient(dir, urlPrefix string) (*LocalClient, error) {
	for _, k := range []Kind{KindProfile, KindBanner, KindSubmission} {
		if err := os.MkdirAll(filepath.Join(dir, string(k)), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &LocalClient{Dir: dir, URLPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

func (l *LocalClient) Upload(ctx context.Context, kind Kind, filename, contentType string, r io.Reader) (string, error) {
	name := objectName(kind, filename)
	dst := filepath.Join(l.Dir, filepath.FromSlash(name))

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}
	return l.URLPrefix + "/" + name, nil
}

func (l *LocalClient) Delete(ctx context.Context, ref string) error {
	rel, err := l.relative(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.Dir, filepath.FromSlash(rel))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return err
	}
	return nil
}

func (l *LocalClient) relative(ref string) (string, error) {
	if !strings.HasPrefix(ref, l.URLPrefix+"/") {
		return "", fmt.Errorf("reference %q is outside %s", ref, l.URLPrefix)
	}
	rel := path.Clean(strings.TrimPrefix(ref, l.URLPrefix+"/"))
	if rel == "." || strings.HasPrefix(rel, "../") || rel == ".." {
		return "", fmt.Errorf("invalid reference %q", ref)
	}
	return rel, nil
}
