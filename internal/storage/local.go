package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalService writes images into a content directory that the HTTP layer
// serves back under URLPrefix. References are relative paths like "uploads/123-ab12cd34.png".
type LocalService struct {
	root   string
	prefix string
}

func NewLocalService(root, urlPrefix string) (*LocalService, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	prefix := strings.Trim(urlPrefix, "/")
	if prefix == "" {
		prefix = "uploads"
	}
	return &LocalService{root: root, prefix: prefix}, nil
}

// Root returns the directory images are written to.
func (s *LocalService) Root() string { return s.root }

// URLPrefix returns the path prefix references are issued under, without slashes.
func (s *LocalService) URLPrefix() string { return s.prefix }

func (s *LocalService) Save(ctx context.Context, originalName string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkImageName(originalName); err != nil {
		return "", err
	}

	name := objectName(originalName, time.Now())
	target := filepath.Join(s.root, name)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("close image file: %w", err)
	}

	return path.Join(s.prefix, name), nil
}

func (s *LocalService) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, ok := strings.CutPrefix(strings.TrimPrefix(ref, "/"), s.prefix+"/")
	if !ok || name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("delete %q: %w", ref, ErrForeignReference)
	}
	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image file: %w", err)
	}
	return nil
}

var _ Service = (*LocalService)(nil)
