package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrForeignReference is returned when asked to delete a reference this store did not issue.
	ErrForeignReference = errors.New("reference not owned by store")
	// ErrUnsupportedImage is returned for uploads whose extension is not a raster image type.
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// imageExtensions are served back same-origin, so scriptable types such as
// .html and .svg stay out.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// Service persists uploaded product images out of band and hands back a
// reference string that is stored on the product.
type Service interface {
	Save(ctx context.Context, originalName string, body io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

func imageExt(originalName string) string {
	return strings.ToLower(filepath.Ext(filepath.Base(originalName)))
}

// checkImageName rejects uploads that are not named as an image.
func checkImageName(originalName string) error {
	if !imageExtensions[imageExt(originalName)] {
		return fmt.Errorf("%q: %w", filepath.Base(originalName), ErrUnsupportedImage)
	}
	return nil
}

// objectName derives a collision-resistant name that keeps the original extension.
func objectName(originalName string, now time.Time) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString()[:8], imageExt(originalName))
}
