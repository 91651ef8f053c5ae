package authenticator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Webroot publishes validation values as files under a directory served by
// an existing web server.
type Webroot struct {
	root string
}

// NewWebroot returns a publisher writing below root.
func NewWebroot(root string) (*Webroot, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, ErrInvalidRoot
	}
	return &Webroot{root: root}, nil
}

func (w *Webroot) Publish(ctx context.Context, p string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file := w.file(p)
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("create challenge directory: %w", err)
	}
	if err := os.WriteFile(file, value, 0o644); err != nil {
		return fmt.Errorf("write challenge file: %w", err)
	}
	return nil
}

func (w *Webroot) Unpublish(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(w.file(p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove challenge file: %w", err)
	}
	return nil
}

// file maps a URL path to a file below root. Cleaning against "/" keeps
// the result inside root.
func (w *Webroot) file(p string) string {
	return filepath.Join(w.root, filepath.FromSlash(path.Clean("/"+p)))
}
