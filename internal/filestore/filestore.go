// Package filestore manages the uploads directory that ad banner images
// live in. Removal is best-effort and confined to the managed directory.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Store struct {
	// Dir is the directory uploaded files are stored under.
	Dir string
	// PublicPrefix is the URL prefix files are served at, e.g. /uploads.
	PublicPrefix string
}

func New(dir, publicPrefix string) Store {
	if publicPrefix == "" {
		publicPrefix = "/uploads"
	}
	return Store{Dir: dir, PublicPrefix: strings.TrimSuffix(publicPrefix, "/")}
}

// Managed reports whether url points at a file under this store's prefix.
func (s Store) Managed(url string) bool {
	return s.Dir != "" && strings.HasPrefix(url, s.PublicPrefix+"/")
}

// Remove deletes the file behind a managed URL. URLs outside the managed
// prefix are refused so external image links are never touched.
func (s Store) Remove(url string) error {
	if !s.Managed(url) {
		return fmt.Errorf("not a managed upload: %s", url)
	}
	name := strings.TrimPrefix(url, s.PublicPrefix+"/")
	name = filepath.Clean(name)
	if name == "." || strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
		return fmt.Errorf("invalid upload path: %s", url)
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}
