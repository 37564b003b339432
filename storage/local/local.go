// Package local implements storage.Storage on the local filesystem.
package local

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/chunkscribe/errors"
	"github.com/kbukum/chunkscribe/logger"
	"github.com/kbukum/chunkscribe/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(cfg storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return NewStorage(cfg.BasePath)
	})
}

// Storage keeps each document as a file below a base directory.
type Storage struct {
	basePath string
}

// NewStorage creates the base directory if needed and returns a Storage
// rooted at it.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, errors.InvalidInput("base_path", "must not be empty")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, errors.IOFailure("resolve", basePath, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.IOFailure("mkdir", abs, err)
	}
	return &Storage{basePath: abs}, nil
}

// BasePath returns the absolute root directory.
func (s *Storage) BasePath() string { return s.basePath }

// resolve maps a key to a file below basePath, rejecting keys that escape it.
func (s *Storage) resolve(key string) (string, error) {
	full := filepath.Join(s.basePath, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.basePath, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.InvalidInput("key", fmt.Sprintf("%q escapes the storage root", key))
	}
	return full, nil
}

// Put writes r to a temporary file and renames it into place so readers
// never observe a half-written document.
func (s *Storage) Put(_ context.Context, key string, r io.Reader) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return errors.IOFailure("mkdir", filepath.Dir(fullPath), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return errors.IOFailure("create", fullPath, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.IOFailure("write", fullPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.IOFailure("close", fullPath, err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return errors.IOFailure("rename", fullPath, err)
	}
	return nil
}

// Get opens the file behind key.
func (s *Storage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("document", key)
		}
		return nil, errors.IOFailure("open", fullPath, err)
	}
	return f, nil
}

// Delete removes the file behind key.
func (s *Storage) Delete(_ context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return errors.IOFailure("delete", fullPath, err)
	}
	return nil
}

// Exists reports whether the file behind key exists.
func (s *Storage) Exists(_ context.Context, key string) (bool, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.IOFailure("stat", fullPath, err)
	}
	return true, nil
}

// List walks the base directory for keys starting with prefix. Hidden
// files, including in-flight temporaries, are left out.
func (s *Storage) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	files := []storage.ObjectInfo{}

	err := filepath.WalkDir(s.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) || strings.HasPrefix(filepath.Base(rel), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		ct := mime.TypeByExtension(filepath.Ext(path))
		if ct == "" {
			ct = "application/octet-stream"
		}
		files = append(files, storage.ObjectInfo{
			Key:         rel,
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			ContentType: ct,
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return files, nil
		}
		return nil, errors.IOFailure("list", s.basePath, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Key < files[j].Key
	})
	return files, nil
}

var _ storage.Storage = (*Storage)(nil)
