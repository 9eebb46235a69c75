package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/today-in-history/internal/history"
)

const imageExt = ".png"

// Storage handles the per-day image files
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// Dir returns the directory holding the images.
func (s *Storage) Dir() string {
	return s.dataDir
}

// Path returns the image path for the day of t
func (s *Storage) Path(t time.Time) string {
	return filepath.Join(s.dataDir, history.DateStamp(t)+imageExt)
}

// Exists reports whether the image for t's day is on disk.
func (s *Storage) Exists(t time.Time) bool {
	info, err := os.Stat(s.Path(t))
	return err == nil && info.Mode().IsRegular()
}

// Load reads the image for t's day. A missing file is not an error.
func (s *Storage) Load(t time.Time) ([]byte, bool, error) {
	data, err := os.ReadFile(s.Path(t))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading image: %w", err)
	}
	return data, true, nil
}

// Save writes the image for t's day. The data goes to a temporary file in
// the same directory first and is renamed into place, so readers never see a
// partial image.
func (s *Storage) Save(t time.Time, data []byte) (path string, err error) {
	path = s.Path(t)

	f, err := os.CreateTemp(s.dataDir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	if err = f.Chmod(0644); err != nil {
		return "", fmt.Errorf("setting image mode: %w", err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("closing image: %w", err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return "", fmt.Errorf("renaming image: %w", err)
	}

	return path, nil
}

// Remove deletes the image for t's day, if any.
func (s *Storage) Remove(t time.Time) error {
	if err := os.Remove(s.Path(t)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing image: %w", err)
	}
	return nil
}

// Sweep deletes every day image except keep's and returns how many were
// removed. Other files, including another writer's in-flight temp file, are
// left alone.
func (s *Storage) Sweep(keep time.Time) (int, error) {
	return s.removeAll(s.Path(keep))
}

// Clear deletes every day image.
func (s *Storage) Clear() (int, error) {
	return s.removeAll("")
}

// Count returns the number of day images.
func (s *Storage) Count() (int, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", s.dataDir, err)
	}
	n := 0
	for _, entry := range entries {
		if isImage(entry) {
			n++
		}
	}
	return n, nil
}

func (s *Storage) removeAll(keep string) (int, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", s.dataDir, err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if !isImage(entry) {
			continue
		}
		path := filepath.Join(s.dataDir, entry.Name())
		if path == keep {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

// isImage reports whether entry is a day image. Save's temp files start with
// a dot.
func isImage(entry fs.DirEntry) bool {
	name := entry.Name()
	return entry.Type().IsRegular() && !strings.HasPrefix(name, ".") && strings.HasSuffix(name, imageExt)
}
