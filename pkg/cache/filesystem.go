package cache

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	layerFile = "file"

	entrySuffix = ".entry"
)

// FileStore persists entries under a root directory so they survive restarts.
//
// Each key maps to a directory path built from its separator-delimited
// segments. An entry is one file, <path>.entry: a JSON metadata line
// followed by the value bytes. The file is replaced by a single rename, so
// readers see either the old entry or the new one, never a mix.
type FileStore struct {
	root string
	opts options
}

var _ Store = (*FileStore)(nil)

// fileHeader is the first line of an entry file.
type fileHeader struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
	Metadata
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileStore{root: dir, opts: buildOptions(opts)}, nil
}

// Root returns the store's root directory.
func (s *FileStore) Root() string {
	return s.root
}

// path maps a key onto a file path prefix inside root.
func (s *FileStore) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	segments := strings.Split(key, KeySeparator)
	for i, seg := range segments {
		switch seg {
		case "":
			segments[i] = "%"
		case ".":
			segments[i] = "%2E"
		case "..":
			segments[i] = "%2E%2E"
		default:
			segments[i] = url.PathEscape(seg)
		}
	}

	return filepath.Join(append([]string{s.root}, segments...)...), nil
}

// Peek reads the entry file.
func (s *FileStore) Peek(_ context.Context, key string) (*Entry, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p + entrySuffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(layerFile, "peek").Inc()
		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	line, value, found := bytes.Cut(data, []byte("\n"))
	if !found {
		CacheErrors.WithLabelValues(layerFile, "peek").Inc()
		return nil, fmt.Errorf("%w: no header in %q", ErrInvalidEntry, key)
	}
	header, err := parseHeader(line)
	if err != nil {
		CacheErrors.WithLabelValues(layerFile, "peek").Inc()
		return nil, err
	}
	if len(value) != header.Size {
		CacheErrors.WithLabelValues(layerFile, "peek").Inc()
		return nil, fmt.Errorf("%w: value of %q is %d bytes, header says %d", ErrInvalidEntry, key, len(value), header.Size)
	}

	return &Entry{Metadata: header.Metadata, Value: value}, nil
}

// PeekMetadata reads only the header line of the entry file.
func (s *FileStore) PeekMetadata(_ context.Context, key string) (*Metadata, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p + entrySuffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(layerFile, "peek").Inc()
		return nil, fmt.Errorf("open cache entry: %w", err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil {
		CacheErrors.WithLabelValues(layerFile, "peek").Inc()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no header in %q", ErrInvalidEntry, key)
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	header, err := parseHeader(line)
	if err != nil {
		CacheErrors.WithLabelValues(layerFile, "peek").Inc()
		return nil, err
	}
	return &header.Metadata, nil
}

func parseHeader(line []byte) (*fileHeader, error) {
	var h fileHeader
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &h, nil
}

// GetOrExpire returns the value, evicting it if expired.
func (s *FileStore) GetOrExpire(ctx context.Context, key string) ([]byte, error) {
	return getOrExpire(ctx, s, layerFile, s.opts.now(), key)
}

// Put writes the header line and value to a temp file and renames it over
// the entry.
func (s *FileStore) Put(_ context.Context, key string, value []byte, ttlSecs int64, contentHash string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		CacheErrors.WithLabelValues(layerFile, "put").Inc()
		return fmt.Errorf("create cache directory: %w", err)
	}

	header, err := json.Marshal(fileHeader{
		Key:  key,
		Size: len(value),
		Metadata: Metadata{
			Timestamp:   s.opts.now().Unix(),
			TTLSeconds:  ttlSecs,
			ContentHash: contentHash,
		},
	})
	if err != nil {
		CacheErrors.WithLabelValues(layerFile, "put").Inc()
		return fmt.Errorf("marshal cache header: %w", err)
	}

	data := make([]byte, 0, len(header)+1+len(value))
	data = append(data, header...)
	data = append(data, '\n')
	data = append(data, value...)

	if err := writeFileAtomic(p+entrySuffix, data); err != nil {
		CacheErrors.WithLabelValues(layerFile, "put").Inc()
		return fmt.Errorf("write cache entry: %w", err)
	}

	CacheWrittenBytes.WithLabelValues(layerFile).Add(float64(len(value)))
	return nil
}

// Remove deletes the entry file.
func (s *FileStore) Remove(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p + entrySuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		CacheErrors.WithLabelValues(layerFile, "remove").Inc()
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

// PresentAndValid reports whether a non-expired entry exists.
func (s *FileStore) PresentAndValid(ctx context.Context, key string) (bool, error) {
	return presentAndValid(ctx, s, s.opts.now(), key)
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over name.
func writeFileAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, name); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
