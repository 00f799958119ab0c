package storage

/*
Directory layout (file storage):

Structure: {md5(collection)[0:2]}/{hex(collection)}/{md5(pk|id)[0:2]}/{hex(pk)}_{hex(id)}.dat
Example:   3c/70656f706c65/9a/313233_313233.dat

  - md5(collection)[0:2]: 256 dirs, spreads collections
  - hex(collection): lowercase only, so case-insensitive filesystems keep
    "Users" and "users" apart
  - md5(pk|id)[0:2]: 256 leaf dirs per collection, ~4k files each at 1M
    documents
  - file name carries the full key, so no shard collision is possible

Files are gzip-compressed and AES-GCM encrypted when a passphrase is set.
Writes go to a temp file in the same directory and are renamed into place.
*/

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hkloudou/docpatch/internal/encrypt"
)

// fileBlob implements Blob on the local file system.
type fileBlob struct {
	basePath string
	codec    *encrypt.Codec
}

// FileConfig holds file storage configuration
type FileConfig struct {
	Name             string // Storage name
	BasePath         string // Base directory path (e.g., "/data/docpatch" or "./storage")
	AESKey           string // AES passphrase, empty disables encryption
	PartitionKeyPath string
}

// NewFileStore creates a document store rooted at cfg.BasePath.
func NewFileStore(cfg FileConfig) (Store, error) {
	basePath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	blob := &fileBlob{
		basePath: basePath,
		codec:    encrypt.NewCodec(cfg.AESKey),
	}
	return newBlobStore(cfg.Name, blob, cfg.PartitionKeyPath), nil
}

func (s *fileBlob) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return s.codec.Decode(data)
}

func (s *fileBlob) Put(ctx context.Context, key string, data []byte) error {
	tmp, fullPath, err := s.writeTemp(key, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// PutIfAbsent links the temp file into place; the link fails when the
// target exists.
func (s *fileBlob) PutIfAbsent(ctx context.Context, key string, data []byte) error {
	tmp, fullPath, err := s.writeTemp(key, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	if err := os.Link(tmp, fullPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrConflict
		}
		return fmt.Errorf("failed to link temp file: %w", err)
	}
	return nil
}

func (s *fileBlob) writeTemp(key string, data []byte) (tmp, fullPath string, err error) {
	encoded, err := s.codec.Encode(data)
	if err != nil {
		return "", "", err
	}
	fullPath = filepath.Join(s.basePath, key)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(encoded); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", "", fmt.Errorf("failed to close file: %w", err)
	}
	return f.Name(), fullPath, nil
}

func (s *fileBlob) Delete(ctx context.Context, key string) error {
	if err := os.Remove(filepath.Join(s.basePath, key)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *fileBlob) List(ctx context.Context, prefix string) ([]string, error) {
	searchPath := filepath.Join(s.basePath, prefix)
	var keys []string

	err := filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// Skip directories and temp files
		if info.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		relPath, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return keys, nil
}

func (s *fileBlob) DocumentKey(collection, partitionKey, id string) string {
	shard := md5Prefix(partitionKey + "|" + id)
	return fmt.Sprintf("%s%s/%s_%s.dat", s.CollectionPrefix(collection), shard,
		hex.EncodeToString([]byte(partitionKey)), hex.EncodeToString([]byte(id)))
}

func (s *fileBlob) CollectionPrefix(collection string) string {
	return fmt.Sprintf("%s/%s/", md5Prefix(collection), hex.EncodeToString([]byte(collection)))
}

// md5Prefix returns the first 2 hex chars of s's MD5, 256 possible values.
func md5Prefix(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])[0:2]
}
