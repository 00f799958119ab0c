package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/hkloudou/docpatch/internal/encrypt"
)

// ossRetryAfter is used when OSS throttles without a hint.
const ossRetryAfter = time.Second

// ossBlob implements Blob on an Aliyun OSS bucket.
type ossBlob struct {
	bucket *oss.Bucket
	codec  *encrypt.Codec
}

// OSSConfig holds OSS configuration
type OSSConfig struct {
	Name             string // Storage name
	Endpoint         string // OSS endpoint (e.g., "oss-cn-hangzhou")
	Bucket           string // Bucket name
	AccessKey        string // Access key
	SecretKey        string // Secret key
	AESKey           string // AES passphrase, empty disables encryption
	Internal         bool   // Use internal endpoint
	PartitionKeyPath string
}

// NewOSSStore creates a document store backed by an OSS bucket.
func NewOSSStore(cfg OSSConfig) (Store, error) {
	endpoint := cfg.Endpoint
	if cfg.Internal {
		endpoint = endpoint + "-internal"
	}
	if !strings.HasPrefix(endpoint, "http") {
		endpoint = fmt.Sprintf("https://%s.aliyuncs.com", endpoint)
	}

	client, err := oss.New(endpoint, cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	blob := &ossBlob{
		bucket: bucket,
		codec:  encrypt.NewCodec(cfg.AESKey),
	}
	return newBlobStore(cfg.Name, blob, cfg.PartitionKeyPath), nil
}

func (s *ossBlob) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		return nil, translateOSSError("get object", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return s.codec.Decode(data)
}

func (s *ossBlob) Put(ctx context.Context, key string, data []byte) error {
	encoded, err := s.codec.Encode(data)
	if err != nil {
		return err
	}
	if err := s.bucket.PutObject(key, bytes.NewReader(encoded), oss.WithContext(ctx)); err != nil {
		return translateOSSError("put object", err)
	}
	return nil
}

func (s *ossBlob) PutIfAbsent(ctx context.Context, key string, data []byte) error {
	encoded, err := s.codec.Encode(data)
	if err != nil {
		return err
	}
	err = s.bucket.PutObject(key, bytes.NewReader(encoded), oss.ForbidOverWrite(true), oss.WithContext(ctx))
	if err != nil {
		return translateOSSError("create object", err)
	}
	return nil
}

// Delete checks existence first; OSS reports success for missing objects.
func (s *ossBlob) Delete(ctx context.Context, key string) error {
	exists, err := s.bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return translateOSSError("check existence", err)
	}
	if !exists {
		return ErrNotFound
	}
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return translateOSSError("delete object", err)
	}
	return nil
}

func (s *ossBlob) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	marker := ""

	for {
		result, err := s.bucket.ListObjects(oss.Prefix(prefix), oss.Marker(marker), oss.WithContext(ctx))
		if err != nil {
			return nil, translateOSSError("list objects", err)
		}
		for _, obj := range result.Objects {
			keys = append(keys, obj.Key)
		}
		if !result.IsTruncated {
			break
		}
		marker = result.NextMarker
	}
	return keys, nil
}

// DocumentKey format: {hex(collection)[0:4]}/{hex(collection)}/{hex(pk)}/{hex(id)}.dat
func (s *ossBlob) DocumentKey(collection, partitionKey, id string) string {
	return fmt.Sprintf("%s%s/%s.dat", s.CollectionPrefix(collection),
		hex.EncodeToString([]byte(partitionKey)), hex.EncodeToString([]byte(id)))
}

func (s *ossBlob) CollectionPrefix(collection string) string {
	return encodeCollectionPath(collection) + "/"
}

// encodeCollectionPath encodes a collection name following OSS best practices
// Uses hex encoding (lowercase only) to avoid case-sensitivity issues
// Format: hex[0:4]/hex
// Examples:
//
//	"Users"  -> "5573657273" -> "5573/5573657273"
//	"a"      -> "61"         -> "61" (short name, no sharding)
func encodeCollectionPath(collection string) string {
	encoded := hex.EncodeToString([]byte(collection))
	if len(encoded) <= 4 {
		return encoded
	}
	return encoded[0:4] + "/" + encoded
}

// translateOSSError maps OSS service errors onto the storage sentinels.
func translateOSSError(op string, err error) error {
	var svc oss.ServiceError
	if errors.As(err, &svc) {
		switch {
		case svc.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case svc.StatusCode == http.StatusConflict && svc.Code == "FileAlreadyExists":
			return ErrConflict
		case svc.StatusCode == http.StatusTooManyRequests || svc.StatusCode == http.StatusServiceUnavailable:
			return &RateLimitedError{RetryAfter: ossRetryAfter, Err: err}
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
