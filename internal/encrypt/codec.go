// Package encrypt encodes documents at rest: gzip, then AES-GCM when a
// passphrase is configured.
package encrypt

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// Codec compresses and optionally encrypts stored documents.
// The zero value compresses only.
type Codec struct {
	key       [32]byte
	encrypted bool
}

// NewCodec returns a codec keyed by passphrase. An empty passphrase
// disables encryption.
func NewCodec(passphrase string) *Codec {
	if passphrase == "" {
		return &Codec{}
	}
	return &Codec{key: deriveKey(passphrase), encrypted: true}
}

// Encrypted reports whether the codec encrypts.
func (c *Codec) Encrypted() bool {
	return c.encrypted
}

// Encode compresses doc and encrypts it if a key is set.
func (c *Codec) Encode(doc []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := zw.Write(doc); err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to compress document: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	if !c.encrypted {
		return buf.Bytes(), nil
	}
	sealed, err := sealGCM(buf.Bytes(), c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt document: %w", err)
	}
	return sealed, nil
}

// Decode reverses Encode.
func (c *Codec) Decode(data []byte) ([]byte, error) {
	compressed := data
	if c.encrypted {
		opened, err := openGCM(data, c.key)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt document: %w", err)
		}
		compressed = opened
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()
	doc, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress document: %w", err)
	}
	return doc, nil
}
