package encrypt

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestCodec_RoundTrip(t *testing.T) {
	doc := []byte(`{"id":"123","managers":["Aristotle","Bartholomew"]}`)
	tests := []struct {
		name       string
		passphrase string
	}{
		{name: "compress only", passphrase: ""},
		{name: "short passphrase", passphrase: "k"},
		{name: "long passphrase", passphrase: "a passphrase that is much longer than thirty two bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCodec(tt.passphrase)
			if c.Encrypted() != (tt.passphrase != "") {
				t.Errorf("Encrypted() = %v", c.Encrypted())
			}
			encoded, err := c.Encode(doc)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if c.Encrypted() && bytes.Contains(encoded, []byte("Aristotle")) {
				t.Error("encoded form contains plaintext")
			}
			decoded, err := c.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !bytes.Equal(decoded, doc) {
				t.Errorf("Decode() = %s, want %s", decoded, doc)
			}
		})
	}
}

func TestCodec_WrongKey(t *testing.T) {
	encoded, err := NewCodec("right").Encode([]byte(`{}`))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := NewCodec("wrong").Decode(encoded); err == nil {
		t.Error("Decode() with the wrong key should fail")
	}
}

func TestOpenShortCiphertext(t *testing.T) {
	_, err := openGCM([]byte{1, 2, 3}, deriveKey("key"))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}
