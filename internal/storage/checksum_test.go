package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestComputeChecksum(t *testing.T) {
	data := []byte("công nghệ")
	expected := sha256.Sum256(data)
	expectedStr := ChecksumPrefix + hex.EncodeToString(expected[:])

	got := ComputeChecksum(data)
	if string(got) != expectedStr {
		t.Errorf("ComputeChecksum(%q) = %s, want %s", data, got, expectedStr)
	}
}

func TestComputeChecksum_Empty(t *testing.T) {
	expected := sha256.Sum256(nil)
	expectedStr := ChecksumPrefix + hex.EncodeToString(expected[:])

	got := ComputeChecksum(nil)
	if string(got) != expectedStr {
		t.Errorf("ComputeChecksum(nil) = %s, want %s", got, expectedStr)
	}
}

func TestChecksumReader(t *testing.T) {
	content := strings.Repeat("việt nam\n", 10000)
	r := NewChecksumReader(strings.NewReader(content))

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Fatal("reader altered the content")
	}
	if got, want := r.Sum(), ComputeChecksum([]byte(content)); got != want {
		t.Errorf("Sum() = %s, want %s", got, want)
	}
}

func TestChecksumReader_Partial(t *testing.T) {
	r := NewChecksumReader(strings.NewReader("abcdef"))
	buf := make([]byte, 3)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatal(err)
	}
	if got, want := r.Sum(), ComputeChecksum([]byte("abc")); got != want {
		t.Errorf("Sum() after partial read = %s, want %s", got, want)
	}
}

func TestVerify(t *testing.T) {
	data := []byte("thông tin")
	if err := Verify(data, ComputeChecksum(data)); err != nil {
		t.Errorf("Verify matching: %v", err)
	}

	err := Verify([]byte("other"), ComputeChecksum(data))
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got: %v", err)
	}

	err = Verify(data, "md5:abc")
	if !errors.Is(err, ErrInvalidChecksum) {
		t.Errorf("expected ErrInvalidChecksum, got: %v", err)
	}
}

func TestParseChecksum(t *testing.T) {
	valid := ComputeChecksum([]byte("test"))
	hexStr, err := ParseChecksum(valid)
	if err != nil {
		t.Fatalf("ParseChecksum(%s): %v", valid, err)
	}
	if len(hexStr) != 64 {
		t.Errorf("hex length = %d, want 64", len(hexStr))
	}

	tests := []struct {
		name  string
		input Checksum
	}{
		{"no prefix", Checksum("abcdef")},
		{"wrong prefix", Checksum("md5:abcdef")},
		{"too short", Checksum("sha256:abc")},
		{"invalid hex", Checksum("sha256:" + strings.Repeat("zz", 32))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseChecksum(tt.input); !errors.Is(err, ErrInvalidChecksum) {
				t.Errorf("expected ErrInvalidChecksum, got: %v", err)
			}
		})
	}
}
