// Package importfile validates and opens import files. Encrypted exports
// are decrypted through an opaque collaborator into a temp file that the
// returned handle deletes on Cleanup, on every exit path.
package importfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EncryptedExt is the extension of the app's encrypted export container.
const EncryptedExt = ".ebx"

// DefaultMaxSize is the file size ceiling when the config sets none.
const DefaultMaxSize = 50 << 20 // 50 MiB

var allowedExtensions = map[string]bool{
	".csv":       true,
	".txt":       true,
	".tsv":       true,
	EncryptedExt: true,
}

// ErrAuth is returned when the passphrase cannot decrypt the container.
var ErrAuth = errors.New("incorrect passphrase")

// ValidationError is a user-facing file rejection with a specific reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Decryptor turns an encrypted export container into plaintext CSV bytes.
// Implementations return ErrAuth (or wrap it) on a bad passphrase.
type Decryptor interface {
	Decrypt(ciphertext []byte, password string) ([]byte, error)
}

// Options control validation and the encrypted branch.
type Options struct {
	MaxSize    int64
	Decryptor  Decryptor
	Passphrase string
}

// File is an opened, validated import file. Path points at plaintext CSV;
// for encrypted inputs it is a temp file removed by Cleanup.
type File struct {
	Path string
	Size int64
	temp bool
}

// Open validates path and returns a handle to its plaintext content.
// Failures happen before any parsing and leave no state behind.
func Open(path string, opts Options) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("cannot read file: %v", err)}
	}
	if info.IsDir() {
		return nil, &ValidationError{Reason: "path is a directory, not a file"}
	}

	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if info.Size() > maxSize {
		return nil, &ValidationError{Reason: fmt.Sprintf("file is %d bytes, over the %d byte limit", info.Size(), maxSize)}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !allowedExtensions[ext] {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported file type %q", ext)}
	}

	if ext != EncryptedExt {
		return &File{Path: path, Size: info.Size()}, nil
	}

	if opts.Decryptor == nil {
		return nil, &ValidationError{Reason: "encrypted export but no decryptor configured"}
	}

	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("cannot read file: %v", err)}
	}
	plaintext, err := opts.Decryptor.Decrypt(ciphertext, opts.Passphrase)
	if err != nil {
		if errors.Is(err, ErrAuth) {
			return nil, &ValidationError{Reason: "incorrect passphrase for encrypted export"}
		}
		return nil, &ValidationError{Reason: fmt.Sprintf("cannot decrypt export: %v", err)}
	}

	tmp, err := os.CreateTemp("", "escape-import-*.csv")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(plaintext); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	return &File{Path: tmp.Name(), Size: int64(len(plaintext)), temp: true}, nil
}

// Cleanup removes the temp decrypted file, if any. Safe to call more than
// once and on every exit path.
func (f *File) Cleanup() {
	if f == nil || !f.temp {
		return
	}
	os.Remove(f.Path)
	f.temp = false
}

// IsTemp reports whether Path is a temp decrypted copy.
func (f *File) IsTemp() bool { return f.temp }
