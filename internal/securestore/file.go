package securestore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	fileFormatVersion = 1
	saltSize          = 16
)

var fileAAD = []byte("scrapdai-securestore-v1")

// KDFParams are the argon2id parameters used to derive the file key.
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"` // KiB
	Threads uint8  `json:"threads"`
}

// DefaultKDFParams follows the argon2id recommendation for interactive use.
var DefaultKDFParams = KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4}

// fileDocument is the on-disk envelope. Only Ciphertext carries secrets.
type fileDocument struct {
	Version    int       `json:"version"`
	KDF        KDFParams `json:"kdf"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
}

// File is a Store persisted to a single encrypted file.
//
// The plaintext map is sealed with XChaCha20-Poly1305 under a key derived
// from the passphrase. Every mutation rewrites the file atomically.
type File struct {
	mu     sync.RWMutex
	path   string
	kdf    KDFParams
	salt   []byte
	key    []byte
	values map[string]string
}

// FileOption configures a File store.
type FileOption func(*File)

// WithKDFParams overrides the argon2id parameters for newly created files.
// Existing files keep the parameters recorded in them.
func WithKDFParams(p KDFParams) FileOption {
	return func(f *File) {
		f.kdf = p
	}
}

// OpenFile opens or creates an encrypted store at path.
// If the directory doesn't exist, it is created with 0700 permissions.
func OpenFile(path, passphrase string, opts ...FileOption) (*File, error) {
	if passphrase == "" {
		return nil, ErrMissingPassphrase
	}

	f := &File{
		path:   path,
		kdf:    DefaultKDFParams,
		values: make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	doc, err := readDocument(path)
	switch {
	case os.IsNotExist(err):
		f.salt = make([]byte, saltSize)
		if _, err := rand.Read(f.salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		f.key = deriveKey(passphrase, f.salt, f.kdf)
		return f, nil
	case err != nil:
		return nil, err
	}

	f.kdf = doc.KDF
	f.salt = doc.Salt
	f.key = deriveKey(passphrase, f.salt, f.kdf)
	if err := f.open(doc); err != nil {
		return nil, err
	}
	return f, nil
}

func deriveKey(passphrase string, salt []byte, p KDFParams) []byte {
	return argon2.IDKey([]byte(passphrase), salt, p.Time, p.Memory, p.Threads, chacha20poly1305.KeySize)
}

// readDocument returns os.ErrNotExist for a missing or empty file.
func readDocument(path string) (*fileDocument, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()

	raw, err := io.ReadAll(fh)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(raw) == 0 {
		return nil, os.ErrNotExist
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if doc.Version > fileFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupted, doc.Version)
	}
	if len(doc.Salt) != saltSize {
		return nil, fmt.Errorf("%w: bad salt", ErrCorrupted)
	}
	return &doc, nil
}

func (f *File) open(doc *fileDocument) error {
	aead, err := chacha20poly1305.NewX(f.key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	if len(doc.Nonce) != aead.NonceSize() {
		return fmt.Errorf("%w: bad nonce", ErrCorrupted)
	}

	plain, err := aead.Open(nil, doc.Nonce, doc.Ciphertext, fileAAD)
	if err != nil {
		return fmt.Errorf("%w: wrong passphrase or tampered file", ErrCorrupted)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(plain, &values); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	f.values = values
	return nil
}

// syncLocked seals the current values and writes them using temp file + rename.
// Must be called with write lock held.
func (f *File) syncLocked() error {
	plain, err := json.Marshal(f.values)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	aead, err := chacha20poly1305.NewX(f.key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	data, err := json.Marshal(fileDocument{
		Version:    fileFormatVersion,
		KDF:        f.kdf,
		Salt:       f.salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plain, fileAAD),
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmpPath := f.path + ".tmp"
	fh, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrPersist, err)
	}
	if _, err := fh.Write(data); err != nil {
		_ = fh.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: write: %v", ErrPersist, err)
	}
	if err := fh.Sync(); err != nil {
		_ = fh.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: fsync: %v", ErrPersist, err)
	}
	if err := fh.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: close: %v", ErrPersist, err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: rename: %v", ErrPersist, err)
	}
	return nil
}

// Get implements Store.
func (f *File) Get(_ context.Context, key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Store.
func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, existed := f.values[key]
	f.values[key] = value
	if err := f.syncLocked(); err != nil {
		if existed {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

// Delete implements Store.
func (f *File) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	changed := false
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.syncLocked()
}

// Path returns the store file path.
func (f *File) Path() string {
	return f.path
}

var _ Store = (*File)(nil)
