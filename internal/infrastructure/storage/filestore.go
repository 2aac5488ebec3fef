// Package storage persists certificate material and generated invoice XML on
// the local filesystem, partitioned per shop and store.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/albadr/zatca-integration/internal/domain"
)

// Credential file names inside a store's cert-files directory.
const (
	filePrivateKey  = "private.pem"
	fileCSR         = "csr.pem"
	fileCertificate = "certificate.key"
	fileSecret      = "secret.key"
	fileRequestID   = "request.key"
)

// CredentialPaths are the relative locations of one store's certificate
// material. Relative paths are what gets persisted in the settings record, so
// the storage root can move without rewriting rows.
type CredentialPaths struct {
	Dir         string
	PrivateKey  string
	CSR         string
	Certificate string
	Secret      string
	RequestID   string
}

// FileStore reads and writes files under a fixed root. Writes are atomic:
// content lands in a temp file first and is renamed into place.
type FileStore struct {
	root string
}

// NewFileStore creates the store and its root directory.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Root returns the absolute storage root.
func (s *FileStore) Root() string {
	return s.root
}

// CredentialPaths resolves the certificate file layout for one store.
func (s *FileStore) CredentialPaths(shopID, storeID int64) CredentialPaths {
	dir := filepath.Join(
		"shops", strconv.FormatInt(shopID, 10),
		"stores", strconv.FormatInt(storeID, 10),
		"cert-files",
	)
	return CredentialPaths{
		Dir:         dir,
		PrivateKey:  filepath.Join(dir, filePrivateKey),
		CSR:         filepath.Join(dir, fileCSR),
		Certificate: filepath.Join(dir, fileCertificate),
		Secret:      filepath.Join(dir, fileSecret),
		RequestID:   filepath.Join(dir, fileRequestID),
	}
}

// DocumentPath is where a generated hash or sign XML lands, partitioned by
// day so the per-directory file count stays bounded.
func (s *FileStore) DocumentPath(shopID, storeID int64, kind string, invoiceID int64, at time.Time) string {
	return filepath.Join(
		"shops", strconv.FormatInt(shopID, 10),
		"stores", strconv.FormatInt(storeID, 10),
		"files",
		at.Format("2006"), at.Format("2006-01"), at.Format("2006-01-02"),
		fmt.Sprintf("temp-%s-%d.xml", kind, invoiceID),
	)
}

// Write stores content at the relative path, creating directories as needed.
func (s *FileStore) Write(relPath string, data []byte) error {
	abs := filepath.Join(s.root, relPath)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: rename into place: %w", err)
	}
	return nil
}

// Read returns the content at the relative path. A missing file maps to the
// domain's not-found error so callers can distinguish it from IO failures.
func (s *FileStore) Read(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("storage: read %s: %w", relPath, err)
	}
	return data, nil
}

// Exists reports whether the relative path holds a regular file.
func (s *FileStore) Exists(relPath string) bool {
	info, err := os.Stat(filepath.Join(s.root, relPath))
	return err == nil && info.Mode().IsRegular()
}
