package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albadr/zatca-integration/internal/domain"
)

func TestCredentialPathsLayout(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	paths := fs.CredentialPaths(7, 21)
	assert.Equal(t, filepath.Join("shops", "7", "stores", "21", "cert-files"), paths.Dir)
	assert.Equal(t, filepath.Join(paths.Dir, "private.pem"), paths.PrivateKey)
	assert.Equal(t, filepath.Join(paths.Dir, "csr.pem"), paths.CSR)
	assert.Equal(t, filepath.Join(paths.Dir, "certificate.key"), paths.Certificate)
	assert.Equal(t, filepath.Join(paths.Dir, "secret.key"), paths.Secret)
	assert.Equal(t, filepath.Join(paths.Dir, "request.key"), paths.RequestID)
}

func TestDocumentPathPartitionedByDay(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	got := fs.DocumentPath(7, 21, "sign", 42, at)
	want := filepath.Join("shops", "7", "stores", "21", "files", "2026", "2026-03", "2026-03-15", "temp-sign-42.xml")
	assert.Equal(t, want, got)
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	rel := filepath.Join("shops", "1", "stores", "2", "cert-files", "secret.key")
	require.NoError(t, fs.Write(rel, []byte("top-secret")))

	got, err := fs.Read(rel)
	require.NoError(t, err)
	assert.Equal(t, []byte("top-secret"), got)
	assert.True(t, fs.Exists(rel))
}

func TestWriteOverwritesAtomically(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	rel := "certificate.key"
	require.NoError(t, fs.Write(rel, []byte("old")))
	require.NoError(t, fs.Write(rel, []byte("new")))

	got, err := fs.Read(rel)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestReadMissingFileIsNotFound(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Read("does/not/exist.key")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, fs.Exists("does/not/exist.key"))
}

func TestNewFileStoreRejectsEmptyRoot(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}
