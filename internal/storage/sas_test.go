package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"invoice-dashboard-go/internal/config"
)

func TestNormalizeBlobPath(t *testing.T) {
	s := &BlobSigner{cfg: config.StorageConfig{BaseDir: "invoices"}}

	assert.Equal(t, "invoices/2024/inv.pdf", s.NormalizeBlobPath("2024/inv.pdf"))
	assert.Equal(t, "invoices/2024/inv.pdf", s.NormalizeBlobPath("/2024/inv.pdf"))

	// Already-prefixed paths are left alone, case-insensitively
	assert.Equal(t, "invoices/2024/inv.pdf", s.NormalizeBlobPath("invoices/2024/inv.pdf"))
	assert.Equal(t, "Invoices/2024/inv.pdf", s.NormalizeBlobPath("Invoices/2024/inv.pdf"))

	noBase := &BlobSigner{cfg: config.StorageConfig{}}
	assert.Equal(t, "2024/inv.pdf", noBase.NormalizeBlobPath("/2024/inv.pdf"))
}

func TestEncodePath(t *testing.T) {
	assert.Equal(t, "a/b%20c/d.pdf", encodePath("a/b c/d.pdf"))
	assert.Equal(t, "a/b", encodePath("/a//b/"))
}

func TestUnsignedURLWithoutCredentials(t *testing.T) {
	s, err := NewBlobSigner(config.StorageConfig{
		Account:   "acct",
		Container: "docs",
		BaseDir:   "invoices",
	})
	assert.NoError(t, err)
	assert.False(t, s.CanSign())

	u, err := s.URL("2024/inv 01.pdf")
	assert.NoError(t, err)
	assert.Equal(t, "https://acct.blob.core.windows.net/docs/invoices/2024/inv%2001.pdf", u)
	assert.False(t, strings.Contains(u, "?"))
}
