package storage

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"invoice-dashboard-go/internal/config"
)

const sasValidity = 15 * time.Minute

// BlobSigner mints short-lived read URLs for invoice documents stored in
// Azure Blob storage. Without a shared key it degrades to unsigned
// best-effort URLs (useful against public containers in dev).
type BlobSigner struct {
	cfg  config.StorageConfig
	cred *azblob.SharedKeyCredential
}

// NewBlobSigner creates a signer from the storage configuration
func NewBlobSigner(cfg config.StorageConfig) (*BlobSigner, error) {
	s := &BlobSigner{cfg: cfg}
	if !cfg.StorageEnabled() {
		return s, nil
	}
	cred, err := azblob.NewSharedKeyCredential(cfg.Account, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage credential: %w", err)
	}
	s.cred = cred
	return s, nil
}

// CanSign reports whether real SAS tokens will be produced
func (s *BlobSigner) CanSign() bool {
	return s.cred != nil
}

// NormalizeBlobPath turns a stored relative path into
// "<base_dir>/<relative>" when a base dir is configured
func (s *BlobSigner) NormalizeBlobPath(stored string) string {
	rel := strings.TrimLeft(stored, "/")
	base := strings.Trim(s.cfg.BaseDir, "/")
	if base == "" {
		return rel
	}
	if strings.HasPrefix(strings.ToLower(rel), strings.ToLower(base)+"/") {
		return rel
	}
	return base + "/" + rel
}

// encodePath escapes each path segment individually so slashes survive
func encodePath(p string) string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s == "" {
			continue
		}
		segs = append(segs, url.PathEscape(s))
	}
	return strings.Join(segs, "/")
}

// URL builds a read URL for the stored document path: a 15-minute SAS URL
// when credentials are configured, an unsigned URL otherwise
func (s *BlobSigner) URL(stored string) (string, error) {
	blobPath := s.NormalizeBlobPath(stored)
	base := fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s",
		s.cfg.Account, url.PathEscape(s.cfg.Container), encodePath(blobPath))

	if s.cred == nil {
		return base, nil
	}

	now := time.Now().UTC()
	perms := sas.BlobPermissions{Read: true}
	values := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     now.Add(-time.Minute),
		ExpiryTime:    now.Add(sasValidity),
		Permissions:   perms.String(),
		ContainerName: s.cfg.Container,
		BlobName:      blobPath,
	}

	query, err := values.SignWithSharedKey(s.cred)
	if err != nil {
		return "", fmt.Errorf("failed to sign blob URL: %w", err)
	}
	return base + "?" + query.Encode(), nil
}
