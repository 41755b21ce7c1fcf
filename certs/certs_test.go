package certs

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"testing"

	"github.com/floresta-chain/nodeharness/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCertificateCreatesValidArtifacts(t *testing.T) {
	logger := ulogger.NewVerboseTestLogger(t)
	dir := t.TempDir()

	keyPath, certPath, err := EnsureCertificate(logger, dir)
	require.NoError(t, err)

	keyPEM, err := os.ReadFile(keyPath)
	require.NoError(t, err)

	keyBlock, _ := pem.Decode(keyPEM)
	require.NotNil(t, keyBlock)
	assert.Equal(t, "PRIVATE KEY", keyBlock.Type)

	key, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	require.NoError(t, err)

	rsaKey, ok := key.(*rsa.PrivateKey)
	require.True(t, ok)
	require.NoError(t, rsaKey.Validate())

	certPEM, err := os.ReadFile(certPath)
	require.NoError(t, err)

	certBlock, _ := pem.Decode(certPEM)
	require.NotNil(t, certBlock)
	assert.Equal(t, "CERTIFICATE", certBlock.Type)

	cert, err := x509.ParseCertificate(certBlock.Bytes)
	require.NoError(t, err)

	assert.Equal(t, CommonName, cert.Subject.CommonName)
	assert.NoError(t, cert.CheckSignatureFrom(cert), "certificate must be self-signed")
	assert.True(t, cert.NotAfter.Sub(cert.NotBefore).Hours() > 365*24, "validity window must span more than a year")
}

func TestEnsureCertificateIsIdempotent(t *testing.T) {
	logger := ulogger.NewVerboseTestLogger(t)
	dir := t.TempDir()

	keyPath1, certPath1, err := EnsureCertificate(logger, dir)
	require.NoError(t, err)

	keyBytes1, err := os.ReadFile(keyPath1)
	require.NoError(t, err)

	keyPath2, certPath2, err := EnsureCertificate(logger, dir)
	require.NoError(t, err)

	assert.Equal(t, keyPath1, keyPath2)
	assert.Equal(t, certPath1, certPath2)

	keyBytes2, err := os.ReadFile(keyPath2)
	require.NoError(t, err)
	assert.Equal(t, keyBytes1, keyBytes2, "a second call must not regenerate the key")
}

func TestEnsureCertificateBadDirectory(t *testing.T) {
	logger := ulogger.NewVerboseTestLogger(t)

	// a file where the directory should be
	base := t.TempDir()
	blocker := base + "/blocker"
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, _, err := EnsureCertificate(logger, blocker+"/tls")
	require.Error(t, err)
}
