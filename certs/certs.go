// Package certs provisions the self-signed TLS material shared by the
// TLS-enabled daemons of one test directory.
package certs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/floresta-chain/nodeharness/errors"
	"github.com/floresta-chain/nodeharness/ulogger"
)

const (
	KeyFileName  = "key.pem"
	CertFileName = "cert.pem"

	// CommonName matches what florestad expects to find in its TLS config.
	CommonName = "florestad"

	keyBits  = 2048
	validity = 2 * 365 * 24 * time.Hour
)

var mu sync.Mutex

// EnsureCertificate generates a PKCS#8 private key and a self-signed
// certificate inside dir, returning their paths. It is idempotent per
// directory: existing artifacts are reused, never overwritten, so daemons
// already configured with them keep working.
func EnsureCertificate(logger ulogger.Logger, dir string) (string, string, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", errors.NewCertificateProvisionError("failed to create tls directory %s", dir, err)
	}

	keyPath := filepath.Join(dir, KeyFileName)
	certPath := filepath.Join(dir, CertFileName)

	if fileExists(keyPath) && fileExists(certPath) {
		logger.Debugf("reusing existing TLS key %s and certificate %s", keyPath, certPath)
		return keyPath, certPath, nil
	}

	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return "", "", errors.NewCertificateProvisionError("failed to generate private key", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", errors.NewCertificateProvisionError("failed to marshal private key", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return "", "", errors.NewCertificateProvisionError("failed to generate serial number", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: CommonName,
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost", CommonName},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return "", "", errors.NewCertificateProvisionError("failed to create certificate", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	if err = os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return "", "", errors.NewCertificateProvisionError("failed to write key file %s", keyPath, err)
	}

	if err = os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return "", "", errors.NewCertificateProvisionError("failed to write certificate file %s", certPath, err)
	}

	logger.Infof("created TLS key %s and self-signed certificate %s", keyPath, certPath)

	return keyPath, certPath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
