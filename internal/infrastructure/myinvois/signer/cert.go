package signer

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// LoadCertificate loads the signing certificate and private key from cfg
// paths: a .p12/.pfx bundle when the path ends that way, otherwise a PEM
// certificate with an optional separate key file.
func LoadCertificate(certPath, keyPath, password string) (tls.Certificate, error) {
	if certPath == "" {
		return tls.Certificate{}, fmt.Errorf("signer: certificate path not configured")
	}
	lower := strings.ToLower(certPath)
	if strings.HasSuffix(lower, ".p12") || strings.HasSuffix(lower, ".pfx") {
		return loadFromP12(certPath, password)
	}
	return loadFromPEM(certPath, keyPath)
}

// loadFromP12 loads certificate and private key from a PKCS#12 bundle. The
// password may be empty for unprotected files.
func loadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decode p12: %w", err)
	}
	// pkcs12.Decode yields a single certificate; the leaf is all the
	// authority needs for the enveloped signature.
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// loadFromPEM loads a PEM pair; a combined file works when keyPath is empty.
func loadFromPEM(certPath, keyPath string) (tls.Certificate, error) {
	if keyPath == "" {
		keyPath = certPath
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load PEM pair: %w", err)
	}
	return cert, nil
}

// CertDigestAndIssuerSerial returns the SHA-256 digest of the certificate's
// DER encoding (base64), the issuer distinguished name and the serial number
// in decimal, as embedded in the signed properties.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64, issuerName, serial string) {
	h := sha256.Sum256(cert.Raw)
	digestB64 = base64.StdEncoding.EncodeToString(h[:])
	issuerName = cert.Issuer.String()
	serial = cert.SerialNumber.String()
	return digestB64, issuerName, serial
}
