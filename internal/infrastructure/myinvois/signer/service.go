package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Blocks is the pair attached to the canonical document for schema 1.1: the
// UBLExtensions tree embedding the full XAdES signature, and the top-level
// Signature reference element.
type Blocks struct {
	UBLExtensions json.RawMessage
	Signature     json.RawMessage
}

// Service computes the enveloped signature. Pure apart from reading the
// clock; key material is injected by the caller.
type Service struct {
	now func() time.Time
}

// New creates the signing service.
func New() *Service {
	return &Service{now: time.Now}
}

// NewWithClock is used by tests needing a deterministic signing time.
func NewWithClock(now func() time.Time) *Service {
	return &Service{now: now}
}

// Sign produces the signature blocks for an already-minified canonical
// document (serialized WITHOUT the UBLExtensions and Signature fields).
//
// Steps: SHA-256 the minified bytes (document digest); SHA-256 the DER
// certificate (cert digest); hash the signed-properties structure carrying
// signing time, cert digest and issuer serial; RSA-PKCS1v15-SHA256 sign the
// minified document bytes; assemble the fixed-shape blocks.
func (s *Service) Sign(minifiedDoc []byte, cert tls.Certificate) (*Blocks, error) {
	if len(minifiedDoc) == 0 {
		return nil, fmt.Errorf("signer: empty document")
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signer: certificate must carry an RSA private key")
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("signer: certificate chain is empty")
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("signer: parse certificate: %w", err)
	}

	// 1) Document digest over the minified canonical JSON.
	docHash := sha256.Sum256(minifiedDoc)
	docDigestB64 := base64.StdEncoding.EncodeToString(docHash[:])

	// 2) Certificate digest + issuer serial.
	certDigestB64, issuerName, serial := CertDigestAndIssuerSerial(x509Cert)

	// 3) Signed properties: signing time + certificate reference, hashed.
	signingTime := s.now().UTC().Format("2006-01-02T15:04:05Z")
	signedProps := buildSignedProperties(signingTime, certDigestB64, issuerName, serial)
	propsJSON, err := json.Marshal(signedProps)
	if err != nil {
		return nil, fmt.Errorf("signer: marshal signed properties: %w", err)
	}
	propsHash := sha256.Sum256(propsJSON)
	propsDigestB64 := base64.StdEncoding.EncodeToString(propsHash[:])

	// 4) RSA signature over the minified document bytes.
	sigBytes, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, docHash[:])
	if err != nil {
		return nil, fmt.Errorf("signer: sign document: %w", err)
	}
	sigB64 := base64.StdEncoding.EncodeToString(sigBytes)
	certB64 := base64.StdEncoding.EncodeToString(x509Cert.Raw)

	// 5) Assemble the fixed-shape blocks.
	ext := buildExtensions(signedProps, docDigestB64, propsDigestB64, sigB64, certB64, x509Cert.Subject.String(), issuerName, serial)
	extJSON, err := json.Marshal([]ublExtensions{ext})
	if err != nil {
		return nil, fmt.Errorf("signer: marshal extensions: %w", err)
	}
	sigRef, err := json.Marshal(signatureReference())
	if err != nil {
		return nil, fmt.Errorf("signer: marshal signature reference: %w", err)
	}
	return &Blocks{UBLExtensions: extJSON, Signature: sigRef}, nil
}

// ── JSON shapes ───────────────────────────────────────────────────────────────
//
// The authority's rendition wraps every scalar as an array-of-one object, the
// same convention the mapper uses.

type textNode struct {
	Value string `json:"_"`
}

type algorithmNode struct {
	Value     string `json:"_"`
	Algorithm string `json:"Algorithm,omitempty"`
}

func txt(s string) []textNode { return []textNode{{Value: s}} }

type digestMethod struct {
	DigestMethod []algorithmNode `json:"DigestMethod"`
	DigestValue  []textNode      `json:"DigestValue"`
}

type issuerSerial struct {
	X509IssuerName   []textNode `json:"X509IssuerName"`
	X509SerialNumber []textNode `json:"X509SerialNumber"`
}

type signingCert struct {
	Cert []struct {
		CertDigest   []digestMethod `json:"CertDigest"`
		IssuerSerial []issuerSerial `json:"IssuerSerial"`
	} `json:"Cert"`
}

type signedSignatureProps struct {
	SigningTime        []textNode    `json:"SigningTime"`
	SigningCertificate []signingCert `json:"SigningCertificate"`
}

type signedProperties struct {
	ID                        string                 `json:"Id"`
	SignedSignatureProperties []signedSignatureProps `json:"SignedSignatureProperties"`
}

type qualifyingProperties struct {
	Target           string             `json:"Target"`
	SignedProperties []signedProperties `json:"SignedProperties"`
}

type signatureObject struct {
	QualifyingProperties []qualifyingProperties `json:"QualifyingProperties"`
}

type x509Data struct {
	X509Certificate  []textNode     `json:"X509Certificate"`
	X509SubjectName  []textNode     `json:"X509SubjectName"`
	X509IssuerSerial []issuerSerial `json:"X509IssuerSerial"`
}

type keyInfo struct {
	X509Data []x509Data `json:"X509Data"`
}

type reference struct {
	Type         string          `json:"Type"`
	URI          string          `json:"URI"`
	ID           string          `json:"Id,omitempty"`
	DigestMethod []algorithmNode `json:"DigestMethod"`
	DigestValue  []textNode      `json:"DigestValue"`
}

type signedInfo struct {
	SignatureMethod []algorithmNode `json:"SignatureMethod"`
	Reference       []reference     `json:"Reference"`
}

type dsSignature struct {
	ID             string            `json:"Id"`
	Object         []signatureObject `json:"Object"`
	KeyInfo        []keyInfo         `json:"KeyInfo"`
	SignatureValue []textNode        `json:"SignatureValue"`
	SignedInfo     []signedInfo      `json:"SignedInfo"`
}

type signatureInformation struct {
	ID                    []textNode    `json:"ID"`
	ReferencedSignatureID []textNode    `json:"ReferencedSignatureID"`
	Signature             []dsSignature `json:"Signature"`
}

type ublDocumentSignatures struct {
	SignatureInformation []signatureInformation `json:"SignatureInformation"`
}

type extensionContent struct {
	UBLDocumentSignatures []ublDocumentSignatures `json:"UBLDocumentSignatures"`
}

type ublExtension struct {
	ExtensionURI     []textNode         `json:"ExtensionURI"`
	ExtensionContent []extensionContent `json:"ExtensionContent"`
}

type ublExtensions struct {
	UBLExtension []ublExtension `json:"UBLExtension"`
}

type signatureRef struct {
	ID              []textNode `json:"ID"`
	SignatureMethod []textNode `json:"SignatureMethod"`
}

// ── Builders ──────────────────────────────────────────────────────────────────

func buildSignedProperties(signingTime, certDigestB64, issuerName, serial string) signedProperties {
	sc := signingCert{}
	sc.Cert = append(sc.Cert, struct {
		CertDigest   []digestMethod `json:"CertDigest"`
		IssuerSerial []issuerSerial `json:"IssuerSerial"`
	}{
		CertDigest: []digestMethod{{
			DigestMethod: []algorithmNode{{Algorithm: AlgSHA256}},
			DigestValue:  txt(certDigestB64),
		}},
		IssuerSerial: []issuerSerial{{
			X509IssuerName:   txt(issuerName),
			X509SerialNumber: txt(serial),
		}},
	})
	return signedProperties{
		ID: SignedPropsID,
		SignedSignatureProperties: []signedSignatureProps{{
			SigningTime:        txt(signingTime),
			SigningCertificate: []signingCert{sc},
		}},
	}
}

func buildExtensions(props signedProperties, docDigestB64, propsDigestB64, sigB64, certB64, subject, issuer, serial string) ublExtensions {
	sig := dsSignature{
		ID: SignatureID,
		Object: []signatureObject{{
			QualifyingProperties: []qualifyingProperties{{
				Target:           SignatureID,
				SignedProperties: []signedProperties{props},
			}},
		}},
		KeyInfo: []keyInfo{{
			X509Data: []x509Data{{
				X509Certificate: txt(certB64),
				X509SubjectName: txt(subject),
				X509IssuerSerial: []issuerSerial{{
					X509IssuerName:   txt(issuer),
					X509SerialNumber: txt(serial),
				}},
			}},
		}},
		SignatureValue: txt(sigB64),
		SignedInfo: []signedInfo{{
			SignatureMethod: []algorithmNode{{Algorithm: AlgRSASHA256}},
			Reference: []reference{
				{
					Type: TypeSignedProps,
					URI:  SignedPropsReference,
					DigestMethod: []algorithmNode{{Algorithm: AlgSHA256}},
					DigestValue:  txt(propsDigestB64),
				},
				{
					Type: "",
					URI:  "",
					ID:   "id-doc-signed-data",
					DigestMethod: []algorithmNode{{Algorithm: AlgSHA256}},
					DigestValue:  txt(docDigestB64),
				},
			},
		}},
	}
	return ublExtensions{
		UBLExtension: []ublExtension{{
			ExtensionURI: txt(ExtensionURI),
			ExtensionContent: []extensionContent{{
				UBLDocumentSignatures: []ublDocumentSignatures{{
					SignatureInformation: []signatureInformation{{
						ID:                    txt(SignatureInfoID),
						ReferencedSignatureID: txt(ReferencedSigID),
						Signature:             []dsSignature{sig},
					}},
				}},
			}},
		}},
	}
}

func signatureReference() []signatureRef {
	return []signatureRef{{
		ID:              txt(ReferencedSigID),
		SignatureMethod: txt(ExtensionURI),
	}}
}
