package myinvois

import (
	"crypto/sha256"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois/signer"
)

// Batch limits enforced by the authority on the submission endpoint.
const (
	MaxBatchDocuments = 100
	MaxBatchBytes     = 5 * 1024 * 1024
)

// DocumentEnvelope is the transport wrapper for one canonical document.
type DocumentEnvelope struct {
	Format       string `json:"format"`
	DocumentHash string `json:"documentHash"`
	CodeNumber   string `json:"codeNumber"`
	Document     string `json:"document"`
}

// Preparer turns a canonical document into its submission envelope: it signs
// when the schema version requires it, hashes the final JSON and encodes the
// payload. One call yields exactly one envelope.
type Preparer struct {
	signSvc *signer.Service
	cert    *tls.Certificate // nil when signing is not configured
}

// NewPreparer builds the preparer. cert may be nil; preparing a signed schema
// version then fails with SigningError.
func NewPreparer(signSvc *signer.Service, cert *tls.Certificate) *Preparer {
	return &Preparer{signSvc: signSvc, cert: cert}
}

// Prepare produces the envelope and the document number it was derived from.
// The content hash is computed over the FINAL canonical JSON, after the
// signature blocks are attached, when schema 1.1 is in effect.
func (p *Preparer) Prepare(doc *CanonicalDocument, schemaVersion string) (*DocumentEnvelope, string, error) {
	codeNumber, err := documentNumber(doc)
	if err != nil {
		return nil, "", err
	}

	if schemaVersion == SchemaVersionSigned {
		if err := p.attachSignature(doc); err != nil {
			return nil, "", err
		}
	} else {
		// The unsigned schema must not carry the blocks at all.
		doc.Invoice[0].UBLExtensions = nil
		doc.Invoice[0].Signature = nil
	}

	finalJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("marshal canonical document: %w", err)
	}

	hash := sha256.Sum256(finalJSON)
	return &DocumentEnvelope{
		Format:       "JSON",
		DocumentHash: hex.EncodeToString(hash[:]),
		CodeNumber:   codeNumber,
		Document:     base64.StdEncoding.EncodeToString(finalJSON),
	}, codeNumber, nil
}

// attachSignature signs the document as currently serialized (without the
// blocks) and attaches the result. Signing failures are fatal for this
// submission and must not be retried.
func (p *Preparer) attachSignature(doc *CanonicalDocument) error {
	if p.cert == nil || len(p.cert.Certificate) == 0 || p.cert.PrivateKey == nil {
		return &SigningError{Reason: "schema 1.1 requires a signing certificate; none configured"}
	}
	doc.Invoice[0].UBLExtensions = nil
	doc.Invoice[0].Signature = nil
	unsigned, err := json.Marshal(doc)
	if err != nil {
		return &SigningError{Reason: "marshal unsigned document", Err: err}
	}
	blocks, err := p.signSvc.Sign(unsigned, *p.cert)
	if err != nil {
		return &SigningError{Reason: "compute signature", Err: err}
	}
	doc.Invoice[0].UBLExtensions = blocks.UBLExtensions
	doc.Invoice[0].Signature = blocks.Signature
	return nil
}

// ValidateBatch checks the authority's submission caps before any network
// call: at most 100 envelopes and 5 MB of request payload.
func ValidateBatch(envelopes []DocumentEnvelope) error {
	if len(envelopes) == 0 {
		return &PreparationError{Reason: "empty batch"}
	}
	if len(envelopes) > MaxBatchDocuments {
		return fmt.Errorf("%s: %d documents exceeds the %d-document cap", CodeBatchLimit, len(envelopes), MaxBatchDocuments)
	}
	var total int
	for _, e := range envelopes {
		total += len(e.Document)
	}
	if total > MaxBatchBytes {
		return fmt.Errorf("%s: batch payload %d bytes exceeds the %d-byte cap", CodeBatchLimit, total, MaxBatchBytes)
	}
	return nil
}

func documentNumber(doc *CanonicalDocument) (string, error) {
	if doc == nil || len(doc.Invoice) == 0 {
		return "", &PreparationError{Reason: "canonical document has no Invoice element"}
	}
	ids := doc.Invoice[0].ID
	if len(ids) == 0 || ids[0].Value == "" {
		return "", &PreparationError{Reason: "document number not found in canonical document"}
	}
	return ids[0].Value, nil
}
