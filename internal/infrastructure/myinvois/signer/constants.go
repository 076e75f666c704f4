// Package signer produces the XAdES-style enveloped signature blocks required
// by schema version 1.1. The structure mirrors XML Advanced Electronic
// Signatures but is expressed in the authority's JSON rendition.
package signer

// XMLDSig / XAdES algorithm and type identifiers carried inside the JSON
// signature block.
const (
	AlgSHA256    = "http://www.w3.org/2001/04/xmlenc#sha256"
	AlgRSASHA256 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"

	TypeSignedProps = "http://uri.etsi.org/01903/v1.3.2#SignedProperties"

	ExtensionURI         = "urn:oasis:names:specification:ubl:dsig:enveloped:xades"
	SignatureInfoID      = "urn:oasis:names:specification:ubl:signature:1"
	ReferencedSigID      = "urn:oasis:names:specification:ubl:signature:Invoice"
	SignatureID          = "signature"
	SignedPropsID        = "id-xades-signed-props"
	SignedPropsReference = "#id-xades-signed-props"
)
