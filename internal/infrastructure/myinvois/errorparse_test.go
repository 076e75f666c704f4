package myinvois_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois"
)

// ──────────────────────────────────────────────────────────────────────────────
// TestParse_MultipleSentinelsInOneMessage: the authority packs several
// violations into one free-text message behind sentinel tokens. Each
// occurrence must come back as its own error with path, message and guidance.
// ──────────────────────────────────────────────────────────────────────────────

func TestParse_MultipleSentinelsInOneMessage(t *testing.T) {
	p := myinvois.NewErrorParser()
	rejected := myinvois.RejectedDocument{
		InvoiceCodeNumber: "INV001",
		Error: myinvois.RemoteError{
			Code: "CF321",
			Message: "Step03-Validate document. " +
				"PropertyRequired: #/Invoice/0/AccountingSupplierParty/0/Party/0/PostalAddress/0/Country/0/IdentificationCode " +
				"StringExpected: #/Invoice/0/AccountingSupplierParty/0/Party/0/Contact/0/Telephone/0/_",
		},
	}

	errs := p.Parse(rejected)
	require.Len(t, errs, 2)

	assert.Equal(t, "PROPERTY_REQUIRED", errs[0].Code)
	assert.Equal(t, "supplier country code", errs[0].Field)
	assert.Contains(t, errs[0].PropertyPath, "Country.IdentificationCode")
	assert.NotEmpty(t, errs[0].UserMessage)
	assert.NotEmpty(t, errs[0].Guidance)

	assert.Equal(t, "STRING_EXPECTED", errs[1].Code)
	assert.Equal(t, "contact telephone", errs[1].Field)
}

// TestParse_NestedDetails: violations buried in nested detail nodes are
// collected depth-first.
func TestParse_NestedDetails(t *testing.T) {
	p := myinvois.NewErrorParser()
	rejected := myinvois.RejectedDocument{
		Error: myinvois.RemoteError{
			Code:    "BadStructure",
			Message: "document rejected",
			Details: []myinvois.RemoteError{
				{Message: "PropertyRequired: #/Invoice/0/InvoiceLine/0/InvoicedQuantity"},
				{Message: "ArrayItemNotValid: #/Invoice/0/TaxTotal/0/TaxSubtotal/0/TaxCategory/0/TaxScheme"},
			},
		},
	}

	errs := p.Parse(rejected)
	require.Len(t, errs, 2)
	assert.Equal(t, "line quantity", errs[0].Field)
	assert.Equal(t, "tax scheme", errs[1].Field)
}

// TestParse_StructuredPropertyPath: some payload revisions carry the path as
// a field instead of packing it into the message text.
func TestParse_StructuredPropertyPath(t *testing.T) {
	p := myinvois.NewErrorParser()
	rejected := myinvois.RejectedDocument{
		Error: myinvois.RemoteError{
			Message:      "value is not valid",
			PropertyPath: "Invoice.AccountingCustomerParty.Party.PartyIdentification.ID",
		},
	}

	errs := p.Parse(rejected)
	require.Len(t, errs, 1)
	assert.Equal(t, "FIELD_INVALID", errs[0].Code, "missing remote code falls back to a stable default")
	assert.Equal(t, "tax identifier", errs[0].Field)
}

// TestParse_UnknownPathFallsThrough: a path no rule knows still yields a
// usable message naming its last segment.
func TestParse_UnknownPathFallsThrough(t *testing.T) {
	p := myinvois.NewErrorParser()
	rejected := myinvois.RejectedDocument{
		Error: myinvois.RemoteError{
			Message: "PropertyRequired: #/Invoice/0/SomeNovelElement/0/ObscureField",
		},
	}

	errs := p.Parse(rejected)
	require.Len(t, errs, 1)
	assert.Equal(t, "ObscureField", errs[0].Field)
	assert.Contains(t, errs[0].UserMessage, "ObscureField")
	assert.NotEmpty(t, errs[0].Guidance)
}

// TestParse_FallbackIsNeverEmpty: a rejection with no recognizable structure
// still produces exactly one generic error.
func TestParse_FallbackIsNeverEmpty(t *testing.T) {
	p := myinvois.NewErrorParser()

	errs := p.Parse(myinvois.RejectedDocument{})
	require.Len(t, errs, 1)
	assert.Equal(t, "DOCUMENT_REJECTED", errs[0].Code)
	assert.NotEmpty(t, errs[0].Message)

	errs = p.Parse(myinvois.RejectedDocument{
		Error: myinvois.RemoteError{Message: "internal error at step 7"},
	})
	require.Len(t, errs, 1)
	assert.Equal(t, "internal error at step 7", errs[0].Message)
}

func TestSummarizeErrors(t *testing.T) {
	s := myinvois.SummarizeErrors([]myinvois.ValidationError{
		{UserMessage: "The supplier address is missing its country code."},
		{UserMessage: "A contact email address is missing."},
	})
	assert.Equal(t, "The supplier address is missing its country code. A contact email address is missing.", s)
}
