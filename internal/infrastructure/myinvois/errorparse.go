package myinvois

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError is one field-level violation derived from the authority's
// rejection payload, with plain-language guidance. Derived, never persisted
// verbatim.
type ValidationError struct {
	Code         string   `json:"code"`
	Message      string   `json:"message"`
	Field        string   `json:"field"`
	PropertyPath string   `json:"propertyPath"`
	UserMessage  string   `json:"userMessage"`
	Guidance     []string `json:"guidance"`
}

// ErrorParser expands one rejected document into actionable field-level
// errors. The authority nests several distinct violations inside a single
// free-text message behind sentinel tokens; each sentinel occurrence becomes
// its own ValidationError.
type ErrorParser struct{}

// NewErrorParser creates the parser.
func NewErrorParser() *ErrorParser {
	return &ErrorParser{}
}

// sentinelPatterns match one violation each. The captured group is the
// structural path the violation refers to. New sentinels are additive rows
// here, not new branching code.
var sentinelPatterns = []struct {
	code string
	re   *regexp.Regexp
}{
	{"PROPERTY_REQUIRED", regexp.MustCompile(`PropertyRequired:\s*([A-Za-z0-9_./#\[\]-]+)`)},
	{"STRING_EXPECTED", regexp.MustCompile(`StringExpected:\s*([A-Za-z0-9_./#\[\]-]+)`)},
	{"ARRAY_ITEM_INVALID", regexp.MustCompile(`ArrayItemNotValid:\s*([A-Za-z0-9_./#\[\]-]+)`)},
}

// pathRules classify a structural path into a field plus guidance. Exact
// known paths come first, then keyword heuristics for paths the table has
// not seen. Order matters: the first match wins.
var pathRules = []struct {
	match       string // substring of the normalized path
	field       string
	userMessage string
	guidance    []string
}{
	{
		match:       "AccountingSupplierParty.Party.PostalAddress.Country.IdentificationCode",
		field:       "supplier country code",
		userMessage: "The supplier address is missing its country code.",
		guidance: []string{
			"Open the supplier sheet and locate the country column.",
			"Enter the three-letter ISO code, e.g. MYS for Malaysia.",
		},
	},
	{
		match:       "AccountingCustomerParty.Party.PostalAddress.Country.IdentificationCode",
		field:       "buyer country code",
		userMessage: "The buyer address is missing its country code.",
		guidance: []string{
			"Open the buyer sheet and locate the country column.",
			"Enter the three-letter ISO code, e.g. MYS for Malaysia.",
		},
	},
	{
		match:       "Contact.Telephone",
		field:       "contact telephone",
		userMessage: "A contact telephone number is missing or not a text value.",
		guidance: []string{
			"Fill in the phone number column for the supplier and buyer.",
			"Format the cell as text so leading zeros and '+' are kept.",
		},
	},
	{
		match:       "Contact.ElectronicMail",
		field:       "contact email",
		userMessage: "A contact email address is missing.",
		guidance: []string{
			"Fill in the email column for the supplier and buyer.",
		},
	},
	{
		match:       "CountrySubentityCode",
		field:       "state code",
		userMessage: "The address state could not be matched to an official state code.",
		guidance: []string{
			"Use the official state name (e.g. Selangor, Kuala Lumpur) or its two-digit code.",
		},
	},
	{
		match:       "PartyIdentification",
		field:       "tax identifier",
		userMessage: "A party's TIN or registration number is missing or malformed.",
		guidance: []string{
			"Check the TIN and registration number columns for both parties.",
			"A TIN starts with a letter prefix followed by digits, e.g. C1234567890.",
		},
	},
	{
		match:       "InvoicedQuantity",
		field:       "line quantity",
		userMessage: "A line item's quantity or unit is invalid.",
		guidance: []string{
			"Enter a numeric quantity for every line.",
			"Use a UN/ECE unit code such as C62 (unit) or KGM (kilogram).",
		},
	},
	{
		match:       "ItemClassificationCode",
		field:       "item classification",
		userMessage: "A line item is missing its classification code.",
		guidance: []string{
			"Fill in the classification column using the published code list.",
		},
	},
	{
		match:       "TaxScheme",
		field:       "tax scheme",
		userMessage: "A tax category is missing its scheme identifier.",
		guidance: []string{
			"Leave the tax scheme column blank to use the default (OTH), or enter a valid scheme id.",
		},
	},
	{
		match:       "LegalMonetaryTotal",
		field:       "document totals",
		userMessage: "One of the document totals is missing or not a number.",
		guidance: []string{
			"Check the subtotal, tax and payable amount columns are numeric.",
		},
	},
}

// keywordRules are the last heuristic layer for paths no rule above matched.
var keywordRules = []struct {
	keyword     string
	field       string
	userMessage string
	guidance    []string
}{
	{"unitCode", "unit code", "A quantity is missing its unit code.", []string{"Use a UN/ECE unit code such as C62."}},
	{"Telephone", "telephone", "A telephone number is missing or malformed.", []string{"Fill in the phone number column; format the cell as text."}},
	{"Country", "country", "A country code is missing or malformed.", []string{"Use the three-letter ISO country code, e.g. MYS."}},
	{"Currency", "currency", "A currency code is missing or malformed.", []string{"Use the three-letter ISO currency code, e.g. MYR."}},
	{"Amount", "amount", "An amount field is missing or not numeric.", []string{"Check that every amount column holds a number."}},
}

// Parse expands a rejected document into at least one ValidationError. When
// no sentinel matches, a single generic violation is emitted so callers
// always receive something actionable for a reported failure.
func (p *ErrorParser) Parse(rejected RejectedDocument) []ValidationError {
	var out []ValidationError
	walkErrors(rejected.Error, func(e RemoteError) {
		matched := false
		for _, sp := range sentinelPatterns {
			for _, m := range sp.re.FindAllStringSubmatch(e.Message, -1) {
				out = append(out, classifyPath(sp.code, normalizePath(m[1])))
				matched = true
			}
		}
		// Some revisions carry the path as a structured field instead of
		// packing it into the message.
		if !matched && e.PropertyPath != "" {
			code := e.Code
			if code == "" {
				code = "FIELD_INVALID"
			}
			out = append(out, classifyPath(code, normalizePath(e.PropertyPath)))
		}
	})

	if len(out) == 0 {
		out = append(out, p.fallback(rejected))
	}
	return out
}

// classifyPath resolves a structural path against the known-path rules, then
// the keyword heuristics, then a generic message naming the path.
func classifyPath(code, path string) ValidationError {
	for _, r := range pathRules {
		if strings.Contains(path, r.match) {
			return ValidationError{
				Code:         code,
				Message:      fmt.Sprintf("%s at %s", code, path),
				Field:        r.field,
				PropertyPath: path,
				UserMessage:  r.userMessage,
				Guidance:     r.guidance,
			}
		}
	}
	for _, k := range keywordRules {
		if strings.Contains(path, k.keyword) {
			return ValidationError{
				Code:         code,
				Message:      fmt.Sprintf("%s at %s", code, path),
				Field:        k.field,
				PropertyPath: path,
				UserMessage:  k.userMessage,
				Guidance:     k.guidance,
			}
		}
	}
	return ValidationError{
		Code:         code,
		Message:      fmt.Sprintf("%s at %s", code, path),
		Field:        lastPathSegment(path),
		PropertyPath: path,
		UserMessage:  fmt.Sprintf("The field %s is missing or invalid.", lastPathSegment(path)),
		Guidance: []string{
			"Review the spreadsheet column that feeds " + lastPathSegment(path) + ".",
			"Re-submit the file after correcting the value.",
		},
	}
}

func (p *ErrorParser) fallback(rejected RejectedDocument) ValidationError {
	msg := rejected.Error.Message
	if msg == "" {
		msg = "the authority rejected the document without a structured reason"
	}
	return ValidationError{
		Code:        "DOCUMENT_REJECTED",
		Message:     msg,
		Field:       "document",
		UserMessage: "The document was rejected by the authority.",
		Guidance: []string{
			"Check the document against the latest e-invoice guideline.",
			"Contact support with the submission reference if the problem persists.",
		},
	}
}

// walkErrors visits every node in the nested error payload, depth-first.
func walkErrors(e RemoteError, visit func(RemoteError)) {
	visit(e)
	for _, d := range e.Details {
		walkErrors(d, visit)
	}
}

// normalizePath turns JSON-pointer style paths (#/Invoice/0/...) into the
// dotted form the rules use, stripping array indexes.
func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "#/")
	path = strings.ReplaceAll(path, "/", ".")
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p == "" || isDigits(p) {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func lastPathSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

// SummarizeErrors renders parsed errors into one line for the submission
// record's error detail column.
func SummarizeErrors(errs []ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.UserMessage)
	}
	return strings.Join(parts, " ")
}
