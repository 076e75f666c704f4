package einvoice

import "strings"

// Malaysian state codes per the MyInvois state catalogue. "17" covers
// supplies outside Malaysia.
const (
	StateJohor          = "01"
	StateKedah          = "02"
	StateKelantan       = "03"
	StateMelaka         = "04"
	StateNegeriSembilan = "05"
	StatePahang         = "06"
	StatePulauPinang    = "07"
	StatePerak          = "08"
	StatePerlis         = "09"
	StateSelangor       = "10"
	StateTerengganu     = "11"
	StateSabah          = "12"
	StateSarawak        = "13"
	StateKualaLumpur    = "14"
	StateLabuan         = "15"
	StatePutrajaya      = "16"
	StateNotApplicable  = "17"
)

// stateCodes maps official state names (upper-cased) to their code.
var stateCodes = map[string]string{
	"JOHOR":           StateJohor,
	"KEDAH":           StateKedah,
	"KELANTAN":        StateKelantan,
	"MELAKA":          StateMelaka,
	"MALACCA":         StateMelaka,
	"NEGERI SEMBILAN": StateNegeriSembilan,
	"PAHANG":          StatePahang,
	"PULAU PINANG":    StatePulauPinang,
	"PENANG":          StatePulauPinang,
	"PERAK":           StatePerak,
	"PERLIS":          StatePerlis,
	"SELANGOR":        StateSelangor,
	"TERENGGANU":      StateTerengganu,
	"SABAH":           StateSabah,
	"SARAWAK":         StateSarawak,
	"KUALA LUMPUR":    StateKualaLumpur,
	"WP KUALA LUMPUR": StateKualaLumpur,
	"LABUAN":          StateLabuan,
	"WP LABUAN":       StateLabuan,
	"PUTRAJAYA":       StatePutrajaya,
	"WP PUTRAJAYA":    StatePutrajaya,
}

// stateHints are substring heuristics applied when the exact lookup misses;
// spreadsheets frequently carry decorated values like "W.P. Kuala Lumpur" or
// "Shah Alam, Selangor". Order matters: more specific tokens first.
var stateHints = []struct {
	token string
	code  string
}{
	{"KUALA LUMPUR", StateKualaLumpur},
	{"PUTRAJAYA", StatePutrajaya},
	{"LABUAN", StateLabuan},
	{"NEGERI SEMBILAN", StateNegeriSembilan},
	{"PULAU PINANG", StatePulauPinang},
	{"PENANG", StatePulauPinang},
	{"SELANGOR", StateSelangor},
	{"JOHOR", StateJohor},
	{"KEDAH", StateKedah},
	{"KELANTAN", StateKelantan},
	{"MELAKA", StateMelaka},
	{"PAHANG", StatePahang},
	{"PERAK", StatePerak},
	{"PERLIS", StatePerlis},
	{"TERENGGANU", StateTerengganu},
	{"SABAH", StateSabah},
	{"SARAWAK", StateSarawak},
}

// StateCode normalizes a state name to its official two-digit code. Values
// that already look like a valid code pass through; anything unrecognized is
// returned as-is so the authority's validator reports it instead of us
// guessing wrong.
func StateCode(name string) string {
	s := strings.ToUpper(strings.TrimSpace(name))
	if s == "" {
		return ""
	}
	if len(s) == 2 && s >= "01" && s <= "17" {
		return s
	}
	if code, ok := stateCodes[s]; ok {
		return code
	}
	for _, h := range stateHints {
		if strings.Contains(s, h.token) {
			return h.code
		}
	}
	return strings.TrimSpace(name)
}
